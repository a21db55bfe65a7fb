package config

// IMAPPreset은 메일 프로바이더별 호스트/포트 프리셋
type IMAPPreset struct {
	Host string
	Port int
}

// Presets는 프로바이더별 IMAP 프리셋 맵
var Presets = map[string]IMAPPreset{
	"gmail": {
		Host: "imap.gmail.com",
		Port: 993,
	},
	"outlook": {
		Host: "outlook.office365.com",
		Port: 993,
	},
	"icloud": {
		Host: "imap.mail.me.com",
		Port: 993,
	},
}
