package htmltext

import (
	"regexp"
	"strings"
)

var (
	tableRe = regexp.MustCompile(`(?is)<table\b[^>]*>(.*?)</table\s*>`)
	theadRe = regexp.MustCompile(`(?is)<thead\b[^>]*>(.*?)</thead\s*>`)
	tbodyRe = regexp.MustCompile(`(?is)<tbody\b[^>]*>(.*?)</tbody\s*>`)
	trRe    = regexp.MustCompile(`(?is)<tr\b[^>]*>(.*?)</tr\s*>`)
	cellRe  = regexp.MustCompile(`(?is)<t[dh]\b[^>]*>(.*?)</t[dh]\s*>`)
	wsRunRe = regexp.MustCompile(`\s+`)
)

// minTableColumns keeps narrow tables readable; signature tables in real
// mail are often a single cell wide.
const minTableColumns = 3

// renderTables converts each <table> block into a pipe-delimited grid.
// Rows are taken from <thead> then <tbody>; tables without either section
// are scanned for <tr> directly. Short rows are padded with blank cells up
// to the widest row, floored at minTableColumns.
func renderTables(text string) string {
	return tableRe.ReplaceAllStringFunc(text, func(block string) string {
		inner := tableRe.FindStringSubmatch(block)[1]
		rows := extractRows(inner)
		if len(rows) == 0 {
			return "\n"
		}

		cols := minTableColumns
		for _, row := range rows {
			if len(row) > cols {
				cols = len(row)
			}
		}

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			var b strings.Builder
			b.WriteString("|")
			for i := 0; i < cols; i++ {
				cell := ""
				if i < len(row) {
					cell = row[i]
				}
				b.WriteString(" " + cell + " |")
			}
			lines = append(lines, strings.TrimRight(b.String(), " \t"))
		}
		return "\n" + strings.Join(lines, "\n") + "\n\n"
	})
}

func extractRows(inner string) [][]string {
	var sections []string
	for _, m := range theadRe.FindAllStringSubmatch(inner, -1) {
		sections = append(sections, m[1])
	}
	for _, m := range tbodyRe.FindAllStringSubmatch(inner, -1) {
		sections = append(sections, m[1])
	}
	if sections == nil {
		sections = []string{inner}
	}

	var rows [][]string
	for _, section := range sections {
		for _, tr := range trRe.FindAllStringSubmatch(section, -1) {
			var cells []string
			for _, cell := range cellRe.FindAllStringSubmatch(tr[1], -1) {
				cells = append(cells, cellText(cell[1]))
			}
			rows = append(rows, cells)
		}
	}
	return rows
}

// cellText strips markup inside a cell and collapses its whitespace to
// single spaces. Earlier stages already turned <br> into newlines, so line
// breaks inside a cell collapse to a space here.
func cellText(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = wsRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
