package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// escapePattern matches characters with markdown meaning inside table
// cells. The leading ] is literal inside the class.
var escapePattern = regexp.MustCompile("[]!#*<>\\[\\\\_`|]")

// minColumnWidth keeps the separator row legal even for empty headers.
const minColumnWidth = 2

// EscapeMarkdown backslash-escapes markdown metacharacters so arbitrary
// summaries and titles survive table cells.
func EscapeMarkdown(s string) string {
	return escapePattern.ReplaceAllString(s, `\$0`)
}

// Markdown renders the document as a GitHub-flavored markdown page.
func Markdown(d *Document) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", EscapeMarkdown(d.Title))
	if !d.Generated.IsZero() {
		fmt.Fprintf(&buf, "Generated %s\n\n", d.Generated.UTC().Format("2006-01-02 15:04 UTC"))
	}

	for _, s := range d.Sections {
		fmt.Fprintf(&buf, "## %s\n\n", EscapeMarkdown(s.Title))
		for _, note := range s.Notes {
			fmt.Fprintf(&buf, "%s\n\n", note)
		}
		for _, a := range s.Artifacts {
			fmt.Fprintf(&buf, "![%s](%s)\n\n", EscapeMarkdown(a.Name), a.Path)
		}
		for _, t := range s.Tables {
			writeTable(&buf, t)
		}
	}
	return buf.Bytes()
}

func writeTable(buf *bytes.Buffer, t Table) {
	if t.Collapsed {
		fmt.Fprintf(buf, "<details>\n<summary>%s</summary>\n\n", EscapeMarkdown(t.Title))
	} else if t.Title != "" {
		fmt.Fprintf(buf, "### %s\n\n", EscapeMarkdown(t.Title))
	}

	widths := columnWidths(t)

	writeRow(buf, t.Columns, widths, true)
	writeSeparator(buf, widths)
	for _, row := range t.Rows {
		writeRow(buf, row, widths, true)
	}
	buf.WriteString("\n")

	if t.Collapsed {
		buf.WriteString("</details>\n\n")
	}
}

// columnWidths measures the escaped cells so the raw markdown lines up
// when read as plain text.
func columnWidths(t Table) []int {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = max(minColumnWidth, len(EscapeMarkdown(c)))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], len(EscapeMarkdown(cell)))
			}
		}
	}
	return widths
}

func writeRow(buf *bytes.Buffer, cells []string, widths []int, escape bool) {
	buf.WriteString("|")
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
			if escape {
				cell = EscapeMarkdown(cell)
			}
		}
		fmt.Fprintf(buf, " %-*s |", w, cell)
	}
	buf.WriteString("\n")
}

func writeSeparator(buf *bytes.Buffer, widths []int) {
	buf.WriteString("|")
	for _, w := range widths {
		fmt.Fprintf(buf, " %s |", strings.Repeat("-", w))
	}
	buf.WriteString("\n")
}
