package report

import (
	"strings"
	"testing"
	"time"
)

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"a|b", `a\|b`},
		{"[link](x)", `\[link\](x)`},
		{"*bold* _em_", `\*bold\* \_em\_`},
		{"a<b>c", `a\<b\>c`},
		{"back\\slash", `back\\slash`},
		{"#1 issue!", `\#1 issue\!`},
	}
	for _, tt := range tests {
		if got := EscapeMarkdown(tt.input); got != tt.want {
			t.Errorf("EscapeMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMarkdownTableAlignment(t *testing.T) {
	doc := &Document{
		Title: "Bug Report",
		Sections: []Section{{
			Title: "Top Bugs",
			Tables: []Table{{
				Columns: []string{"ID", "Summary"},
				Rows: [][]string{
					{"1", "short"},
					{"12345", "a longer summary"},
				},
			}},
		}},
	}

	out := string(Markdown(doc))

	if !strings.Contains(out, "# Bug Report\n") {
		t.Error("missing document title")
	}
	if !strings.Contains(out, "## Top Bugs\n") {
		t.Error("missing section title")
	}
	// All cells pad to the widest cell in their column.
	if !strings.Contains(out, "| ID    | Summary          |") {
		t.Errorf("header row not aligned:\n%s", out)
	}
	if !strings.Contains(out, "| 12345 | a longer summary |") {
		t.Errorf("data row not aligned:\n%s", out)
	}
	if !strings.Contains(out, "| ----- | ---------------- |") {
		t.Errorf("separator not aligned:\n%s", out)
	}
}

func TestMarkdownEscapesCells(t *testing.T) {
	doc := &Document{
		Title: "Report",
		Sections: []Section{{
			Title:  "S",
			Tables: []Table{{Columns: []string{"Summary"}, Rows: [][]string{{"a|b [x]"}}}},
		}},
	}

	out := string(Markdown(doc))
	if !strings.Contains(out, `a\|b \[x\]`) {
		t.Errorf("cell not escaped:\n%s", out)
	}
}

func TestMarkdownCollapsedTable(t *testing.T) {
	doc := &Document{
		Title: "Report",
		Sections: []Section{{
			Title: "S",
			Tables: []Table{{
				Title:     "Long tail",
				Collapsed: true,
				Columns:   []string{"ID"},
				Rows:      [][]string{{"1"}},
			}},
		}},
	}

	out := string(Markdown(doc))
	if !strings.Contains(out, "<details>\n<summary>Long tail</summary>") {
		t.Errorf("missing details wrapper:\n%s", out)
	}
	if !strings.Contains(out, "</details>") {
		t.Errorf("details block not closed:\n%s", out)
	}
	if strings.Contains(out, "### Long tail") {
		t.Error("collapsed table should not also render a heading")
	}
}

func TestMarkdownArtifactsAndNotes(t *testing.T) {
	doc := &Document{
		Title:     "Report",
		Generated: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		Sections: []Section{{
			Title:     "Trends",
			Notes:     []string{"Weekly created versus closed."},
			Artifacts: []Artifact{{Name: "created vs closed", Path: "charts/diff.svg"}},
		}},
	}

	out := string(Markdown(doc))
	if !strings.Contains(out, "Generated 2024-03-15 10:30 UTC") {
		t.Errorf("missing generation stamp:\n%s", out)
	}
	if !strings.Contains(out, "Weekly created versus closed.") {
		t.Error("missing note")
	}
	if !strings.Contains(out, "![created vs closed](charts/diff.svg)") {
		t.Errorf("missing artifact link:\n%s", out)
	}
}

func TestCSV(t *testing.T) {
	table := Table{
		Columns: []string{"period", "created", "closed"},
		Rows: [][]string{
			{"Week 01, 2024", "10", "7"},
			{`has "quotes", and commas`, "1", "2"},
		},
	}

	out, err := CSV(table)
	if err != nil {
		t.Fatalf("CSV() error: %v", err)
	}

	want := "period,created,closed\n" +
		"\"Week 01, 2024\",10,7\n" +
		"\"has \"\"quotes\"\", and commas\",1,2\n"
	if string(out) != want {
		t.Errorf("CSV() = %q, want %q", out, want)
	}
}

func TestValidate(t *testing.T) {
	doc := &Document{
		Sections: []Section{{
			Title:  "S",
			Tables: []Table{{Title: "T", Columns: []string{"a", "b"}, Rows: [][]string{{"1"}}}},
		}},
	}
	if err := doc.Validate(); err == nil {
		t.Error("Validate() should reject a short row")
	}

	doc.Sections[0].Tables[0].Rows = [][]string{{"1", "2"}}
	if err := doc.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{90 * time.Minute, "1h 30m"},
		{2 * time.Hour, "2h"},
		{26 * time.Hour, "1d 2h"},
		{31 * 24 * time.Hour, "31d"},
	}
	for _, tt := range tests {
		if got := HumanDuration(tt.d); got != tt.want {
			t.Errorf("HumanDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
