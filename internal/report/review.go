// Package report renders the end-of-run review listing the columns and
// areas that need a person to look at them.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"mvam/domain/survey"
	"mvam/internal/dataset"
	"mvam/internal/normalize"

	"github.com/gomarkdown/markdown"
)

// Review collects what one run produced. Any part may be nil when the
// corresponding stage did not run.
type Review struct {
	Survey    string
	Clean     *dataset.CleanStats
	Normalize *normalize.Result
	Targets   *survey.Table
}

// Markdown renders the review. The output only depends on the inputs so
// repeated runs over the same data produce the same bytes.
func (r Review) Markdown() []byte {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Review: %s\n\n", r.Survey))

	if r.Clean != nil {
		r.writeCleaning(&b)
	}
	if r.Normalize != nil {
		r.writeColumns(&b)
	}
	if r.Targets != nil {
		r.writeTargets(&b)
	}
	return []byte(b.String())
}

// HTML renders the review Markdown as an HTML fragment
func (r Review) HTML() []byte {
	return markdown.ToHTML(r.Markdown(), nil, nil)
}

func (r Review) writeCleaning(b *strings.Builder) {
	s := r.Clean
	b.WriteString("## Cleaning\n\n")
	b.WriteString(fmt.Sprintf("- Raw responses: %d\n", s.RawRows))
	b.WriteString(fmt.Sprintf("- Consented and complete: %d\n", s.ValidRows))
	b.WriteString(fmt.Sprintf("- Non-numeric consent or completion: %d\n", s.NonNumericRows))
	b.WriteString(fmt.Sprintf("- Respondents submitted more than once: %d (%d extra submissions removed)\n", s.DuplicateIDs, s.DuplicateRows))
	b.WriteString(fmt.Sprintf("- Retained responses: %d\n", s.RetainedRows))
	b.WriteString(fmt.Sprintf("- Enumerators: %d\n", s.EnumeratorsCount))
	if len(s.DroppedColumns) > 0 {
		b.WriteString(fmt.Sprintf("- Dropped columns: %s\n", strings.Join(s.DroppedColumns, ", ")))
	}
	b.WriteString("\n")
}

func (r Review) writeColumns(b *strings.Builder) {
	res := r.Normalize
	b.WriteString("## Schema columns\n\n")

	counts := make(map[normalize.Rule]int)
	for _, o := range res.Outcomes {
		counts[o.Rule]++
	}
	b.WriteString("| Rule | Columns |\n|---|---|\n")
	for _, rule := range []normalize.Rule{
		normalize.RuleDirect,
		normalize.RuleLabel,
		normalize.RuleExpanded,
		normalize.RuleAdminLabel,
		normalize.RuleUnclassified,
	} {
		b.WriteString(fmt.Sprintf("| %s | %d |\n", rule, counts[rule]))
	}
	b.WriteString("\n")

	b.WriteString("### Unclassified\n\n")
	writeList(b, res.Unclassified)

	b.WriteString("### Failed\n\n")
	var failed [][]string
	for _, o := range res.Outcomes {
		if o.Status == normalize.StatusFailed {
			failed = append(failed, []string{o.Column, string(o.Rule), o.FailureReason})
		}
	}
	writeTable(b, []string{"Column", "Rule", "Reason"}, failed)

	b.WriteString("### Placeholder labels\n\n")
	var placeholders [][]string
	for _, o := range res.Outcomes {
		if o.Fallbacks() == 0 {
			continue
		}
		placeholders = append(placeholders, []string{
			o.Column,
			o.ListName,
			strconv.Itoa(o.Reasons[normalize.ReasonMultipleValues]),
			strconv.Itoa(o.Reasons[normalize.ReasonUnknownCode]),
			strconv.Itoa(o.Reasons[normalize.ReasonEmpty]),
		})
	}
	writeTable(b, []string{"Column", "List", "Multiple values", "Unknown codes", "Empty"}, placeholders)

	if len(res.Collisions) > 0 {
		b.WriteString("### Expanded column name collisions\n\n")
		writeList(b, res.Collisions)
	}

	if len(res.Extra) > 0 {
		b.WriteString("### Expanded columns not in the schema\n\n")
		writeList(b, res.Extra)
	}
}

func (r Review) writeTargets(b *strings.Builder) {
	b.WriteString("## Targets\n\n")

	var open [][]string
	totalRemaining := 0
	for _, row := range r.Targets.Rows {
		remaining, err := strconv.Atoi(row[dataset.RemainingColumn])
		if err != nil || remaining == 0 {
			continue
		}
		totalRemaining += remaining
		cells := make([]string, 0, len(r.Targets.Headers))
		for _, h := range r.Targets.Headers {
			cells = append(cells, row[h])
		}
		open = append(open, cells)
	}

	b.WriteString(fmt.Sprintf("%d of %d areas still need interviews, %d in total.\n\n", len(open), r.Targets.Len(), totalRemaining))
	if len(open) > 0 {
		writeTable(b, r.Targets.Headers, open)
	}
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	for _, item := range items {
		b.WriteString(fmt.Sprintf("- `%s`\n", item))
	}
	b.WriteString("\n")
}

func writeTable(b *strings.Builder, headers []string, rows [][]string) {
	if len(rows) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(headers)) + "\n")
	for _, row := range rows {
		escaped := make([]string, len(row))
		for i, cell := range row {
			escaped[i] = strings.ReplaceAll(cell, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
	}
	b.WriteString("\n")
}
