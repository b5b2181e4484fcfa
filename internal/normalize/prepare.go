package normalize

import (
	"sort"
	"strings"

	"mvam/domain/survey"
)

// Prepare returns a copy of the cleaned table with KoBo group prefixes
// stripped from headers, an unnamed column renamed to survey.idx and admin
// codes left-padded to their configured widths.
func (n *Normalizer) Prepare(clean *survey.Table) *survey.Table {
	table := clean.Clone()
	table.RenameColumns(n.stripPrefixes)

	columns := make([]string, 0, len(n.profile.AdminCodeWidths))
	for column := range n.profile.AdminCodeWidths {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	for _, column := range columns {
		if !table.HasColumn(column) {
			n.log.Debug("No %s column to pad", column)
			continue
		}
		width := n.profile.AdminCodeWidths[column]
		unpadded := 0
		for _, row := range table.Rows {
			padded, ok := codes.PadCode(row[column], width)
			if !ok {
				unpadded++
				continue
			}
			row[column] = padded
		}
		if unpadded > 0 {
			n.log.Warn("%d rows have a non-integer %s and were left as is", unpadded, column)
		}
	}
	return table
}

func (n *Normalizer) stripPrefixes(header string) string {
	if header == "" {
		return survey.IndexColumn
	}
	for _, prefix := range n.profile.HeaderPrefixes {
		header = strings.TrimPrefix(header, prefix)
	}
	return header
}
