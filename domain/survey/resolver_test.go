package survey

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingWarner struct {
	warnings []string
	debug    []string
}

func (w *recordingWarner) Warn(format string, args ...interface{}) {
	w.warnings = append(w.warnings, fmt.Sprintf(format, args...))
}

func (w *recordingWarner) Debug(format string, args ...interface{}) {
	w.debug = append(w.debug, fmt.Sprintf(format, args...))
}

func TestResolveColumn(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		query    string
		want     string
		warnings int
		debug    int
	}{
		{
			name:    "single substring match",
			headers: []string{"x_RESPConsent_v2", "RESPId"},
			query:   "RESPConsent",
			want:    "x_RESPConsent_v2",
		},
		{
			name:     "no match falls back with a warning",
			headers:  []string{"RESPId"},
			query:    "RESPConsent",
			want:     "RESPConsent",
			warnings: 1,
		},
		{
			name:     "two matches fall back with a warning",
			headers:  []string{"a/RESPConsent", "b/RESPConsent"},
			query:    "RESPConsent",
			want:     "RESPConsent",
			warnings: 1,
		},
		{
			name:    "exact header beats longer candidates",
			headers: []string{"Complete", "Completed_by"},
			query:   "Complete",
			want:    "Complete",
			debug:   1,
		},
		{
			name:    "exact header alone",
			headers: []string{"Complete", "end"},
			query:   "Complete",
			want:    "Complete",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWarner{}
			got := ResolveColumn(NewTable(tt.headers...), tt.query, w)
			assert.Equal(t, tt.want, got)
			assert.Len(t, w.warnings, tt.warnings)
			assert.Len(t, w.debug, tt.debug)
		})
	}
}

func TestMatchColumnCandidates(t *testing.T) {
	table := NewTable("s1/EnuName", "s2/EnuName", "end")
	match := table.MatchColumn("EnuName")

	assert.Equal(t, MatchAmbiguous, match.Status)
	assert.Equal(t, []string{"s1/EnuName", "s2/EnuName"}, match.Candidates)
	assert.False(t, match.Resolved())

	exact := NewTable("Complete", "Completed_by").MatchColumn("Complete")
	assert.Equal(t, MatchExact, exact.Status)
	assert.Equal(t, "Complete", exact.Column)
	assert.Equal(t, []string{"Complete", "Completed_by"}, exact.Candidates)
}

func TestTableDropAndRename(t *testing.T) {
	table := NewTable("a/RESPId", "today", "end")
	table.Append(Row{"a/RESPId": "7", "today": "x", "end": "2019-05-01"})

	removed := table.DropColumns("today", "missing")
	assert.Equal(t, []string{"today"}, removed)
	assert.Equal(t, []string{"a/RESPId", "end"}, table.Headers)

	table.RenameColumns(func(h string) string {
		if h == "a/RESPId" {
			return "RESPId"
		}
		return h
	})
	assert.Equal(t, []string{"RESPId", "end"}, table.Headers)
	assert.Equal(t, "7", table.Rows[0]["RESPId"])
	assert.Equal(t, [][]string{{"RESPId", "end"}, {"7", "2019-05-01"}}, table.Records())
}
