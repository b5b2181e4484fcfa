package dataset

import (
	"testing"

	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawResponses() *survey.Table {
	table := survey.NewTable("today", "s1/RESPConsent", "Complete", "RESPId", "SvyDate", "end", "EnuName", "ADMIN3Code")
	rows := []survey.Row{
		{"RESPConsent": "2", "Complete": "1", "RESPId": "10", "end": "2019-05-03T10:00:00", "EnuName": "Mary", "ADMIN3Code": "140101"},
		{"RESPConsent": "3", "Complete": "1", "RESPId": "11", "end": "2019-05-01T10:00:00", "EnuName": "Mary", "ADMIN3Code": "140101"},
		{"RESPConsent": "1", "Complete": "2", "RESPId": "12", "end": "2019-05-01T10:00:00", "EnuName": "John", "ADMIN3Code": "140101"},
		{"RESPConsent": "1", "Complete": "1", "RESPId": "10", "end": "2019-05-01T09:00:00", "EnuName": "John", "ADMIN3Code": "140102"},
		{"RESPConsent": "1", "Complete": "1", "RESPId": "13", "end": "2019-05-02T09:00:00", "EnuName": "John", "ADMIN3Code": "140102"},
		{"RESPConsent": "n/a", "Complete": "1", "RESPId": "14", "end": "2019-05-02T09:00:00", "EnuName": "John", "ADMIN3Code": "140102"},
	}
	for _, r := range rows {
		r["s1/RESPConsent"] = r["RESPConsent"]
		delete(r, "RESPConsent")
		r["today"] = "2019-05-01"
		r["SvyDate"] = "2019-05-01"
		table.Append(r)
	}
	return table
}

func newTestCleaner() *Cleaner {
	return NewCleaner(config.DefaultSurveyProfile(), internal.Discard())
}

func TestFilterValid(t *testing.T) {
	valid, nonNumeric := newTestCleaner().FilterValid(rawResponses())

	assert.Equal(t, 1, nonNumeric)
	assert.Equal(t, []string{"10", "10", "13"}, valid.Values("RESPId"))
}

func TestDuplicateReport(t *testing.T) {
	c := newTestCleaner()
	valid, _ := c.FilterValid(rawResponses())

	report := c.DuplicateReport(valid)
	assert.Equal(t, [][]string{{"RESPId", "Count"}, {"10", "2"}}, report.Records())
}

func TestDeduplicateKeepsEarliestSubmission(t *testing.T) {
	c := newTestCleaner()
	valid, _ := c.FilterValid(rawResponses())

	deduped := c.Deduplicate(valid)
	require.Equal(t, 2, deduped.Len())
	assert.Equal(t, "10", deduped.Rows[0]["RESPId"])
	assert.Equal(t, "2019-05-01T09:00:00", deduped.Rows[0]["end"])
	assert.Equal(t, "John", deduped.Rows[0]["EnuName"])
	assert.Equal(t, "13", deduped.Rows[1]["RESPId"])

}

func TestDeduplicateKeepLastFromProfile(t *testing.T) {
	profile := config.DefaultSurveyProfile()
	profile.Duplicates = string(KeepLast)
	c := NewCleaner(profile, internal.Discard())
	valid, _ := c.FilterValid(rawResponses())

	latest := c.Deduplicate(valid)
	require.Equal(t, 2, latest.Len())
	assert.Equal(t, "2019-05-03T10:00:00", latest.Rows[0]["end"])
	assert.Equal(t, "Mary", latest.Rows[0]["EnuName"])
}

func TestDeduplicateUnparseableEndsSortLast(t *testing.T) {
	c := newTestCleaner()
	table := survey.NewTable("RESPId", "end")
	table.Append(survey.Row{"RESPId": "1", "end": ""})
	table.Append(survey.Row{"RESPId": "1", "end": "2019-05-01T09:00:00"})

	deduped := c.Deduplicate(table)
	require.Equal(t, 1, deduped.Len())
	assert.Equal(t, "2019-05-01T09:00:00", deduped.Rows[0]["end"])
}

func TestEnumeratorSummary(t *testing.T) {
	c := newTestCleaner()
	valid, _ := c.FilterValid(rawResponses())

	summary := c.EnumeratorSummary(c.Deduplicate(valid))
	assert.Equal(t, [][]string{
		{"EnuName", "Completed"},
		{"John", "2"},
		{"Total", "2"},
	}, summary.Records())
}

func TestCleanColumnsIgnoresMissing(t *testing.T) {
	c := newTestCleaner()
	cleaned, dropped := c.CleanColumns(rawResponses())

	assert.ElementsMatch(t, []string{"today", "s1/RESPConsent"}, dropped)
	assert.False(t, cleaned.HasColumn("today"))
	assert.True(t, cleaned.HasColumn("RESPId"))
}

func TestCleanEndToEnd(t *testing.T) {
	result := newTestCleaner().Clean(rawResponses())

	assert.Equal(t, 6, result.Stats.RawRows)
	assert.Equal(t, 3, result.Stats.ValidRows)
	assert.Equal(t, 1, result.Stats.DuplicateRows)
	assert.Equal(t, 2, result.Clean.Len())
	assert.Equal(t, 1, result.Stats.EnumeratorsCount)
	assert.NotContains(t, result.Clean.Headers, "s1/RESPConsent")
	assert.Contains(t, result.Valid.Headers, "s1/RESPConsent")
}
