package report

import (
	"strings"
	"testing"

	"mvam/domain/survey"
	"mvam/internal/dataset"
	"mvam/internal/normalize"

	"github.com/stretchr/testify/assert"
)

func fixtureReview() Review {
	targets := survey.NewTable("LLG", "GEOCODE", "Target_sample", dataset.CompletedColumn, dataset.RemainingColumn)
	targets.Append(survey.Row{"LLG": "Wau Rural", "GEOCODE": "140101", "Target_sample": "5", "Completed": "2", "Remaining": "3"})
	targets.Append(survey.Row{"LLG": "Bulolo", "GEOCODE": "140102", "Target_sample": "4", "Completed": "6", "Remaining": "0"})

	return Review{
		Survey: "PNG mVAM Round 6",
		Clean: &dataset.CleanStats{
			RawRows: 12, ValidRows: 9, DuplicateIDs: 1, DuplicateRows: 1, RetainedRows: 8, EnumeratorsCount: 2,
			DroppedColumns: []string{"today"},
		},
		Normalize: &normalize.Result{
			Outcomes: []normalize.ColumnOutcome{
				{Column: "RESPId", Rule: normalize.RuleDirect, Status: normalize.StatusOK},
				{Column: "CMFarmGardProdChg2", Rule: normalize.RuleLabel, Status: normalize.StatusOK, ListName: "Chg",
					Reasons: map[normalize.Reason]int{normalize.ReasonExact: 5, normalize.ReasonMultipleValues: 2, normalize.ReasonUnknownCode: 1, normalize.ReasonEmpty: 3}},
				{Column: "ADMIN3Name", Rule: normalize.RuleAdminLabel, Status: normalize.StatusFailed, FailureReason: "choice list ADM3Code not found"},
				{Column: "Mystery", Rule: normalize.RuleUnclassified, Status: normalize.StatusOK},
			},
			Unclassified: []string{"Mystery"},
			Failed:       []string{"ADMIN3Name"},
			Collisions:   []string{"HHInfoNeeds12"},
		},
		Targets: targets,
	}
}

func TestMarkdownSections(t *testing.T) {
	md := string(fixtureReview().Markdown())

	assert.True(t, strings.HasPrefix(md, "# Review: PNG mVAM Round 6\n"))
	assert.Contains(t, md, "- Retained responses: 8\n")
	assert.Contains(t, md, "| unclassified | 1 |")
	assert.Contains(t, md, "- `Mystery`")
	assert.Contains(t, md, "| ADMIN3Name | admin_label | choice list ADM3Code not found |")
	assert.Contains(t, md, "| CMFarmGardProdChg2 | Chg | 2 | 1 | 3 |")
	assert.Contains(t, md, "### Expanded column name collisions\n\n- `HHInfoNeeds12`")
	assert.Contains(t, md, "1 of 2 areas still need interviews, 3 in total.")
	assert.Contains(t, md, "| Wau Rural | 140101 | 5 | 2 | 3 |")
	assert.NotContains(t, md, "Bulolo")
}

func TestMarkdownIsDeterministic(t *testing.T) {
	assert.Equal(t, fixtureReview().Markdown(), fixtureReview().Markdown())
}

func TestMarkdownWithoutStages(t *testing.T) {
	md := string(Review{Survey: "empty"}.Markdown())
	assert.Equal(t, "# Review: empty\n\n", md)
}

func TestHTML(t *testing.T) {
	html := string(fixtureReview().HTML())

	assert.Contains(t, html, "Review: PNG mVAM Round 6</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<code>Mystery</code>")
}
