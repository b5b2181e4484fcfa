package normalize

import (
	"testing"

	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/config"
	"mvam/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureLabels() survey.LabelDictionary {
	return survey.LabelDictionary{
		"sickness":  {{Code: "1", Label: "Fever"}, {Code: "2", Label: "Cough"}},
		"Chg":       {{Code: "3", Label: "Increased"}, {Code: "4", Label: "Decreased"}},
		"RankAvail": {{Code: "1", Label: "Plenty"}},
		"ADM1Code":  {{Code: "03", Label: "Morobe"}},
	}
}

func fixtureClean() *survey.Table {
	table := survey.NewTable("", "a/RESPId", "s1/CMFood", "CMFarmGardProdChg", "SupplyRank", "ADMIN1Code", "ADMIN3Code")
	table.Append(survey.Row{"": "0", "a/RESPId": "1", "s1/CMFood": "1;2", "CMFarmGardProdChg": "03", "SupplyRank": "1", "ADMIN1Code": "3", "ADMIN3Code": "140101"})
	table.Append(survey.Row{"": "1", "a/RESPId": "2", "s1/CMFood": "2", "CMFarmGardProdChg": "3 4", "SupplyRank": "1.0", "ADMIN1Code": "3", "ADMIN3Code": "140101"})
	table.Append(survey.Row{"": "2", "a/RESPId": "3", "s1/CMFood": "", "CMFarmGardProdChg": "9", "SupplyRank": "", "ADMIN1Code": "3.0", "ADMIN3Code": "140102"})
	return table
}

var fixtureSchema = survey.Schema{
	"RESPId",
	"CMFood",
	"HHIllType_chsickness1",
	"HHIllType_chsickness12",
	"HHIllType_chsickness2",
	"HHIllType_chsickness22",
	"CMFarmGardProdChg",
	"CMFarmGardProdChg2",
	"SupplyRank",
	"SupplyRank_2",
	"ADMIN1Name",
	"ADMIN3Name",
	"Mystery",
}

func newTestNormalizer(policy config.LabelErrorPolicy) *Normalizer {
	return NewNormalizer(config.DefaultSurveyProfile(), fixtureLabels(), policy, internal.Discard())
}

func outcomeFor(t *testing.T, result *Result, column string) ColumnOutcome {
	t.Helper()
	for _, o := range result.Outcomes {
		if o.Column == column {
			return o
		}
	}
	t.Fatalf("no outcome for %s", column)
	return ColumnOutcome{}
}

func TestPrepare(t *testing.T) {
	prepared := newTestNormalizer("").Prepare(fixtureClean())

	assert.Equal(t, []string{survey.IndexColumn, "RESPId", "CMFood", "CMFarmGardProdChg", "SupplyRank", "ADMIN1Code", "ADMIN3Code"}, prepared.Headers)
	assert.Equal(t, []string{"03", "03", "03"}, prepared.Values("ADMIN1Code"))
	assert.Equal(t, "140101", prepared.Rows[0]["ADMIN3Code"])
}

func TestPrepareLeavesInputUntouched(t *testing.T) {
	clean := fixtureClean()
	newTestNormalizer("").Prepare(clean)

	assert.Equal(t, "s1/CMFood", clean.Headers[2])
	assert.Equal(t, "3", clean.Rows[0]["ADMIN1Code"])
}

func TestNormalizeMultipleChoiceExpansion(t *testing.T) {
	result, err := newTestNormalizer(config.LabelErrorsWarn).Normalize(fixtureClean(), fixtureSchema)
	require.NoError(t, err)

	first := result.Table.Rows[0]
	assert.Equal(t, "True", first["HHIllType_chsickness1"])
	assert.Equal(t, "Fever", first["HHIllType_chsickness12"])
	assert.Equal(t, "True", first["HHIllType_chsickness2"])
	assert.Equal(t, "Cough", first["HHIllType_chsickness22"])

	second := result.Table.Rows[1]
	assert.Equal(t, "False", second["HHIllType_chsickness1"])
	assert.Equal(t, "True", second["HHIllType_chsickness2"])
	assert.Equal(t, "Fever", second["HHIllType_chsickness12"])

	assert.Equal(t, RuleDirect, outcomeFor(t, result, "CMFood").Rule)
	assert.Equal(t, 4, outcomeFor(t, result, "CMFood").Generated)
	assert.Equal(t, RuleExpanded, outcomeFor(t, result, "HHIllType_chsickness22").Rule)
	assert.Empty(t, result.Extra)
}

func TestNormalizeLabelColumns(t *testing.T) {
	result, err := newTestNormalizer(config.LabelErrorsWarn).Normalize(fixtureClean(), fixtureSchema)
	require.NoError(t, err)

	assert.Equal(t, []string{"Increased", MultipleValues, MultipleValues}, result.Table.Values("CMFarmGardProdChg2"))
	chg := outcomeFor(t, result, "CMFarmGardProdChg2")
	assert.Equal(t, RuleLabel, chg.Rule)
	assert.Equal(t, "Chg", chg.ListName)
	assert.Equal(t, map[Reason]int{ReasonIntegerCoerced: 1, ReasonMultipleValues: 1, ReasonUnknownCode: 1}, chg.Reasons)
	assert.Equal(t, 2, chg.Fallbacks())

	assert.Equal(t, []string{"Plenty", "Plenty", MultipleValues}, result.Table.Values("SupplyRank_2"))
	rank := outcomeFor(t, result, "SupplyRank_2")
	assert.Equal(t, "SupplyRank", rank.Source)
	assert.Equal(t, 1, rank.Reasons[ReasonEmpty])
	assert.Equal(t, 1, rank.Fallbacks())
}

func TestNormalizeAdminLabels(t *testing.T) {
	result, err := newTestNormalizer(config.LabelErrorsWarn).Normalize(fixtureClean(), fixtureSchema)
	require.NoError(t, err)

	assert.Equal(t, []string{"Morobe", "Morobe", "Morobe"}, result.Table.Values("ADMIN1Name"))

	adm3 := outcomeFor(t, result, "ADMIN3Name")
	assert.Equal(t, RuleAdminLabel, adm3.Rule)
	assert.Equal(t, StatusFailed, adm3.Status)
	assert.Equal(t, []string{"ADMIN3Name"}, result.Failed)
	assert.Equal(t, []string{"", "", ""}, result.Table.Values("ADMIN3Name"))
}

func TestNormalizeUnclassifiedAndShape(t *testing.T) {
	result, err := newTestNormalizer(config.LabelErrorsWarn).Normalize(fixtureClean(), fixtureSchema)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mystery"}, result.Unclassified)
	assert.Equal(t, []string(fixtureSchema), result.Table.Headers)
	assert.Equal(t, 3, result.Table.Len())
	assert.Len(t, result.Outcomes, len(fixtureSchema))
	assert.Equal(t, []string{"1", "2", "3"}, result.Table.Values("RESPId"))
}

func TestNormalizeFailPolicyAborts(t *testing.T) {
	_, err := newTestNormalizer(config.LabelErrorsFail).Normalize(fixtureClean(), fixtureSchema)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLookupFailed))
	assert.Contains(t, err.Error(), "ADMIN3Name")
}

func TestNormalizeReportsExtraExpandedColumns(t *testing.T) {
	schema := survey.Schema{"RESPId", "CMFood", "HHIllType_chsickness1"}
	result, err := newTestNormalizer(config.LabelErrorsWarn).Normalize(fixtureClean(), schema)
	require.NoError(t, err)

	assert.Equal(t, []string{"HHIllType_chsickness12", "HHIllType_chsickness2", "HHIllType_chsickness22"}, result.Extra)
	assert.Equal(t, [][]string{
		{"RESPId", "CMFood", "HHIllType_chsickness1"},
		{"1", "1;2", "True"},
		{"2", "2", "False"},
		{"3", "", "False"},
	}, result.Table.Records())
}

func TestNormalizeMissingChoiceListForExpansion(t *testing.T) {
	labels := fixtureLabels()
	delete(labels, "sickness")
	n := NewNormalizer(config.DefaultSurveyProfile(), labels, config.LabelErrorsWarn, internal.Discard())

	result, err := n.Normalize(fixtureClean(), survey.Schema{"CMFood", "HHIllType_chsickness1"})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcomeFor(t, result, "CMFood").Status)
	assert.Equal(t, []string{"1;2", "2", ""}, result.Table.Values("CMFood"))
	assert.Equal(t, []string{"HHIllType_chsickness1"}, result.Unclassified)
}

func TestNormalizeExpansionNameCollision(t *testing.T) {
	labels := fixtureLabels()
	labels["sickness"] = append(labels["sickness"], survey.Choice{Code: "12", Label: "Rash"})
	schema := survey.Schema{"RESPId", "CMFood", "HHIllType_chsickness1", "HHIllType_chsickness12", "HHIllType_chsickness2", "HHIllType_chsickness22"}

	n := NewNormalizer(config.DefaultSurveyProfile(), labels, config.LabelErrorsWarn, internal.Discard())
	result, err := n.Normalize(fixtureClean(), schema)
	require.NoError(t, err)

	food := outcomeFor(t, result, "CMFood")
	assert.Equal(t, 4, food.Generated)
	assert.Equal(t, []string{"HHIllType_chsickness12"}, food.Collisions)

	collided := outcomeFor(t, result, "HHIllType_chsickness12")
	assert.Equal(t, StatusFailed, collided.Status)
	assert.Contains(t, collided.FailureReason, "CMFood label for code 1")
	assert.Contains(t, collided.FailureReason, "CMFood indicator for code 12")

	assert.Equal(t, []string{"HHIllType_chsickness12"}, result.Failed)
	assert.Equal(t, []string{"HHIllType_chsickness12"}, result.Collisions)
	assert.Equal(t, []string{"HHIllType_chsickness122"}, result.Extra)
	assert.Equal(t, []string{"", "", ""}, result.Table.Values("HHIllType_chsickness12"))
	assert.Equal(t, []string{"True", "False", "False"}, result.Table.Values("HHIllType_chsickness1"))
	assert.Equal(t, []string{"Cough", "Cough", "Cough"}, result.Table.Values("HHIllType_chsickness22"))

	_, err = NewNormalizer(config.DefaultSurveyProfile(), labels, config.LabelErrorsFail, internal.Discard()).Normalize(fixtureClean(), schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HHIllType_chsickness12")
}

func TestNormalizeDirectRuleTakesPrecedence(t *testing.T) {
	clean := survey.NewTable("RESPId", "CMFarmGardProdChg", "CMFarmGardProdChg2", "ADMIN1Code", "ADMIN1Name")
	clean.Append(survey.Row{"RESPId": "1", "CMFarmGardProdChg": "3", "CMFarmGardProdChg2": "typed by hand", "ADMIN1Code": "3", "ADMIN1Name": "Morobe Province"})

	result, err := newTestNormalizer(config.LabelErrorsWarn).Normalize(clean, survey.Schema{"CMFarmGardProdChg", "CMFarmGardProdChg2", "ADMIN1Name"})
	require.NoError(t, err)

	assert.Equal(t, RuleDirect, outcomeFor(t, result, "CMFarmGardProdChg2").Rule)
	assert.Equal(t, RuleDirect, outcomeFor(t, result, "ADMIN1Name").Rule)
	assert.Equal(t, [][]string{
		{"CMFarmGardProdChg", "CMFarmGardProdChg2", "ADMIN1Name"},
		{"3", "typed by hand", "Morobe Province"},
	}, result.Table.Records())
}

func TestNormalizeLabelRuleBeforeAdminRule(t *testing.T) {
	labels := fixtureLabels()
	labels["Region"] = []survey.Choice{{Code: "7", Label: "Momase"}}
	profile := config.DefaultSurveyProfile()
	profile.LabelSuffixes["ADMIN1Name"] = "Region"

	clean := survey.NewTable("RESPId", "ADMIN1Code", "ADMIN1Name")
	clean.Append(survey.Row{"RESPId": "1", "ADMIN1Code": "3", "ADMIN1Name": "7"})

	n := NewNormalizer(profile, labels, config.LabelErrorsWarn, internal.Discard())
	result, err := n.Normalize(clean, survey.Schema{"ADMIN1Name", "ADMIN1Name2"})
	require.NoError(t, err)

	// ADMIN1Name2 fits both the label and the admin pattern
	label := outcomeFor(t, result, "ADMIN1Name2")
	assert.Equal(t, RuleLabel, label.Rule)
	assert.Equal(t, "ADMIN1Name", label.Source)
	assert.Equal(t, []string{"Momase"}, result.Table.Values("ADMIN1Name2"))
}
