package config

import (
	"fmt"

	"mvam/internal/errors"
)

// SurveyProfile carries everything that differs from one survey round to the
// next: logical column names, columns to drop, multi-select layouts and the
// reference sheet layouts.
type SurveyProfile struct {
	Columns         ColumnNames               `yaml:"columns"`
	ConsentBelow    float64                   `yaml:"consent_below"`
	CompleteValue   float64                   `yaml:"complete_value"`
	Duplicates      string                    `yaml:"duplicates"` // keep_first or keep_last
	UnwantedColumns []string                  `yaml:"unwanted_columns"`
	MultipleChoice  map[string]MultipleChoice `yaml:"multiple_choice"`
	LabelSuffixes   map[string]string         `yaml:"label_suffixes"`
	HeaderPrefixes  []string                  `yaml:"header_prefixes"`
	AdminCodeWidths map[string]int            `yaml:"admin_code_widths"`
	Schema          SchemaLayout              `yaml:"schema"`
	Labels          LabelsLayout              `yaml:"labels"`
	SamplingFrame   SamplingFrameLayout       `yaml:"sampling_frame"`
}

// ColumnNames are the logical names resolved against the raw table
type ColumnNames struct {
	Consent      string `yaml:"consent"`
	Complete     string `yaml:"complete"`
	RespondentID string `yaml:"respondent_id"`
	End          string `yaml:"end"`
	Enumerator   string `yaml:"enumerator"`
	AdminArea    string `yaml:"admin_area"`
}

// MultipleChoice describes how one multi-select column expands
type MultipleChoice struct {
	OutputPrefix string `yaml:"output_prefix"`
	LabelKey     string `yaml:"label_key"`
}

// SchemaLayout locates the target column list inside the schema sheet
type SchemaLayout struct {
	Column   string `yaml:"column"`
	SkipRows int    `yaml:"skip_rows"`
}

// LabelsLayout names the columns of the choices sheet
type LabelsLayout struct {
	ListColumn  string `yaml:"list_column"`
	CodeColumn  string `yaml:"code_column"`
	LabelColumn string `yaml:"label_column"`
}

// SamplingFrameLayout names the columns of the sampling frame sheet
type SamplingFrameLayout struct {
	UnitColumn   string `yaml:"unit_column"`
	CodeColumn   string `yaml:"code_column"`
	TargetColumn string `yaml:"target_column"`
}

// DefaultSurveyProfile returns the PNG mVAM round 6 layout
func DefaultSurveyProfile() SurveyProfile {
	return SurveyProfile{
		Columns: ColumnNames{
			Consent:      "RESPConsent",
			Complete:     "Complete",
			RespondentID: "RESPId",
			End:          "end",
			Enumerator:   "EnuName",
			AdminArea:    "ADMIN3Code",
		},
		ConsentBelow:  3,
		CompleteValue: 1,
		Duplicates:    "keep_first",
		UnwantedColumns: []string{
			"today", "simserial", "subscriberid", "phonenumber", "enu_note", "RESPConsent",
			"CallBackDate", "CallBackHour",
			"_1_4_How_many_members_f_your_household_are",
			"Error_The_total_num_respondent_to_verify",
			"_2_14_What_are_the_MA_rd_up_to_3_responses",
			"Now_I_would_like_to_E_PAST_MONTH_30_DAYS",
			"_3_4_What_is_your_hou_rd_only_one_response",
			"_4_4_Currently_what_s_top_three_concerns",
		},
		MultipleChoice: map[string]MultipleChoice{
			"CMWaterConstr":    {OutputPrefix: "CMWaterConstrWaterConstr", LabelKey: "WaterConstr"},
			"CMFood":           {OutputPrefix: "HHIllType_chsickness", LabelKey: "sickness"},
			"HHIllType_adF":    {OutputPrefix: "HHIllType_adFsickness", LabelKey: "sickness"},
			"HHIllType_adM":    {OutputPrefix: "HHIllType_adMsickness", LabelKey: "sickness"},
			"HHDisabledWho":    {OutputPrefix: "HHDisabledWhoDisableWho", LabelKey: "DisableWho"},
			"RESPComsMeanBest": {OutputPrefix: "RESPComsMeanBestComsMeans", LabelKey: "ComsMeans"},
			"CMInfoNeeds":      {OutputPrefix: "CMInfoNeedsInfoNeeds", LabelKey: "InfoNeeds"},
		},
		LabelSuffixes: map[string]string{
			"SupplyRank":        "RankAvail",
			"CMFood":            "SRf",
			"WaterCollectWho":   "WaterWho",
			"WaterConstr":       "WaterConstr",
			"PercHunger":        "RankPct",
			"FoodRank":          "RankPct",
			"CMFarmGardRank":    "RankPct",
			"CMFarmGardProdChg": "Chg",
		},
		HeaderPrefixes: []string{
			"a/", "b/", "c/", "d/", "e/", "f/",
			"s1/", "s2/", "s3/", "s4/",
			"group_ou3kf64/", "group_eb4vh34/", "group_hj0gx41/",
		},
		AdminCodeWidths: map[string]int{
			"ADMIN1Code": 2,
			"ADMIN2Code": 4,
			"ADMIN3Code": 6,
		},
		Schema: SchemaLayout{Column: "Clean table", SkipRows: 1},
		Labels: LabelsLayout{ListColumn: "list_name", CodeColumn: "name", LabelColumn: "label"},
		SamplingFrame: SamplingFrameLayout{
			UnitColumn:   "LLG",
			CodeColumn:   "GEOCODE",
			TargetColumn: "Target_sample",
		},
	}
}

// Validate checks the profile is usable
func (p SurveyProfile) Validate() error {
	required := map[string]string{
		"columns.consent":       p.Columns.Consent,
		"columns.complete":      p.Columns.Complete,
		"columns.respondent_id": p.Columns.RespondentID,
		"columns.end":           p.Columns.End,
		"columns.enumerator":    p.Columns.Enumerator,
		"columns.admin_area":    p.Columns.AdminArea,
		"schema.column":         p.Schema.Column,
		"labels.list_column":    p.Labels.ListColumn,
		"labels.code_column":    p.Labels.CodeColumn,
		"labels.label_column":   p.Labels.LabelColumn,
		"sampling_frame.code":   p.SamplingFrame.CodeColumn,
		"sampling_frame.target": p.SamplingFrame.TargetColumn,
	}
	for field, value := range required {
		if value == "" {
			return errors.ConfigInvalid(fmt.Sprintf("survey profile field %s is required", field))
		}
	}
	if p.Duplicates != "keep_first" && p.Duplicates != "keep_last" {
		return errors.ConfigInvalid(fmt.Sprintf("duplicates must be keep_first or keep_last, got %q", p.Duplicates))
	}
	if p.Schema.SkipRows < 0 {
		return errors.ConfigInvalid("schema.skip_rows cannot be negative")
	}
	for source, mc := range p.MultipleChoice {
		if mc.OutputPrefix == "" || mc.LabelKey == "" {
			return errors.ConfigInvalid(fmt.Sprintf("multiple_choice.%s needs output_prefix and label_key", source))
		}
	}
	return nil
}
