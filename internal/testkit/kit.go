// Package testkit builds the fixtures shared by pipeline tests: a fake forms
// API and the three reference workbooks of a small survey round.
package testkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"mvam/internal/config"

	"github.com/xuri/excelize/v2"
)

const (
	// FixtureToken is the token the fake forms API accepts
	FixtureToken = "test-token"
	// FixtureSurvey is the title of the fixture form
	FixtureSurvey = "PNG mVAM Round 6 (April 2019)"
	// FixtureFormID is the id the fixture form is served under
	FixtureFormID = 4242
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	Dir      string // root of every file the kit writes
	server   *httptest.Server
	requests atomic.Int64
}

// NewTestKit creates a kit writing under dir, usually t.TempDir()
func NewTestKit(dir string) *TestKit {
	return &TestKit{Dir: dir}
}

// Records returns the fixture responses as the forms API serves them.
// Respondent 101 submitted twice, 103 refused consent and 104 did not
// complete the interview.
func Records() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"_id": 1, "a/RESPId": "101", "s1/RESPConsent": "1", "Complete": "1",
			"end": "2019-05-02T10:00:00.000+10:00", "EnuName": "Mary", "today": "2019-05-02",
			"ADMIN1Code": "14", "ADMIN3Code": "140101", "s2/CMFood": "1 2", "CMFarmGardProdChg": "3",
			"_attachments": []interface{}{},
		},
		{
			"_id": 2, "a/RESPId": "102", "s1/RESPConsent": "1", "Complete": "1",
			"end": "2019-05-01T12:00:00.000+10:00", "EnuName": "Mary", "today": "2019-05-01",
			"ADMIN1Code": "14", "ADMIN3Code": "140102", "s2/CMFood": "2", "CMFarmGardProdChg": "03",
			"_attachments": []interface{}{},
		},
		{
			"_id": 3, "a/RESPId": "101", "s1/RESPConsent": "2", "Complete": "1",
			"end": "2019-05-01T09:00:00.000+10:00", "EnuName": "John", "today": "2019-05-01",
			"ADMIN1Code": "14", "ADMIN3Code": "140101", "s2/CMFood": nil, "CMFarmGardProdChg": "4",
			"_attachments": []interface{}{},
		},
		{
			"_id": 4, "a/RESPId": "103", "s1/RESPConsent": "3", "Complete": "1",
			"end": "2019-05-01T13:00:00.000+10:00", "EnuName": "John", "today": "2019-05-01",
			"ADMIN1Code": "14", "ADMIN3Code": "140102", "s2/CMFood": "", "CMFarmGardProdChg": "",
			"_attachments": []interface{}{},
		},
		{
			"_id": 5, "a/RESPId": "104", "s1/RESPConsent": "1", "Complete": "2",
			"end": "2019-05-01T14:00:00.000+10:00", "EnuName": "John", "today": "2019-05-01",
			"ADMIN1Code": "14", "ADMIN3Code": "140101", "s2/CMFood": "", "CMFarmGardProdChg": "",
			"_attachments": []interface{}{},
		},
	}
}

// recordsJSON encodes Records with a stable key order per record
func recordsJSON() []byte {
	order := []string{
		"_id", "a/RESPId", "s1/RESPConsent", "Complete", "end", "EnuName", "today",
		"ADMIN1Code", "ADMIN3Code", "s2/CMFood", "CMFarmGardProdChg", "_attachments",
	}

	var b strings.Builder
	b.WriteString("[")
	for i, record := range Records() {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("{")
		for j, key := range order {
			if j > 0 {
				b.WriteString(",")
			}
			k, _ := json.Marshal(key)
			v, _ := json.Marshal(record[key])
			b.Write(k)
			b.WriteString(":")
			b.Write(v)
		}
		b.WriteString("}")
	}
	b.WriteString("]")
	return []byte(b.String())
}

// StartFormsAPI serves the fixture form and returns the base URL. Requests
// without the fixture token get 401.
func (k *TestKit) StartFormsAPI() string {
	if k.server != nil {
		return k.server.URL
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/forms", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"formid":1,"title":"Another survey"},{"formid":%d,"title":%q}]`, FixtureFormID, FixtureSurvey)
	})
	mux.HandleFunc(fmt.Sprintf("/api/v1/data/%d", FixtureFormID), func(w http.ResponseWriter, r *http.Request) {
		w.Write(recordsJSON())
	})

	k.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		k.requests.Add(1)
		if r.Header.Get("Authorization") != "Token "+FixtureToken {
			http.Error(w, `{"detail":"Invalid token."}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		mux.ServeHTTP(w, r)
	}))
	return k.server.URL
}

// Requests returns how many calls the fake forms API received
func (k *TestKit) Requests() int64 {
	return k.requests.Load()
}

// Close stops the fake forms API
func (k *TestKit) Close() {
	if k.server != nil {
		k.server.Close()
	}
}

// SchemaRows is the target schema sheet. The first data row describes the
// table and is skipped by the loader.
func SchemaRows() [][]string {
	columns := []string{
		"Clean table",
		"column name",
		"RESPId",
		"EnuName",
		"CMFood",
		"HHIllType_chsickness1",
		"HHIllType_chsickness12",
		"HHIllType_chsickness2",
		"HHIllType_chsickness22",
		"CMFarmGardProdChg",
		"CMFarmGardProdChg2",
		"ADMIN1Name",
		"ADMIN3Name",
		"HHSizeTotal",
	}
	rows := make([][]string, len(columns))
	for i, c := range columns {
		rows[i] = []string{c}
	}
	return rows
}

// ChoiceRows is the choices sheet of the form definition
func ChoiceRows() [][]string {
	return [][]string{
		{"list_name", "name", "label"},
		{"sickness", "1", "Fever"},
		{"sickness", "2", "Cough"},
		{"Chg", "3", "Increased"},
		{"Chg", "4", "Decreased"},
		{"ADM1Code", "14", "Morobe"},
		{"ADM3Code", "140101", "Wau Rural"},
		{"ADM3Code", "140102", "Bulolo"},
	}
}

// FrameRows is the sampling frame sheet, ending with a totals footer
func FrameRows() [][]string {
	return [][]string{
		{"LLG", "GEOCODE", "Target_sample"},
		{"Wau Rural", "140101", "5"},
		{"Bulolo", "140102", "1"},
		{"Markham", "140103", "3"},
		{"Total", "", "9"},
	}
}

// WriteWorkbook saves rows into sheet of a new workbook at path
func WriteWorkbook(path, sheet string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
		}
	}
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// WriteReferences writes the three reference workbooks and returns paths
// pointing at them, with artifacts going to Dir/data.
func (k *TestKit) WriteReferences() (config.PathConfig, error) {
	paths := config.PathConfig{
		DataDir:            filepath.Join(k.Dir, "data"),
		ArtifactPrefix:     "png_round6",
		SchemaFile:         filepath.Join(k.Dir, "resources", "sql_tables_structure.xlsx"),
		SchemaSheet:        "Sheet1",
		LabelsFile:         filepath.Join(k.Dir, "resources", "kobo_form_structure.xlsx"),
		LabelsSheet:        "choices",
		SamplingFrameFile:  filepath.Join(k.Dir, "resources", "sampling_frame.xlsx"),
		SamplingFrameSheet: "Master Sheet",
	}

	workbooks := []struct {
		path, sheet string
		rows        [][]string
	}{
		{paths.SchemaFile, paths.SchemaSheet, SchemaRows()},
		{paths.LabelsFile, paths.LabelsSheet, ChoiceRows()},
		{paths.SamplingFrameFile, paths.SamplingFrameSheet, FrameRows()},
	}
	for _, wb := range workbooks {
		if err := WriteWorkbook(wb.path, wb.sheet, wb.rows); err != nil {
			return config.PathConfig{}, fmt.Errorf("failed to write %s: %w", wb.path, err)
		}
	}
	return paths, nil
}

// Config returns a complete configuration wired to the fake forms API and
// freshly written reference files
func (k *TestKit) Config() (*config.Config, error) {
	paths, err := k.WriteReferences()
	if err != nil {
		return nil, err
	}
	return &config.Config{
		Kobo: config.KoboConfig{
			Token:      FixtureToken,
			BaseURL:    k.StartFormsAPI(),
			AuthScheme: "Token",
			SurveyName: FixtureSurvey,
			Timeout:    5 * time.Second,
		},
		Paths:     paths,
		Normalize: config.NormalizeConfig{LabelErrors: config.LabelErrorsWarn},
		Database:  config.DatabaseConfig{Table: "mvam_clean"},
		Survey:    config.DefaultSurveyProfile(),
		LogLevel:  "ERROR",
	}, nil
}
