package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/config"
	"mvam/internal/errors"
	"mvam/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixtureLoader(t *testing.T) (*ReferenceLoader, config.PathConfig) {
	t.Helper()
	paths, err := testkit.NewTestKit(t.TempDir()).WriteReferences()
	require.NoError(t, err)
	return NewReferenceLoader(paths, config.DefaultSurveyProfile(), internal.Discard()), paths
}

func TestLoadSchemaSkipsDescriptionRow(t *testing.T) {
	loader, _ := newFixtureLoader(t)

	schema, err := loader.LoadSchema()
	require.NoError(t, err)

	assert.Equal(t, "RESPId", schema[0])
	assert.Equal(t, "HHSizeTotal", schema[len(schema)-1])
	assert.Equal(t, -1, schema.Index("column name"))
	assert.Len(t, schema, len(testkit.SchemaRows())-2)
}

func TestLoadChoiceLabels(t *testing.T) {
	loader, _ := newFixtureLoader(t)

	dict, err := loader.LoadChoiceLabels()
	require.NoError(t, err)

	assert.Equal(t, []survey.Choice{{Code: "1", Label: "Fever"}, {Code: "2", Label: "Cough"}}, dict["sickness"])
	labels, ok := dict.Lookup("ADM3Code")
	require.True(t, ok)
	assert.Equal(t, "Bulolo", labels["140102"])
}

func TestLoadSamplingFrameSkipsFooter(t *testing.T) {
	loader, _ := newFixtureLoader(t)

	frame, err := loader.LoadSamplingFrame()
	require.NoError(t, err)

	assert.Equal(t, []survey.FrameUnit{
		{Name: "Wau Rural", Code: "140101", Key: 140101, Target: 5},
		{Name: "Bulolo", Code: "140102", Key: 140102, Target: 1},
		{Name: "Markham", Code: "140103", Key: 140103, Target: 3},
	}, frame)
}

func TestLoadRejectsMissingColumns(t *testing.T) {
	_, paths := newFixtureLoader(t)
	require.NoError(t, testkit.WriteWorkbook(paths.LabelsFile, paths.LabelsSheet, [][]string{
		{"list_name", "name"},
		{"sickness", "1"},
	}))
	loader := NewReferenceLoader(paths, config.DefaultSurveyProfile(), internal.Discard())

	_, err := loader.LoadChoiceLabels()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
	assert.Contains(t, err.Error(), "label")
}

func TestReadCSVReferences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.csv")
	require.NoError(t, os.WriteFile(path, []byte("LLG ,GEOCODE,Target_sample\n Wau Rural ,140101, 5\n,,\n"), 0644))

	paths := config.PathConfig{SamplingFrameFile: path}
	frame, err := NewReferenceLoader(paths, config.DefaultSurveyProfile(), internal.Discard()).LoadSamplingFrame()
	require.NoError(t, err)
	require.Len(t, frame, 1)
	assert.Equal(t, "Wau Rural", frame[0].Name)
	assert.Equal(t, int64(5), frame[0].Target)
}

func TestCSVRoundTrip(t *testing.T) {
	table := survey.NewTable("RESPId", "CMFood", "note")
	table.Append(survey.Row{"RESPId": "1", "CMFood": "1 2", "note": `said "no", twice`})
	table.Append(survey.Row{"RESPId": "2", "CMFood": " 3 ", "note": "trailing "})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	assert.True(t, strings.HasPrefix(buf.String(), "RESPId,CMFood,note\n"))

	read, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, table.Records(), read.Records())
}

func TestWriteCSVFileReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "table.csv")
	table := survey.NewTable("a")
	table.Append(survey.Row{"a": "1"})

	require.NoError(t, WriteCSVFile(path, table))
	require.NoError(t, WriteCSVFile(path, table))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
