package excel

import (
	"fmt"
	"strings"

	"mvam/adapters/datareadiness/coercer"
	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/config"
	"mvam/internal/errors"
)

// ReferenceLoader reads the static reference workbooks of a survey round
type ReferenceLoader struct {
	paths   config.PathConfig
	profile config.SurveyProfile
	log     *internal.Logger
}

// NewReferenceLoader creates a loader for the configured reference files
func NewReferenceLoader(paths config.PathConfig, profile config.SurveyProfile, log *internal.Logger) *ReferenceLoader {
	return &ReferenceLoader{paths: paths, profile: profile, log: log}
}

func (l *ReferenceLoader) read(path, sheet string) (*ExcelData, error) {
	data, err := NewReaderFromConfig(ExcelConfig{FilePath: path, Sheet: sheet}).Trimmed().WithLogger(l.log).ReadData()
	if err != nil {
		return nil, errors.Wrapf(errors.InvalidInput(err.Error()), "failed to read %s", path)
	}
	return data, nil
}

func requireColumns(data *ExcelData, path string, columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !data.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.InvalidInput(fmt.Sprintf("%s is missing columns %s", path, strings.Join(missing, ", ")))
	}
	return nil
}

// LoadSchema returns the ordered target columns. The first SkipRows entries
// of the schema column describe the table rather than name a column.
func (l *ReferenceLoader) LoadSchema() (survey.Schema, error) {
	path := l.paths.SchemaFile
	data, err := l.read(path, l.paths.SchemaSheet)
	if err != nil {
		return nil, err
	}
	layout := l.profile.Schema
	if err := requireColumns(data, path, layout.Column); err != nil {
		return nil, err
	}

	var schema survey.Schema
	for i, value := range data.Values(layout.Column) {
		if i < layout.SkipRows {
			continue
		}
		if value == "" {
			continue
		}
		schema = append(schema, value)
	}
	if len(schema) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s lists no target columns", path))
	}

	l.log.Info("Loaded target schema with %d columns", len(schema))
	return schema, nil
}

// LoadChoiceLabels builds the label dictionary from the choices sheet
func (l *ReferenceLoader) LoadChoiceLabels() (survey.LabelDictionary, error) {
	path := l.paths.LabelsFile
	data, err := l.read(path, l.paths.LabelsSheet)
	if err != nil {
		return nil, err
	}
	layout := l.profile.Labels
	if err := requireColumns(data, path, layout.ListColumn, layout.CodeColumn, layout.LabelColumn); err != nil {
		return nil, err
	}

	dict := make(survey.LabelDictionary)
	for _, row := range data.Rows {
		listName := row[layout.ListColumn]
		if listName == "" {
			continue
		}
		dict[listName] = append(dict[listName], survey.Choice{
			Code:  row[layout.CodeColumn],
			Label: row[layout.LabelColumn],
		})
	}

	l.log.Info("Loaded %d choice lists", len(dict))
	return dict, nil
}

// LoadSamplingFrame returns the geographic units with their targets. Rows
// whose code or target is not an integer (totals, notes) are skipped.
func (l *ReferenceLoader) LoadSamplingFrame() ([]survey.FrameUnit, error) {
	path := l.paths.SamplingFrameFile
	data, err := l.read(path, l.paths.SamplingFrameSheet)
	if err != nil {
		return nil, err
	}
	layout := l.profile.SamplingFrame
	required := []string{layout.CodeColumn, layout.TargetColumn}
	if layout.UnitColumn != "" {
		required = append(required, layout.UnitColumn)
	}
	if err := requireColumns(data, path, required...); err != nil {
		return nil, err
	}

	var units []survey.FrameUnit
	for i, row := range data.Rows {
		key, okKey := coercer.Default.Integer(row[layout.CodeColumn])
		target, okTarget := coercer.Default.Integer(row[layout.TargetColumn])
		if !okKey || !okTarget {
			l.log.Info("Skipping sampling frame row %d (%s=%q, %s=%q): not a data row",
				i+2, layout.CodeColumn, row[layout.CodeColumn], layout.TargetColumn, row[layout.TargetColumn])
			continue
		}
		units = append(units, survey.FrameUnit{
			Name:   row[layout.UnitColumn],
			Code:   row[layout.CodeColumn],
			Key:    key,
			Target: target,
		})
	}

	l.log.Info("Loaded sampling frame with %d units", len(units))
	return units, nil
}
