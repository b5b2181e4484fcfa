package ports

import (
	"context"

	"mvam/domain/survey"
)

// SurveySource downloads the raw responses of a survey round
type SurveySource interface {
	FetchResponses(ctx context.Context, surveyName string) (*survey.Table, error)
}

// ReferenceSource reads the static reference inputs of a survey round
type ReferenceSource interface {
	LoadSchema() (survey.Schema, error)
	LoadChoiceLabels() (survey.LabelDictionary, error)
	LoadSamplingFrame() ([]survey.FrameUnit, error)
}

// TableExporter loads a finished table into an external store
type TableExporter interface {
	Export(ctx context.Context, tableName string, data *survey.Table) (int, error)
}
