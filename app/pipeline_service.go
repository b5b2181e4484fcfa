package app

import (
	"context"
	"fmt"
	"time"

	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/config"
	"mvam/internal/dataset"
	"mvam/internal/errors"
	"mvam/internal/normalize"
	"mvam/internal/report"
	"mvam/ports"

	"github.com/google/uuid"
)

// PipelineService runs the survey stages in order and stores each artifact
type PipelineService struct {
	config   *config.Config
	source   ports.SurveySource
	refs     ports.ReferenceSource
	store    *dataset.LocalFileStorage
	exporter ports.TableExporter
	log      *internal.Logger

	references *references
}

// references are read once per service and shared by the stages
type references struct {
	schema survey.Schema
	labels survey.LabelDictionary
	frame  []survey.FrameUnit
}

// RunResult summarizes one full pipeline run
type RunResult struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Artifacts []string // paths in the order they were written
	Clean     dataset.CleanStats
	Normalize *normalize.Result
	Exported  int
}

// NewPipelineService creates a pipeline service
func NewPipelineService(cfg *config.Config, source ports.SurveySource, refs ports.ReferenceSource, store *dataset.LocalFileStorage, log *internal.Logger) *PipelineService {
	return &PipelineService{
		config: cfg,
		source: source,
		refs:   refs,
		store:  store,
		log:    log,
	}
}

// WithExporter enables loading the normalized table into a database
func (s *PipelineService) WithExporter(exporter ports.TableExporter) *PipelineService {
	s.exporter = exporter
	return s
}

// LoadReferences reads the schema, label dictionary and sampling frame.
// Missing or malformed reference files are configuration errors.
func (s *PipelineService) LoadReferences() error {
	if s.references != nil {
		return nil
	}
	if err := s.config.CheckReferenceFiles(); err != nil {
		return err
	}

	schema, err := s.refs.LoadSchema()
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	labels, err := s.refs.LoadChoiceLabels()
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	frame, err := s.refs.LoadSamplingFrame()
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}

	s.references = &references{schema: schema, labels: labels, frame: frame}
	return nil
}

// Load reads a previously written table artifact. A missing artifact means
// the stage producing it has not run yet and is reported as NOT_FOUND.
func (s *PipelineService) Load(ctx context.Context, artifact dataset.Artifact) (*survey.Table, error) {
	exists, err := s.store.Exists(ctx, artifact, "csv")
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFound(fmt.Sprintf("artifact %s (%s)", artifact, s.store.Path(artifact, "csv")))
	}
	return s.store.LoadTable(ctx, artifact)
}

// Fetch downloads the survey responses and stores them as the raw artifact
func (s *PipelineService) Fetch(ctx context.Context) (*survey.Table, error) {
	s.log.Info("Downloading %s", s.config.Kobo.SurveyName)
	raw, err := s.source.FetchResponses(ctx, s.config.Kobo.SurveyName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", s.config.Kobo.SurveyName)
	}
	if _, err := s.storeTable(ctx, dataset.ArtifactRaw, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Clean filters and deduplicates raw responses and stores the clean,
// duplicates and enumerator artifacts
func (s *PipelineService) Clean(ctx context.Context, raw *survey.Table) (*dataset.CleanResult, error) {
	s.log.Info("Cleaning %d raw responses", raw.Len())
	result := dataset.NewCleaner(s.config.Survey, s.log).Clean(raw)

	outputs := []struct {
		artifact dataset.Artifact
		table    *survey.Table
	}{
		{dataset.ArtifactClean, result.Clean},
		{dataset.ArtifactDuplicates, result.Duplicates},
		{dataset.ArtifactEnumerators, result.Enumerators},
	}
	for _, out := range outputs {
		if _, err := s.storeTable(ctx, out.artifact, out.table); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Targets compares completed responses per area with the sampling frame
func (s *PipelineService) Targets(ctx context.Context, clean *survey.Table) (*survey.Table, error) {
	if err := s.LoadReferences(); err != nil {
		return nil, err
	}
	targets := dataset.NewTargetAggregator(s.config.Survey, s.log).Aggregate(clean, s.references.frame)
	if _, err := s.storeTable(ctx, dataset.ArtifactTargets, targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// Normalize reshapes the clean table into the target schema
func (s *PipelineService) Normalize(ctx context.Context, clean *survey.Table) (*normalize.Result, error) {
	if err := s.LoadReferences(); err != nil {
		return nil, err
	}
	n := normalize.NewNormalizer(s.config.Survey, s.references.labels, s.config.Normalize.LabelErrors, s.log)
	result, err := n.Normalize(clean, s.references.schema)
	if err != nil {
		return nil, err
	}
	if _, err := s.storeTable(ctx, dataset.ArtifactNormalized, result.Table); err != nil {
		return nil, err
	}
	return result, nil
}

// Review writes the Markdown and HTML review of a run
func (s *PipelineService) Review(ctx context.Context, review report.Review) ([]string, error) {
	if review.Survey == "" {
		review.Survey = s.config.Kobo.SurveyName
	}
	mdPath, err := s.store.StoreBytes(ctx, dataset.ArtifactReview, "md", review.Markdown())
	if err != nil {
		return nil, err
	}
	htmlPath, err := s.store.StoreBytes(ctx, dataset.ArtifactReview, "html", review.HTML())
	if err != nil {
		return nil, err
	}
	s.log.Info("Review written to %s", mdPath)
	return []string{mdPath, htmlPath}, nil
}

// Export loads the normalized table into the configured database table
func (s *PipelineService) Export(ctx context.Context, normalized *survey.Table) (int, error) {
	if s.exporter == nil {
		return 0, errors.ConfigInvalid("DATABASE_URL is required for export")
	}
	return s.exporter.Export(ctx, s.config.Database.Table, normalized)
}

// Run executes every stage. Reference files are checked before anything is
// downloaded or written, and every artifact is recomputed from the raw
// download.
func (s *PipelineService) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{RunID: uuid.New(), StartedAt: time.Now()}
	s.log.Info("Run %s started for %s", result.RunID, s.config.Kobo.SurveyName)

	if err := s.LoadReferences(); err != nil {
		return nil, err
	}

	before := s.store.Written()

	raw, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	cleaned, err := s.Clean(ctx, raw)
	if err != nil {
		return nil, err
	}
	result.Clean = cleaned.Stats

	targets, err := s.Targets(ctx, cleaned.Clean)
	if err != nil {
		return nil, err
	}

	normalized, err := s.Normalize(ctx, cleaned.Clean)
	if err != nil {
		return nil, err
	}
	result.Normalize = normalized

	if _, err := s.Review(ctx, report.Review{
		Survey:    s.config.Kobo.SurveyName,
		Clean:     &cleaned.Stats,
		Normalize: normalized,
		Targets:   targets,
	}); err != nil {
		return nil, err
	}

	if s.exporter != nil {
		exported, err := s.Export(ctx, normalized.Table)
		if err != nil {
			return nil, err
		}
		result.Exported = exported
	}

	result.Artifacts = s.store.Written()[len(before):]
	result.Duration = time.Since(result.StartedAt)
	s.log.Info("Run %s finished in %s: %d artifacts written", result.RunID, result.Duration.Round(time.Millisecond), len(result.Artifacts))
	return result, nil
}

func (s *PipelineService) storeTable(ctx context.Context, artifact dataset.Artifact, table *survey.Table) (string, error) {
	path, err := s.store.StoreTable(ctx, artifact, table)
	if err != nil {
		return "", errors.Wrap(err, fmt.Sprintf("failed to write %s", artifact))
	}
	s.log.Info("Saved %s (%d rows)", path, table.Len())
	return path, nil
}
