package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mvam/adapters/excel"
	"mvam/domain/survey"
)

// Artifact names one file the pipeline produces
type Artifact string

const (
	ArtifactRaw         Artifact = "raw_data"
	ArtifactClean       Artifact = "clean_data"
	ArtifactEnumerators Artifact = "survey_by_enumerator"
	ArtifactDuplicates  Artifact = "duplicates"
	ArtifactTargets     Artifact = "survey_targets"
	ArtifactNormalized  Artifact = "normalized_data"
	ArtifactReview      Artifact = "review"
)

// StorageConfig holds where artifacts go and how they are named
type StorageConfig struct {
	BasePath string // data directory
	Prefix   string // survey round prefix, e.g. png_round6
}

// LocalFileStorage writes pipeline artifacts to the data directory as
// <prefix>_<artifact>.<ext>
type LocalFileStorage struct {
	config  *StorageConfig
	written []string
}

// NewLocalFileStorage creates a new local file storage instance
func NewLocalFileStorage(config *StorageConfig) *LocalFileStorage {
	return &LocalFileStorage{config: config}
}

// Path returns where an artifact with the given extension lives
func (s *LocalFileStorage) Path(artifact Artifact, ext string) string {
	name := string(artifact) + "." + ext
	if s.config.Prefix != "" {
		name = s.config.Prefix + "_" + name
	}
	return filepath.Join(s.config.BasePath, name)
}

// StoreTable writes a table artifact as CSV and returns its path
func (s *LocalFileStorage) StoreTable(ctx context.Context, artifact Artifact, table *survey.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.Path(artifact, "csv")
	if err := excel.WriteCSVFile(path, table); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", artifact, err)
	}
	s.written = append(s.written, path)
	return path, nil
}

// Written lists the paths stored so far, oldest first
func (s *LocalFileStorage) Written() []string {
	return append([]string(nil), s.written...)
}

// LoadTable reads a previously stored table artifact
func (s *LocalFileStorage) LoadTable(ctx context.Context, artifact Artifact) (*survey.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(artifact, "csv")
	table, err := excel.NewDataReader(path).ReadData()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", artifact, err)
	}
	return table, nil
}

// StoreBytes writes a non-tabular artifact such as the review report
func (s *LocalFileStorage) StoreBytes(ctx context.Context, artifact Artifact, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.config.BasePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}
	path := s.Path(artifact, ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", artifact, err)
	}
	s.written = append(s.written, path)
	return path, nil
}

// Exists checks if an artifact is present
func (s *LocalFileStorage) Exists(ctx context.Context, artifact Artifact, ext string) (bool, error) {
	_, err := os.Stat(s.Path(artifact, ext))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check artifact existence: %w", err)
	}
	return true, nil
}
