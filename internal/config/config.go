package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mvam/internal/errors"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Kobo      KoboConfig
	Paths     PathConfig
	Normalize NormalizeConfig
	Database  DatabaseConfig
	Survey    SurveyProfile
	LogLevel  string
}

// KoboConfig holds forms API settings
type KoboConfig struct {
	Token      string `validate:"required"`
	BaseURL    string
	AuthScheme string
	SurveyName string
	Timeout    time.Duration
}

// PathConfig holds file system paths for artifacts and reference inputs
type PathConfig struct {
	DataDir            string
	ArtifactPrefix     string
	SchemaFile         string
	SchemaSheet        string
	LabelsFile         string
	LabelsSheet        string
	SamplingFrameFile  string
	SamplingFrameSheet string
	ProfileFile        string
}

// LabelErrorPolicy decides what a failed label column does to the run
type LabelErrorPolicy string

const (
	LabelErrorsWarn LabelErrorPolicy = "warn" // log, leave the column empty, keep going
	LabelErrorsFail LabelErrorPolicy = "fail" // abort on the first failed column
)

// NormalizeConfig holds schema normalizer settings
type NormalizeConfig struct {
	LabelErrors LabelErrorPolicy
}

// DatabaseConfig holds the optional SQL export target
type DatabaseConfig struct {
	URL   string
	Table string
}

// Enabled reports whether a database export was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// Load reads configuration from environment variables and validates it.
// The forms API token is required.
func Load() (*Config, error) {
	config, err := LoadLocal()
	if err != nil {
		return nil, err
	}
	if config.Kobo.Token == "" {
		return nil, errors.ConfigInvalid("TOKEN is required")
	}
	return config, nil
}

// LoadLocal reads configuration for stages that never touch the forms API
func LoadLocal() (*Config, error) {
	config := &Config{
		Kobo:      *loadKoboConfig(),
		Paths:     *loadPathConfig(),
		Normalize: *loadNormalizeConfig(),
		Database:  *loadDatabaseConfig(),
		Survey:    DefaultSurveyProfile(),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	timeout, err := getEnvDuration("HTTP_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to load forms API configuration")
	}
	config.Kobo.Timeout = timeout

	if config.Paths.ProfileFile != "" {
		profile, err := LoadSurveyProfile(config.Paths.ProfileFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load survey profile")
		}
		config.Survey = *profile
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadKoboConfig() *KoboConfig {
	return &KoboConfig{
		Token:      os.Getenv("TOKEN"),
		BaseURL:    strings.TrimRight(getEnvOrDefault("KOBO_BASE_URL", "https://kc.humanitarianresponse.info"), "/"),
		AuthScheme: getEnvOrDefault("KOBO_AUTH_SCHEME", "Token"),
		SurveyName: getEnvOrDefault("SURVEY_NAME", "PNG mVAM Round 6 (April 2019)"),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		DataDir:            getEnvOrDefault("DATA_DIR", "./data"),
		ArtifactPrefix:     getEnvOrDefault("ARTIFACT_PREFIX", "png_round6"),
		SchemaFile:         getEnvOrDefault("SCHEMA_FILE", "./resources/sql_tables_structure.xlsx"),
		SchemaSheet:        getEnvOrDefault("SCHEMA_SHEET", "Sheet1"),
		LabelsFile:         getEnvOrDefault("LABELS_FILE", "./resources/kobo_form_structure.xlsx"),
		LabelsSheet:        getEnvOrDefault("LABELS_SHEET", "choices"),
		SamplingFrameFile:  getEnvOrDefault("SAMPLING_FRAME_FILE", "./data/Sampling frame_UNWFP May 2019_GeoCode.xlsx"),
		SamplingFrameSheet: getEnvOrDefault("SAMPLING_FRAME_SHEET", "Master Sheet"),
		ProfileFile:        os.Getenv("SURVEY_PROFILE"),
	}
}

func loadNormalizeConfig() *NormalizeConfig {
	return &NormalizeConfig{
		LabelErrors: LabelErrorPolicy(strings.ToLower(getEnvOrDefault("LABEL_ERRORS", string(LabelErrorsWarn)))),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:   os.Getenv("DATABASE_URL"),
		Table: getEnvOrDefault("EXPORT_TABLE", "mvam_clean"),
	}
}

func validateConfig(config *Config) error {
	if config.Paths.DataDir == "" {
		return errors.ConfigInvalid("data directory is required")
	}
	if config.Paths.ArtifactPrefix == "" {
		return errors.ConfigInvalid("artifact prefix is required")
	}
	switch config.Normalize.LabelErrors {
	case LabelErrorsWarn, LabelErrorsFail:
	default:
		return errors.ConfigInvalid(fmt.Sprintf("LABEL_ERRORS must be %q or %q, got %q",
			LabelErrorsWarn, LabelErrorsFail, config.Normalize.LabelErrors))
	}
	return config.Survey.Validate()
}

// CheckReferenceFiles fails when any static reference input is missing
func (c *Config) CheckReferenceFiles() error {
	files := []struct{ key, path string }{
		{"SCHEMA_FILE", c.Paths.SchemaFile},
		{"LABELS_FILE", c.Paths.LabelsFile},
		{"SAMPLING_FRAME_FILE", c.Paths.SamplingFrameFile},
	}
	for _, f := range files {
		key, path := f.key, f.path
		if path == "" {
			return errors.ConfigInvalid(key + " is required")
		}
		if _, err := os.Stat(path); err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("%s %s is not readable: %v", key, path, err))
		}
	}
	return nil
}

// LoadSurveyProfile reads a YAML survey profile on top of the built-in
// defaults. Scalars and lists override the default field; a map present in
// the file replaces the default map instead of adding to it.
func LoadSurveyProfile(path string) (*SurveyProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("cannot read survey profile %s: %v", path, err))
	}

	var present map[string]yaml.Node
	if err := yaml.Unmarshal(data, &present); err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("invalid survey profile %s: %v", path, err))
	}

	profile := DefaultSurveyProfile()
	if _, ok := present["multiple_choice"]; ok {
		profile.MultipleChoice = map[string]MultipleChoice{}
	}
	if _, ok := present["label_suffixes"]; ok {
		profile.LabelSuffixes = map[string]string{}
	}
	if _, ok := present["admin_code_widths"]; ok {
		profile.AdminCodeWidths = map[string]int{}
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("invalid survey profile %s: %v", path, err))
	}
	return &profile, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, value)
	}
	return duration, nil
}
