package api

import (
	"time"

	"mvam/domain/survey"
)

// Form is one survey instrument listed by the forms endpoint
type Form struct {
	FormID int64  `json:"formid"`
	Title  string `json:"title"`
}

// APIData represents the fetched responses of one form
type APIData struct {
	Form     Form          `json:"form"`
	Table    *survey.Table `json:"-"`
	Metadata APIMetadata   `json:"metadata"`
}

// APIMetadata contains information about the API fetch
type APIMetadata struct {
	URL          string        `json:"url"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
	FetchedAt    time.Time     `json:"fetched_at"`
	RecordsCount int           `json:"records_count"`
	ContentType  string        `json:"content_type"`
}

// IndexColumn replaces the empty key some exports put in front of each record
const IndexColumn = survey.IndexColumn
