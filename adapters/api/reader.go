package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/errors"

	"github.com/tidwall/gjson"
)

// APIReader fetches survey responses from a KoBo-style forms API. Every call
// is a single attempt; failures surface to the caller.
type APIReader struct {
	config     *APIAdapterConfig
	httpClient *http.Client
	log        *internal.Logger
}

// NewAPIReader creates a new API reader
func NewAPIReader(config *APIAdapterConfig, log *internal.Logger) *APIReader {
	return &APIReader{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		log: log,
	}
}

// ListForms returns every form visible to the token
func (r *APIReader) ListForms(ctx context.Context) ([]Form, error) {
	if err := r.config.Validate(); err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	body, _, err := r.get(ctx, r.config.BaseURL+"/api/v1/forms")
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, errors.ExternalServiceError("forms API", fmt.Errorf("forms listing is not a JSON array"))
	}

	var forms []Form
	parsed.ForEach(func(_, item gjson.Result) bool {
		forms = append(forms, Form{
			FormID: item.Get("formid").Int(),
			Title:  item.Get("title").String(),
		})
		return true
	})
	return forms, nil
}

// FindForm resolves a survey title to its form. When several forms share the
// title the last one listed wins, as the listing is ordered oldest first.
func (r *APIReader) FindForm(ctx context.Context, surveyName string) (Form, error) {
	forms, err := r.ListForms(ctx)
	if err != nil {
		return Form{}, err
	}

	var matched []Form
	for _, form := range forms {
		if form.Title == surveyName {
			matched = append(matched, form)
		}
	}
	if len(matched) == 0 {
		return Form{}, errors.NotFound(fmt.Sprintf("survey %q", surveyName))
	}
	if len(matched) > 1 {
		r.log.Warn("%d forms are titled %q, using form id %d", len(matched), surveyName, matched[len(matched)-1].FormID)
	}

	form := matched[len(matched)-1]
	r.log.Info("Matched survey %s with %s, form id %d", form.Title, surveyName, form.FormID)
	return form, nil
}

// FetchData retrieves all response records of a form as a table
func (r *APIReader) FetchData(ctx context.Context, form Form) (*APIData, error) {
	startTime := time.Now()
	url := fmt.Sprintf("%s/api/v1/data/%d", r.config.BaseURL, form.FormID)

	body, resp, err := r.get(ctx, url)
	if err != nil {
		return nil, err
	}

	table, err := RecordsToTable(body)
	if err != nil {
		return nil, errors.ExternalServiceError("forms API", err)
	}

	metadata := APIMetadata{
		URL:          url,
		StatusCode:   resp.StatusCode,
		ResponseTime: time.Since(startTime),
		FetchedAt:    startTime,
		RecordsCount: table.Len(),
		ContentType:  resp.Header.Get("Content-Type"),
	}
	r.log.Info("Fetched %d records (%d columns) for form %d in %s",
		table.Len(), len(table.Headers), form.FormID, metadata.ResponseTime.Round(time.Millisecond))

	return &APIData{Form: form, Table: table, Metadata: metadata}, nil
}

// FetchSurvey resolves the survey title and downloads its responses
func (r *APIReader) FetchSurvey(ctx context.Context, surveyName string) (*APIData, error) {
	form, err := r.FindForm(ctx, surveyName)
	if err != nil {
		return nil, err
	}
	return r.FetchData(ctx, form)
}

// FetchResponses downloads the responses of a survey as a raw table
func (r *APIReader) FetchResponses(ctx context.Context, surveyName string) (*survey.Table, error) {
	data, err := r.FetchSurvey(ctx, surveyName)
	if err != nil {
		return nil, err
	}
	return data.Table, nil
}

func (r *APIReader) get(ctx context.Context, url string) ([]byte, *http.Response, error) {
	req, err := r.buildRequest(ctx, url)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build request")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, nil, errors.ExternalServiceError("forms API", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.ExternalServiceError("forms API", fmt.Errorf("failed to read response: %w", err))
	}

	r.log.Trace("GET %s -> %d (%d bytes)", url, resp.StatusCode, len(body))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil, errors.Unauthorized(fmt.Sprintf("forms API rejected the token (status %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, nil, errors.ExternalServiceError("forms API",
			fmt.Errorf("GET %s returned status %d: %s", url, resp.StatusCode, truncate(body, 200)))
	}
	if !gjson.ValidBytes(body) {
		return nil, nil, errors.ExternalServiceError("forms API", fmt.Errorf("GET %s returned invalid JSON", url))
	}
	return body, resp, nil
}

// buildRequest creates an HTTP request with authentication
func (r *APIReader) buildRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.config.UserAgent != "" {
		req.Header.Set("User-Agent", r.config.UserAgent)
	}
	req.Header.Set("Authorization", r.config.AuthScheme+" "+r.config.AuthToken)
	return req, nil
}

// RecordsToTable flattens a JSON array of response objects. Columns appear in
// the order keys are first seen; nested values are kept as raw JSON and nulls
// become empty cells. A paginated {"results": [...]} envelope is unwrapped.
func RecordsToTable(body []byte) (*survey.Table, error) {
	records := gjson.ParseBytes(body)
	if records.IsObject() && records.Get("results").IsArray() {
		records = records.Get("results")
	}
	if !records.IsArray() {
		return nil, fmt.Errorf("response records are not a JSON array")
	}

	table := survey.NewTable()
	seen := make(map[string]bool)
	var recordErr error
	records.ForEach(func(_, record gjson.Result) bool {
		if !record.IsObject() {
			recordErr = fmt.Errorf("record %d is not a JSON object", table.Len())
			return false
		}
		row := make(survey.Row)
		record.ForEach(func(key, value gjson.Result) bool {
			column := key.String()
			if column == "" {
				column = IndexColumn
			}
			if !seen[column] {
				seen[column] = true
				table.AddColumn(column)
			}
			row[column] = cellString(value)
			return true
		})
		table.Append(row)
		return true
	})
	if recordErr != nil {
		return nil, recordErr
	}
	return table, nil
}

func cellString(value gjson.Result) string {
	switch value.Type {
	case gjson.Null:
		return ""
	case gjson.JSON:
		return value.Raw
	default:
		return value.String()
	}
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
