// Package normalize reshapes cleaned survey responses into the target table
// layout, expanding multi-select answers and resolving coded values to labels.
package normalize

import (
	"fmt"

	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/config"
	"mvam/internal/errors"
)

// Normalizer maps cleaned responses onto a target schema
type Normalizer struct {
	profile config.SurveyProfile
	labels  survey.LabelDictionary
	policy  config.LabelErrorPolicy
	log     *internal.Logger
}

// NewNormalizer creates a normalizer over a loaded choice label dictionary
func NewNormalizer(profile config.SurveyProfile, labels survey.LabelDictionary, policy config.LabelErrorPolicy, log *internal.Logger) *Normalizer {
	if policy == "" {
		policy = config.LabelErrorsWarn
	}
	return &Normalizer{
		profile: profile,
		labels:  labels,
		policy:  policy,
		log:     log,
	}
}

// Result is the normalized table together with what happened to each column
type Result struct {
	Table        *survey.Table
	Outcomes     []ColumnOutcome // one per schema column, in schema order
	Unclassified []string
	Failed       []string
	Extra        []string // expanded columns the schema does not list
	Collisions   []string // expanded names claimed by two choices, left empty
}

// Normalize prepares the cleaned table and fills every schema column with
// the first classifier that accepts it. Columns no classifier accepts are
// left empty and listed as unclassified. Label failures are logged and the
// column left empty, unless the policy is fail, in which case the first one
// aborts with a LOOKUP_FAILED error.
func (n *Normalizer) Normalize(clean *survey.Table, schema survey.Schema) (*Result, error) {
	source := n.Prepare(clean)

	out := survey.NewTable(schema...)
	out.Rows = make([]survey.Row, source.Len())
	for i := range out.Rows {
		out.Rows[i] = make(survey.Row, len(schema))
	}

	s := &state{
		n:          n,
		source:     source,
		schema:     schema,
		out:        out,
		expanded:   make(map[string]bool),
		owners:     make(map[string]string),
		collisions: make(map[string]string),
	}
	result := &Result{Table: out}

	for idx, column := range schema {
		outcome := s.classify(idx)
		result.Outcomes = append(result.Outcomes, outcome)

		switch {
		case outcome.Rule == RuleUnclassified:
			n.log.Debug("%s does not fit a category", column)
			result.Unclassified = append(result.Unclassified, column)
		case outcome.Status == StatusFailed:
			if n.policy == config.LabelErrorsFail {
				return nil, errors.LookupFailed(fmt.Sprintf("column %s: %s", column, outcome.FailureReason))
			}
			n.log.Warn("Column %s left empty: %s", column, outcome.FailureReason)
			result.Failed = append(result.Failed, column)
		default:
			if fallbacks := outcome.Fallbacks(); fallbacks > 0 {
				n.log.Debug("%s: %d rows resolved to %q", column, fallbacks, MultipleValues)
			}
		}
	}
	result.Extra = s.extra
	for _, o := range result.Outcomes {
		for _, name := range o.Collisions {
			if !contains(result.Collisions, name) {
				result.Collisions = append(result.Collisions, name)
			}
		}
	}

	if len(result.Extra) > 0 {
		n.log.Info("%d expanded columns are not in the schema and were not written", len(result.Extra))
	}
	if len(result.Unclassified) > 0 {
		n.log.Warn("%d schema columns need manual review: %v", len(result.Unclassified), result.Unclassified)
	}
	n.log.Info("Normalized %d responses into %d columns (%d failed, %d unclassified)",
		out.Len(), len(schema), len(result.Failed), len(result.Unclassified))
	return result, nil
}

func (s *state) classify(idx int) ColumnOutcome {
	for _, c := range classifiers {
		if c.match(s, idx) {
			return c.apply(s, idx)
		}
	}
	return ColumnOutcome{Column: s.column(idx), Rule: RuleUnclassified, Status: StatusOK}
}
