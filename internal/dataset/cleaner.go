package dataset

import (
	"sort"
	"strconv"

	"mvam/adapters/datareadiness/coercer"
	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/config"

	"github.com/montanaflynn/stats"
)

// DuplicatePolicy defines how repeated respondents are collapsed
type DuplicatePolicy string

const (
	KeepFirst DuplicatePolicy = "keep_first" // earliest submission by end time
	KeepLast  DuplicatePolicy = "keep_last"  // latest submission by end time
)

const (
	// CountColumn heads the duplicates report
	CountColumn = "Count"
	// CompletedColumn heads the enumerator summary and the targets table
	CompletedColumn = "Completed"
	// TotalLabel names the summary row of the enumerator table
	TotalLabel = "Total"
)

// Cleaner filters, deduplicates and trims raw survey responses
type Cleaner struct {
	profile config.SurveyProfile
	policy  DuplicatePolicy
	coerce  *coercer.TypeCoercer
	log     *internal.Logger
}

// NewCleaner creates a cleaner for the survey profile. The profile's
// duplicates setting picks the policy; unset means KeepFirst.
func NewCleaner(profile config.SurveyProfile, log *internal.Logger) *Cleaner {
	policy := DuplicatePolicy(profile.Duplicates)
	if policy == "" {
		policy = KeepFirst
	}
	return &Cleaner{
		profile: profile,
		policy:  policy,
		coerce:  coercer.Default,
		log:     log,
	}
}

// CleanResult holds every table the cleaning stage produces
type CleanResult struct {
	Valid       *survey.Table // consented, complete, one row per respondent
	Duplicates  *survey.Table
	Enumerators *survey.Table
	Clean       *survey.Table // Valid without the unwanted columns
	Stats       CleanStats
}

// CleanStats counts what the stage kept and dropped
type CleanStats struct {
	RawRows          int
	ValidRows        int
	DuplicateIDs     int
	DuplicateRows    int
	RetainedRows     int
	DroppedColumns   []string
	NonNumericRows   int
	EnumeratorsCount int
}

// Clean runs the validity filter, duplicates report, deduplication,
// enumerator summary and column cleaning in that order.
func (c *Cleaner) Clean(raw *survey.Table) *CleanResult {
	result := &CleanResult{}
	result.Stats.RawRows = raw.Len()

	valid, nonNumeric := c.FilterValid(raw)
	result.Stats.ValidRows = valid.Len()
	result.Stats.NonNumericRows = nonNumeric

	result.Duplicates = c.DuplicateReport(valid)
	result.Stats.DuplicateIDs = result.Duplicates.Len()

	result.Valid = c.Deduplicate(valid)
	result.Stats.DuplicateRows = valid.Len() - result.Valid.Len()
	result.Stats.RetainedRows = result.Valid.Len()

	result.Enumerators = c.EnumeratorSummary(result.Valid)
	result.Stats.EnumeratorsCount = result.Enumerators.Len() - 1

	result.Clean, result.Stats.DroppedColumns = c.CleanColumns(result.Valid)

	c.log.Info("Cleaning kept %d of %d responses (%d duplicate submissions over %d respondents removed)",
		result.Stats.RetainedRows, result.Stats.RawRows, result.Stats.DuplicateRows, result.Stats.DuplicateIDs)
	return result
}

// FilterValid keeps responses whose consent code is below the configured
// bound and whose completion code equals the complete value. Cells that do
// not parse as numbers exclude the row; the count of such rows is returned.
func (c *Cleaner) FilterValid(raw *survey.Table) (*survey.Table, int) {
	consentCol := survey.ResolveColumn(raw, c.profile.Columns.Consent, c.log)
	completeCol := survey.ResolveColumn(raw, c.profile.Columns.Complete, c.log)

	nonNumeric := 0
	valid := raw.Filter(func(row survey.Row) bool {
		consent, okConsent := c.coerce.Numeric(row[consentCol])
		complete, okComplete := c.coerce.Numeric(row[completeCol])
		if !okConsent || !okComplete {
			nonNumeric++
			return false
		}
		return consent < c.profile.ConsentBelow && complete == c.profile.CompleteValue
	})

	if nonNumeric > 0 {
		c.log.Debug("%d responses had a non-numeric %s or %s", nonNumeric, consentCol, completeCol)
	}
	return valid, nonNumeric
}

// DuplicateReport counts respondents that submitted more than once, ordered
// by respondent id.
func (c *Cleaner) DuplicateReport(valid *survey.Table) *survey.Table {
	idCol := survey.ResolveColumn(valid, c.profile.Columns.RespondentID, c.log)

	counts := make(map[string]int)
	for _, row := range valid.Rows {
		counts[row[idCol]]++
	}

	var ids []string
	for id, n := range counts {
		if n > 1 {
			ids = append(ids, id)
		}
	}
	sortCodes(ids)

	report := survey.NewTable(c.profile.Columns.RespondentID, CountColumn)
	for _, id := range ids {
		report.Append(survey.Row{
			c.profile.Columns.RespondentID: id,
			CountColumn:                    strconv.Itoa(counts[id]),
		})
	}
	return report
}

// Deduplicate orders responses by submission end time and keeps one row per
// respondent according to the duplicate policy.
func (c *Cleaner) Deduplicate(valid *survey.Table) *survey.Table {
	idCol := survey.ResolveColumn(valid, c.profile.Columns.RespondentID, c.log)
	endCol := survey.ResolveColumn(valid, c.profile.Columns.End, c.log)

	sorted := valid.Clone()
	sorted.SortStable(func(a, b survey.Row) bool {
		return c.endsBefore(a[endCol], b[endCol])
	})

	seen := make(map[string]int)
	out := survey.NewTable(sorted.Headers...)
	for _, row := range sorted.Rows {
		id := row[idCol]
		if idx, ok := seen[id]; ok {
			if c.policy == KeepLast {
				out.Rows[idx] = row
			}
			continue
		}
		seen[id] = out.Len()
		out.Append(row)
	}
	return out
}

// endsBefore orders parseable timestamps chronologically ahead of anything
// that does not parse; two unparseable values compare as text.
func (c *Cleaner) endsBefore(a, b string) bool {
	ta, okA := c.coerce.Timestamp(a)
	tb, okB := c.coerce.Timestamp(b)
	switch {
	case okA && okB:
		return ta.Before(tb)
	case okA != okB:
		return okA
	default:
		return a < b
	}
}

// EnumeratorSummary counts completed responses per enumerator, sorted by
// name, followed by a Total row.
func (c *Cleaner) EnumeratorSummary(valid *survey.Table) *survey.Table {
	enuCol := survey.ResolveColumn(valid, c.profile.Columns.Enumerator, c.log)

	counts := make(map[string]int)
	unnamed := 0
	for _, row := range valid.Rows {
		name := row[enuCol]
		if name == "" {
			unnamed++
			continue
		}
		counts[name]++
	}
	if unnamed > 0 {
		c.log.Warn("%d responses have no enumerator name and are left out of the summary", unnamed)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	summary := survey.NewTable(c.profile.Columns.Enumerator, CompletedColumn)
	perEnumerator := make([]float64, 0, len(names))
	for _, name := range names {
		summary.Append(survey.Row{
			c.profile.Columns.Enumerator: name,
			CompletedColumn:              strconv.Itoa(counts[name]),
		})
		perEnumerator = append(perEnumerator, float64(counts[name]))
	}

	total, _ := stats.Sum(perEnumerator)
	summary.Append(survey.Row{
		c.profile.Columns.Enumerator: TotalLabel,
		CompletedColumn:              strconv.Itoa(int(total)),
	})

	if len(perEnumerator) > 0 {
		mean, _ := stats.Mean(perEnumerator)
		median, _ := stats.Median(perEnumerator)
		c.log.Info("%d enumerators completed %d surveys (mean %.1f, median %.1f)", len(names), int(total), mean, median)
	}
	return summary
}

// CleanColumns drops the profile's unwanted columns from a copy of the table.
// Columns that cannot be resolved are skipped.
func (c *Cleaner) CleanColumns(table *survey.Table) (*survey.Table, []string) {
	out := table.Clone()
	var targets []string
	for _, logical := range c.profile.UnwantedColumns {
		match := out.MatchColumn(logical)
		if !match.Resolved() {
			c.log.Debug("Unwanted column %s not present (%s), nothing to drop", logical, match.Status)
			continue
		}
		targets = append(targets, match.Column)
	}
	return out, out.DropColumns(targets...)
}

// sortCodes orders identifiers numerically when both parse as integers and
// as text otherwise.
func sortCodes(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, okA := coercer.Default.Integer(ids[i])
		b, okB := coercer.Default.Integer(ids[j])
		if okA && okB {
			if a != b {
				return a < b
			}
			return ids[i] < ids[j]
		}
		if okA != okB {
			return okA
		}
		return ids[i] < ids[j]
	})
}
