package dataset

import (
	"sort"
	"strconv"

	"mvam/adapters/datareadiness/coercer"
	"mvam/domain/survey"
	"mvam/internal"
	"mvam/internal/config"
)

// RemainingColumn heads the outstanding-interviews column of the targets table
const RemainingColumn = "Remaining"

// TargetAggregator compares completed responses with the sampling frame
type TargetAggregator struct {
	profile config.SurveyProfile
	log     *internal.Logger
}

// NewTargetAggregator creates an aggregator for the survey profile
func NewTargetAggregator(profile config.SurveyProfile, log *internal.Logger) *TargetAggregator {
	return &TargetAggregator{profile: profile, log: log}
}

// CountByArea counts responses per integer admin-area code. Rows whose code
// is not an integer are counted separately.
func (a *TargetAggregator) CountByArea(clean *survey.Table) (map[int64]int, int) {
	adminCol := survey.ResolveColumn(clean, a.profile.Columns.AdminArea, a.log)

	counts := make(map[int64]int)
	invalid := 0
	for _, row := range clean.Rows {
		code, ok := coercer.Default.Integer(row[adminCol])
		if !ok {
			invalid++
			continue
		}
		counts[code]++
	}
	return counts, invalid
}

// Aggregate left-joins the sampling frame with completed counts. Every frame
// unit appears once in frame order; Remaining never drops below zero.
func (a *TargetAggregator) Aggregate(clean *survey.Table, frame []survey.FrameUnit) *survey.Table {
	counts, invalid := a.CountByArea(clean)
	if invalid > 0 {
		a.log.Warn("%d responses have no usable %s and are not counted against any target", invalid, a.profile.Columns.AdminArea)
	}

	layout := a.profile.SamplingFrame
	unitColumn := layout.UnitColumn
	if unitColumn == "" {
		unitColumn = "LLG"
	}
	out := survey.NewTable(unitColumn, layout.CodeColumn, layout.TargetColumn, CompletedColumn, RemainingColumn)

	matched := make(map[int64]bool, len(frame))
	for _, unit := range frame {
		completed := counts[unit.Key]
		matched[unit.Key] = true

		remaining := unit.Target - int64(completed)
		if remaining < 0 {
			remaining = 0
		}

		out.Append(survey.Row{
			unitColumn:          unit.Name,
			layout.CodeColumn:   unit.Code,
			layout.TargetColumn: strconv.FormatInt(unit.Target, 10),
			CompletedColumn:     strconv.Itoa(completed),
			RemainingColumn:     strconv.FormatInt(remaining, 10),
		})
	}

	var unmatched []int64
	for code := range counts {
		if !matched[code] {
			unmatched = append(unmatched, code)
		}
	}
	sort.Slice(unmatched, func(i, j int) bool { return unmatched[i] < unmatched[j] })
	for _, code := range unmatched {
		a.log.Warn("%d responses carry %s %d which is not in the sampling frame", counts[code], a.profile.Columns.AdminArea, code)
	}
	return out
}
