package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"mvam/domain/survey"
)

// Rule names the classifier that handled a target column
type Rule string

const (
	RuleDirect       Rule = "direct"
	RuleLabel        Rule = "label"
	RuleExpanded     Rule = "expanded"
	RuleAdminLabel   Rule = "admin_label"
	RuleUnclassified Rule = "unclassified"
)

// Status is the terminal state of a target column
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// ColumnOutcome records how one target column was populated
type ColumnOutcome struct {
	Column        string
	Rule          Rule
	Status        Status
	Source        string         // data column read, if any
	ListName      string         // choice list used for labels
	FailureReason string         // set when Status is failed
	Reasons       map[Reason]int // per-row label resolution tally
	Generated     int            // columns synthesized by expansion
	Collisions    []string       // expanded names two choices both produce
}

// Fallbacks counts the rows that received a placeholder label
func (o ColumnOutcome) Fallbacks() int {
	total := 0
	for reason, n := range o.Reasons {
		if reason.Fallback() {
			total += n
		}
	}
	return total
}

var adminNamePattern = regexp.MustCompile(`ADMIN(\d+)Name`)

// classifier pairs a predicate on a target column with the handler that
// fills it. Classifiers are tried in order and the first match wins.
type classifier struct {
	rule  Rule
	match func(s *state, idx int) bool
	apply func(s *state, idx int) ColumnOutcome
}

var classifiers = []classifier{
	{rule: RuleDirect, match: isDirect, apply: copyDirect},
	{rule: RuleLabel, match: isLabel, apply: resolveLabelColumn},
	{rule: RuleExpanded, match: isExpanded, apply: skipExpanded},
	{rule: RuleAdminLabel, match: isAdminLabel, apply: resolveAdminLabel},
}

// state is the per-run view the classifiers share
type state struct {
	n          *Normalizer
	source     *survey.Table
	schema     survey.Schema
	out        *survey.Table
	expanded   map[string]bool
	owners     map[string]string // expanded column -> choice that produced it
	collisions map[string]string // expanded column -> both choices claiming it
	extra      []string          // generated columns the schema does not ask for
}

func (s *state) column(idx int) string {
	return s.schema[idx]
}

func (s *state) failed(outcome ColumnOutcome, format string, args ...interface{}) ColumnOutcome {
	outcome.Status = StatusFailed
	outcome.FailureReason = fmt.Sprintf(format, args...)
	return outcome
}

func isDirect(s *state, idx int) bool {
	return s.source.HasColumn(s.column(idx))
}

func copyDirect(s *state, idx int) ColumnOutcome {
	name := s.column(idx)
	outcome := ColumnOutcome{Column: name, Rule: RuleDirect, Status: StatusOK, Source: name}
	for i, row := range s.source.Rows {
		s.out.Rows[i][name] = row[name]
	}

	if choice, ok := s.n.profile.MultipleChoice[name]; ok {
		return s.expand(outcome, choice.OutputPrefix, choice.LabelKey)
	}
	return outcome
}

// expandedColumn is one synthesized output column and the choice it belongs to
type expandedColumn struct {
	name      string
	owner     string
	code      string
	label     string
	indicator bool
}

// expand writes an indicator and a constant label column for every choice of
// labelKey, reading the already copied multi-select values. A synthesized
// name claimed by two different choices is written by neither and recorded
// as a collision.
func (s *state) expand(outcome ColumnOutcome, prefix, labelKey string) ColumnOutcome {
	outcome.ListName = labelKey
	choices, ok := s.n.labels[labelKey]
	if !ok {
		return s.failed(outcome, "choice list %s not found, multiple choice column not expanded", labelKey)
	}

	s.n.log.Debug("Expanding multiple choice column %s into %s<code>", outcome.Column, prefix)
	columns := make([]expandedColumn, 0, 2*len(choices))
	for _, choice := range choices {
		indicator := prefix + choice.Code
		columns = append(columns,
			expandedColumn{name: indicator, owner: fmt.Sprintf("%s indicator for code %s", outcome.Column, choice.Code), code: choice.Code, indicator: true},
			expandedColumn{name: indicator + "2", owner: fmt.Sprintf("%s label for code %s", outcome.Column, choice.Code), label: choice.Label},
		)
	}
	for _, col := range columns {
		s.claim(col.name, col.owner)
	}

	for _, col := range columns {
		if _, collided := s.collisions[col.name]; collided {
			continue
		}
		if !s.expanded[col.name] {
			outcome.Generated++
		}
		for i, row := range s.out.Rows {
			switch {
			case !col.indicator:
				s.out.Rows[i][col.name] = col.label
			case strings.Contains(row[outcome.Column], col.code):
				s.out.Rows[i][col.name] = "True"
			default:
				s.out.Rows[i][col.name] = "False"
			}
		}
		s.markExpanded(col.name)
	}

	for _, col := range columns {
		if _, collided := s.collisions[col.name]; collided && !contains(outcome.Collisions, col.name) {
			outcome.Collisions = append(outcome.Collisions, col.name)
		}
	}
	return outcome
}

// claim registers owner as the producer of an expanded column name. A second
// owner turns the name into a collision and blanks anything already written.
func (s *state) claim(name, owner string) {
	if _, collided := s.collisions[name]; collided {
		return
	}
	previous, taken := s.owners[name]
	if !taken {
		s.owners[name] = owner
		return
	}
	if previous == owner {
		return
	}

	s.collisions[name] = previous + " and " + owner
	s.n.log.Warn("Expanded column %s is produced by both %s; left empty", name, s.collisions[name])
	for i := range s.out.Rows {
		delete(s.out.Rows[i], name)
	}
	delete(s.expanded, name)
	s.extra = remove(s.extra, name)
}

func contains(items []string, item string) bool {
	for _, it := range items {
		if it == item {
			return true
		}
	}
	return false
}

func remove(items []string, item string) []string {
	kept := items[:0]
	for _, it := range items {
		if it != item {
			kept = append(kept, it)
		}
	}
	return kept
}

func (s *state) markExpanded(column string) {
	if s.expanded[column] {
		return
	}
	s.expanded[column] = true
	if s.schema.Index(column) < 0 {
		s.extra = append(s.extra, column)
	}
}

// isLabel matches a column ending in "2" right after a data column
func isLabel(s *state, idx int) bool {
	name := s.column(idx)
	return idx > 0 && strings.HasSuffix(name, "2") && s.source.HasColumn(s.column(idx-1))
}

func resolveLabelColumn(s *state, idx int) ColumnOutcome {
	name := s.column(idx)
	outcome := ColumnOutcome{Column: name, Rule: RuleLabel, Status: StatusOK}

	switch {
	case s.source.HasColumn(name[:len(name)-1]):
		outcome.Source = name[:len(name)-1]
	case len(name) > 2 && s.source.HasColumn(name[:len(name)-2]):
		outcome.Source = name[:len(name)-2]
	default:
		return s.failed(outcome, "no data column matches %s", name)
	}

	listName, ok := ListNameFor(s.n.profile.LabelSuffixes, outcome.Source)
	if !ok {
		return s.failed(outcome, "no list name configured for data column %s", outcome.Source)
	}
	return s.resolveRows(outcome, listName)
}

func isExpanded(s *state, idx int) bool {
	name := s.column(idx)
	_, collided := s.collisions[name]
	return s.expanded[name] || collided
}

func skipExpanded(s *state, idx int) ColumnOutcome {
	name := s.column(idx)
	outcome := ColumnOutcome{Column: name, Rule: RuleExpanded, Status: StatusOK}
	if owners, collided := s.collisions[name]; collided {
		return s.failed(outcome, "expanded column name produced by both %s", owners)
	}
	return outcome
}

func isAdminLabel(s *state, idx int) bool {
	return adminNamePattern.MatchString(s.column(idx))
}

func resolveAdminLabel(s *state, idx int) ColumnOutcome {
	name := s.column(idx)
	level := adminNamePattern.FindStringSubmatch(name)[1]
	outcome := ColumnOutcome{Column: name, Rule: RuleAdminLabel, Status: StatusOK, Source: "ADMIN" + level + "Code"}

	if !s.source.HasColumn(outcome.Source) {
		return s.failed(outcome, "admin code column %s not present", outcome.Source)
	}
	return s.resolveRows(outcome, "ADM"+level+"Code")
}

// resolveRows fills the outcome column with one label per source row
func (s *state) resolveRows(outcome ColumnOutcome, listName string) ColumnOutcome {
	outcome.ListName = listName
	labels, ok := s.n.labels.Lookup(listName)
	if !ok {
		return s.failed(outcome, "choice list %s not found", listName)
	}

	outcome.Reasons = make(map[Reason]int)
	for i, row := range s.source.Rows {
		res := ResolveLabel(labels, row[outcome.Source])
		outcome.Reasons[res.Reason]++
		s.out.Rows[i][outcome.Column] = res.Value
	}
	return outcome
}
