package survey

import (
	"strings"
)

// MatchStatus describes how a logical column name was resolved
type MatchStatus string

const (
	MatchExact     MatchStatus = "exact"     // header equals the logical name
	MatchUnique    MatchStatus = "unique"    // exactly one header contains it
	MatchNone      MatchStatus = "none"      // no header contains it
	MatchAmbiguous MatchStatus = "ambiguous" // several headers contain it
)

// ColumnMatch is the outcome of resolving one logical column
type ColumnMatch struct {
	Logical    string
	Column     string // resolved header, or Logical on fallback
	Status     MatchStatus
	Candidates []string
}

// Resolved reports whether Column is a real header of the table
func (m ColumnMatch) Resolved() bool {
	return m.Status == MatchExact || m.Status == MatchUnique
}

// Warner is the slice of the logger the resolver needs
type Warner interface {
	Warn(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// MatchColumn finds the header holding logical, tolerating API prefixes and
// suffixes. An exact header wins over substring candidates; Candidates still
// lists every header containing logical.
func (t *Table) MatchColumn(logical string) ColumnMatch {
	match := ColumnMatch{Logical: logical, Column: logical}
	exact := false
	for _, h := range t.Headers {
		if h == logical {
			exact = true
		}
		if strings.Contains(h, logical) {
			match.Candidates = append(match.Candidates, h)
		}
	}

	switch {
	case exact:
		match.Status = MatchExact
	case len(match.Candidates) == 0:
		match.Status = MatchNone
	case len(match.Candidates) == 1:
		match.Status = MatchUnique
		match.Column = match.Candidates[0]
	default:
		match.Status = MatchAmbiguous
	}
	return match
}

// ResolveColumn returns the real header for logical. On zero or several
// matches it warns and hands back logical unchanged.
func ResolveColumn(t *Table, logical string, log Warner) string {
	match := t.MatchColumn(logical)
	switch match.Status {
	case MatchExact:
		if len(match.Candidates) > 1 {
			log.Debug("column %q matched exactly, ignoring other candidates %v", logical, match.Candidates)
		}
	case MatchNone:
		log.Warn("no column matches %q, keeping the logical name", logical)
	case MatchAmbiguous:
		log.Warn("column %q is ambiguous, candidates %v; keeping the logical name", logical, match.Candidates)
	}
	return match.Column
}
