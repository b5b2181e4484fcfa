package normalize

import (
	"sort"
	"strings"

	"mvam/adapters/datareadiness/coercer"
)

// MultipleValues is written when a code cannot be matched to a single label
const MultipleValues = "Multiple Values"

// Reason tags how a label was obtained
type Reason string

const (
	ReasonExact          Reason = "exact"           // code found verbatim
	ReasonIntegerCoerced Reason = "integer_coerced" // found after "03" -> "3"
	ReasonMultipleValues Reason = "multiple_values" // non-numeric code, usually a multi-select answer
	ReasonUnknownCode    Reason = "unknown_code"    // numeric code absent from the list
	ReasonEmpty          Reason = "empty"           // no answer, still gets the placeholder
)

// Fallback reports whether the value is a placeholder rather than a real label
func (r Reason) Fallback() bool {
	return r == ReasonMultipleValues || r == ReasonUnknownCode || r == ReasonEmpty
}

// Resolution is the label chosen for one coded cell
type Resolution struct {
	Value  string
	Reason Reason
}

// codes never treats "True"/"False" as 1/0
var codes = coercer.NewTypeCoercer(coercer.CoercionConfig{AcceptBooleans: false})

// ResolveLabel looks a code up in one flattened choice list. A verbatim hit
// wins; otherwise the code is retried in canonical integer form. Anything
// still unmatched, an unanswered cell included, becomes the MultipleValues
// placeholder.
func ResolveLabel(labels map[string]string, code string) Resolution {
	if strings.TrimSpace(code) == "" {
		return Resolution{Value: MultipleValues, Reason: ReasonEmpty}
	}
	if label, ok := labels[code]; ok {
		return Resolution{Value: label, Reason: ReasonExact}
	}

	canonical, ok := codes.CanonicalCode(code)
	if !ok {
		return Resolution{Value: MultipleValues, Reason: ReasonMultipleValues}
	}
	if label, ok := labels[canonical]; ok {
		return Resolution{Value: label, Reason: ReasonIntegerCoerced}
	}
	return Resolution{Value: MultipleValues, Reason: ReasonUnknownCode}
}

// ListNameFor picks the choice list of a single-choice data column from the
// suffix table. The longest matching suffix wins.
func ListNameFor(suffixes map[string]string, column string) (string, bool) {
	keys := make([]string, 0, len(suffixes))
	for suffix := range suffixes {
		if strings.HasSuffix(column, suffix) {
			keys = append(keys, suffix)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return suffixes[keys[0]], true
}
