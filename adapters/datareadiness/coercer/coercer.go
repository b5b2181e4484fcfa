// Package coercer turns the string cells of survey tables into numbers,
// integer codes and timestamps with the same rules at every stage.
package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TypeCoercer handles deterministic type coercion of survey cells
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion rules
type CoercionConfig struct {
	TimestampFormats []string `json:"timestamp_formats"` // tried in order when parsing submission times
	AcceptBooleans   bool     `json:"accept_booleans"`   // "True"/"False" count as 1/0 numerically
}

// DefaultCoercionConfig returns the formats KoBo exports use
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		TimestampFormats: []string{
			time.RFC3339Nano,
			"2006-01-02T15:04:05.000-07:00",
			"2006-01-02T15:04:05.999999999",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
		},
		AcceptBooleans: true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

// Default is the coercer every stage shares
var Default = NewTypeCoercer(DefaultCoercionConfig())

// Numeric parses a cell the way a numeric column would be read. Empty and
// non-numeric cells report false.
func (c *TypeCoercer) Numeric(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	if c.config.AcceptBooleans {
		switch strings.ToLower(cleanVal) {
		case "true":
			return 1, true
		case "false":
			return 0, true
		}
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// Integer parses a cell holding a whole number, including "03" and "3.0"
func (c *TypeCoercer) Integer(strVal string) (int64, bool) {
	val, ok := c.Numeric(strVal)
	if !ok || val != math.Trunc(val) {
		return 0, false
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if val >= math.MaxInt64 || val < math.MinInt64 {
		return 0, false
	}
	return int64(val), true
}

// CanonicalCode renders an integer-valued cell without padding or decimals,
// so "03" and "3.0" both become "3".
func (c *TypeCoercer) CanonicalCode(strVal string) (string, bool) {
	val, ok := c.Integer(strVal)
	if !ok {
		return "", false
	}
	return strconv.FormatInt(val, 10), true
}

// PadCode left-pads an integer cell with zeros to width digits
func (c *TypeCoercer) PadCode(strVal string, width int) (string, bool) {
	code, ok := c.CanonicalCode(strVal)
	if !ok {
		return "", false
	}
	if missing := width - len(code); missing > 0 {
		code = strings.Repeat("0", missing) + code
	}
	return code, true
}

// Timestamp parses a submission time against the configured formats
func (c *TypeCoercer) Timestamp(strVal string) (time.Time, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return time.Time{}, false
	}
	for _, format := range c.config.TimestampFormats {
		if t, err := time.Parse(format, cleanVal); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
