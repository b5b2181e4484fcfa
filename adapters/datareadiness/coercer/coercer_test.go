package coercer

import (
	"math"
	"testing"
	"time"
)

func TestNumeric(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"integer", "2", 2, true},
		{"padded", " 1 ", 1, true},
		{"float", "3.0", 3, true},
		{"boolean true", "True", 1, true},
		{"empty", "", 0, false},
		{"text", "yes please", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Numeric(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Numeric(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCanonicalCodeAndPadding(t *testing.T) {
	c := Default

	if code, ok := c.CanonicalCode("03"); !ok || code != "3" {
		t.Errorf("CanonicalCode(03) = %q, %v", code, ok)
	}
	if code, ok := c.CanonicalCode("3.0"); !ok || code != "3" {
		t.Errorf("CanonicalCode(3.0) = %q, %v", code, ok)
	}
	if _, ok := c.CanonicalCode("3.5"); ok {
		t.Error("CanonicalCode(3.5) should not be an integer code")
	}
	if _, ok := c.CanonicalCode("1 2"); ok {
		t.Error("CanonicalCode of a multi-select value should fail")
	}

	if code, ok := c.PadCode("140101", 6); !ok || code != "140101" {
		t.Errorf("PadCode kept width = %q, %v", code, ok)
	}
	if code, ok := c.PadCode("9.0", 2); !ok || code != "09" {
		t.Errorf("PadCode(9.0, 2) = %q, %v", code, ok)
	}
}

func TestIntegerRange(t *testing.T) {
	c := Default

	if _, ok := c.Integer("9223372036854775808"); ok {
		t.Error("Integer(2^63) should overflow int64")
	}
	if got, ok := c.Integer("-9223372036854775808"); !ok || got != math.MinInt64 {
		t.Errorf("Integer(-2^63) = %d, %v", got, ok)
	}
	if got, ok := c.Integer("9007199254740992"); !ok || got != 1<<53 {
		t.Errorf("Integer(2^53) = %d, %v", got, ok)
	}
}

func TestTimestamp(t *testing.T) {
	c := Default

	got, ok := c.Timestamp("2019-05-02T10:15:00.000+10:00")
	if !ok {
		t.Fatal("expected KoBo timestamp to parse")
	}
	want := time.Date(2019, 5, 2, 0, 15, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got, want)
	}

	if _, ok := c.Timestamp("not a date"); ok {
		t.Error("expected garbage to be rejected")
	}
}
