package types

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

// normalizeSpaces maps the no-break spaces used by French formatting to plain spaces.
func normalizeSpaces(s string) string {
	return strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(s)
}

func TestEURRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"121", "121.00"},
		{"118.3", "118.30"},
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"0", "0.00"},
	}
	for _, tc := range cases {
		got := EUR(decimal.RequireFromString(tc.in)).String()
		if got != tc.want {
			t.Errorf("EUR(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMoneyFormatFrench(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"123.45", "123,45 €"},
		{"121", "121,00 €"},
		{"1234.5", "1 234,50 €"},
		{"0", "0,00 €"},
	}
	for _, tc := range cases {
		got := normalizeSpaces(EUR(decimal.RequireFromString(tc.in)).Format())
		if got != tc.want {
			t.Errorf("Format(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMoneyFormatSymbolIsSeparatedByNoBreakSpace(t *testing.T) {
	got := EUR(decimal.RequireFromString("143")).Format()
	if !strings.HasSuffix(got, "\u00a0€") {
		t.Fatalf("expected no-break space before the euro sign, got %q", got)
	}
}

func TestNewIDValid(t *testing.T) {
	id := NewID()
	if !id.Valid() {
		t.Fatalf("expected generated id %q to be valid", id)
	}
	if ID("not-a-uuid").Valid() {
		t.Fatal("expected malformed id to be invalid")
	}
}
