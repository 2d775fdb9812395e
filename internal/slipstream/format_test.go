package slipstream

import (
	"testing"
)

func TestParseTimeGap(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{"0:00", 0},
		{"+ 0:14", 14},
		{"+1:23", 83},
		{"+ 12:05", 725},
		{"+1:02:03", 3723},
		{" + 2:00:00 ", 7200},
	}
	for _, tc := range cases {
		got, err := ParseTimeGap(tc.raw)
		if err != nil {
			t.Errorf("ParseTimeGap(%q) returned error: %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeGap(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestParseTimeGapRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "+", "123", "1:2:3:4", "+1:xx", "+-1:00"} {
		if _, err := ParseTimeGap(raw); err == nil {
			t.Errorf("ParseTimeGap(%q) expected error", raw)
		}
	}
}

func TestFormatTimeLost(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "0:00"},
		{14, "+0:14"},
		{83, "+1:23"},
		{725, "+12:05"},
		{3723, "+1:02:03"},
		{7200, "+2:00:00"},
	}
	for _, tc := range cases {
		if got := FormatTimeLost(tc.seconds); got != tc.want {
			t.Errorf("FormatTimeLost(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
