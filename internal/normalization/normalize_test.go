package normalization

import (
	"testing"
	"time"
)

func TestParseInputString(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Gomez  ", "Gomez"},
		{"Ana   Maria", "Ana Maria"},
		{"\tAna\nMaria ", "Ana Maria"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := ParseInputString(tc.in); got != tc.want {
			t.Errorf("ParseInputString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDigitsOnly(t *testing.T) {
	cases := []struct{ in, want string }{
		{"40.111.222", "40111222"},
		{"27-40111222-4", "27401112224"},
		{"(0221) 456-7890", "02214567890"},
		{"sin datos", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := DigitsOnly(tc.in); got != tc.want {
			t.Errorf("DigitsOnly(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2015-02-10", "2015-02-10", true},
		{"10/02/2015", "2015-02-10", true},
		{"10-02-2015", "2015-02-10", true},
		{"2015-02-10 00:00:00", "2015-02-10", true},
		{"2015-02-10T13:45:00", "2015-02-10", true},
		{" 2015-02-10 ", "2015-02-10", true},
		{"31/02/2015", "", false},
		{"10.02.2015", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if ok != tc.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got.Format("2006-01-02") != tc.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestYearsBetween(t *testing.T) {
	birth := time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		ref  time.Time
		want int
	}{
		{time.Date(2014, 6, 14, 0, 0, 0, 0, time.UTC), 13},
		{time.Date(2014, 6, 15, 0, 0, 0, 0, time.UTC), 14},
		{time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC), 14},
		{time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := YearsBetween(birth, tc.ref); got != tc.want {
			t.Errorf("YearsBetween(..., %s) = %d, want %d", tc.ref.Format("2006-01-02"), got, tc.want)
		}
	}
}
