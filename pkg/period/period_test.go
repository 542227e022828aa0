package period

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		input   string
		want    Granularity
		wantErr bool
	}{
		{"week", Week, false},
		{"weeks", Week, false},
		{"Month", Month, false},
		{"QUARTER", Quarter, false},
		{"year", Year, false},
		{" years ", Year, false},
		{"fortnight", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGranularity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGranularity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseGranularity(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		g    Granularity
		want Key
	}{
		{"month mid", date(2024, time.March, 15), Month, Key{2024, 3}},
		// Quarter indices are zero-based.
		{"quarter q1", date(2024, time.March, 31), Quarter, Key{2024, 0}},
		{"quarter q2", date(2024, time.April, 1), Quarter, Key{2024, 1}},
		{"quarter q4", date(2024, time.December, 31), Quarter, Key{2024, 3}},
		{"year", date(2024, time.June, 1), Year, Key{2024, 0}},
		{"week plain", date(2024, time.January, 29), Week, Key{2024, 5}},
		// 2024-12-30 is a Monday belonging to ISO week 1 of 2025.
		{"week iso year boundary", date(2024, time.December, 30), Week, Key{2025, 1}},
		// 2021-01-01 is a Friday in ISO week 53 of 2020.
		{"week iso prev year", date(2021, time.January, 1), Week, Key{2020, 53}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyOf(tt.t, tt.g); got != tt.want {
				t.Errorf("KeyOf(%v, %v) = %v, want %v", tt.t, tt.g, got, tt.want)
			}
		})
	}
}

func TestKeyOfInvalidGranularityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("KeyOf() with invalid granularity should panic")
		}
	}()
	KeyOf(date(2024, time.January, 1), Granularity(42))
}

func TestStartWeekIsMonday(t *testing.T) {
	// 2024-03-15 is a Friday; the week starts on Monday 2024-03-11.
	got := Start(date(2024, time.March, 15), Week)
	want := date(2024, time.March, 11)
	if !got.Equal(want) {
		t.Errorf("Start() = %v, want %v", got, want)
	}

	// A Monday maps to itself.
	monday := date(2024, time.March, 11)
	if got := Start(monday, Week); !got.Equal(monday) {
		t.Errorf("Start(monday) = %v, want %v", got, monday)
	}

	// Sunday belongs to the week started six days earlier.
	got = Start(date(2024, time.March, 17), Week)
	if !got.Equal(want) {
		t.Errorf("Start(sunday) = %v, want %v", got, want)
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		g    Granularity
		want time.Time
	}{
		{"month", date(2024, time.March, 15), Month, date(2024, time.March, 1)},
		{"quarter", date(2024, time.May, 20), Quarter, date(2024, time.April, 1)},
		{"year", date(2024, time.August, 9), Year, date(2024, time.January, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Start(tt.t, tt.g); !got.Equal(tt.want) {
				t.Errorf("Start() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextCarriesYear(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		g    Granularity
		want time.Time
	}{
		{"month december", date(2023, time.December, 10), Month, date(2024, time.January, 1)},
		{"month november", date(2023, time.November, 1), Month, date(2023, time.December, 1)},
		{"quarter q4", date(2023, time.November, 5), Quarter, date(2024, time.January, 1)},
		{"quarter q2", date(2023, time.June, 5), Quarter, date(2023, time.July, 1)},
		{"year", date(2023, time.March, 1), Year, date(2024, time.January, 1)},
		{"week across year", date(2023, time.December, 27), Week, date(2024, time.January, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Next(tt.t, tt.g); !got.Equal(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnumerate(t *testing.T) {
	// 2023-11-15 through 2024-02-10 spans four months.
	got := Enumerate(date(2023, time.November, 15), date(2024, time.February, 10), Month)
	want := []time.Time{
		date(2023, time.November, 1),
		date(2023, time.December, 1),
		date(2024, time.January, 1),
		date(2024, time.February, 1),
	}
	if len(got) != len(want) {
		t.Fatalf("Enumerate() returned %d periods, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("Enumerate()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEnumerateGapFree(t *testing.T) {
	start := date(2020, time.February, 3)
	end := date(2023, time.September, 1)

	for _, g := range []Granularity{Week, Month, Quarter, Year} {
		periods := Enumerate(start, end, g)
		if len(periods) == 0 {
			t.Fatalf("%v: no periods", g)
		}
		for i := 1; i < len(periods); i++ {
			if !periods[i].Equal(Next(periods[i-1], g)) {
				t.Errorf("%v: gap between %v and %v", g, periods[i-1], periods[i])
			}
		}
		last := periods[len(periods)-1]
		if !last.Before(end) {
			t.Errorf("%v: last period %v is not before end %v", g, last, end)
		}
		if Next(last, g).Before(end) {
			t.Errorf("%v: enumeration stopped early at %v", g, last)
		}
	}
}

func TestEnumerateEmptyRange(t *testing.T) {
	if got := Enumerate(date(2024, time.March, 1), date(2024, time.March, 1), Month); got != nil {
		t.Errorf("Enumerate() on empty range = %v, want nil", got)
	}
	if got := Enumerate(date(2024, time.June, 1), date(2024, time.March, 1), Month); got != nil {
		t.Errorf("Enumerate() on inverted range = %v, want nil", got)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		g    Granularity
		want string
	}{
		{"week zero padded", date(2024, time.January, 29), Week, "Week 05, 2024"},
		{"week iso year", date(2024, time.December, 30), Week, "Week 01, 2025"},
		{"month", date(2024, time.March, 15), Month, "March 2024"},
		{"quarter", date(2024, time.May, 1), Quarter, "Quarter 2, 2024"},
		{"year", date(2024, time.July, 4), Year, "2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.t, tt.g); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBarWidthDays(t *testing.T) {
	tests := []struct {
		g    Granularity
		want int
	}{
		{Week, 6},
		{Month, 26},
		{Quarter, 81},
		{Year, 328},
	}
	for _, tt := range tests {
		if got := BarWidthDays(tt.g); got != tt.want {
			t.Errorf("BarWidthDays(%v) = %d, want %d", tt.g, got, tt.want)
		}
	}
}

func TestKeyBefore(t *testing.T) {
	a := Key{2023, 12}
	b := Key{2024, 1}
	if !a.Before(b) {
		t.Error("2023-12 should be before 2024-01")
	}
	if b.Before(a) {
		t.Error("2024-01 should not be before 2023-12")
	}
	if a.Before(a) {
		t.Error("a key should not be before itself")
	}
}
