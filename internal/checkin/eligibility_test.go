package checkin

import (
	"testing"
	"time"
)

func TestIsWindowOpen(t *testing.T) {
	startsAt := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)
	base := KidsService{
		StartsAt:   startsAt,
		Active:     true,
		OpenBefore: time.Hour,
		CloseAfter: 30 * time.Minute,
	}

	cases := []struct {
		name     string
		now      time.Time
		inactive bool
		want     bool
	}{
		{name: "exactly at open", now: startsAt.Add(-time.Hour), want: true},
		{name: "one second before open", now: startsAt.Add(-time.Hour - time.Second), want: false},
		{name: "at start", now: startsAt, want: true},
		{name: "exactly at close", now: startsAt.Add(30 * time.Minute), want: true},
		{name: "one second after close", now: startsAt.Add(30*time.Minute + time.Second), want: false},
		{name: "inactive mid-window", now: startsAt, inactive: true, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := base
			svc.Active = !tc.inactive
			if got := IsWindowOpen(svc, tc.now); got != tc.want {
				t.Fatalf("IsWindowOpen(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestAgeInYears(t *testing.T) {
	cases := []struct {
		name string
		dob  time.Time
		now  time.Time
		want int
	}{
		{
			name: "day before birthday",
			dob:  time.Date(2018, 5, 11, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
			want: 7,
		},
		{
			name: "on birthday",
			dob:  time.Date(2018, 5, 10, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
			want: 8,
		},
		{
			name: "newborn",
			dob:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
			want: 0,
		},
		{
			name: "year boundary without birthday",
			dob:  time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			want: 7,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AgeInYears(tc.dob, tc.now); got != tc.want {
				t.Fatalf("AgeInYears = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestIsAgeEligible(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	svc := KidsService{MinAge: 5, MaxAge: 12}

	cases := []struct {
		name string
		dob  time.Time
		want bool
	}{
		{name: "two year old rejected", dob: now.AddDate(-2, 0, 0), want: false},
		{name: "five year old on lower bound", dob: now.AddDate(-5, 0, 0), want: true},
		{name: "twelve year old on upper bound", dob: now.AddDate(-12, 0, 0), want: true},
		{name: "thirteen year old rejected", dob: now.AddDate(-13, 0, 0), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			child := Child{DateOfBirth: tc.dob}
			if got := IsAgeEligible(child, svc, now); got != tc.want {
				t.Fatalf("IsAgeEligible = %v, want %v", got, tc.want)
			}
		})
	}
}
