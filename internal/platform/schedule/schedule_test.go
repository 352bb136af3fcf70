package schedule

import (
	"testing"
	"time"
)

func TestNormalizeTimeHM(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "02:00", want: "02:00"},
		{in: "2:00", want: "02:00"},
		{in: " 14:30 ", want: "14:30"},
		{in: "23:59", want: "23:59"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeTimeHM(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeTimeHM(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}

			if err == nil && got != tt.want {
				t.Errorf("NormalizeTimeHM(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Schedule{Timezone: "UTC", Times: []string{"02:00"}}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	empty := Schedule{Timezone: "UTC"}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for empty schedule")
	}

	badTZ := Schedule{Timezone: "Mars/Olympus", Times: []string{"02:00"}}
	if err := badTZ.Validate(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestPreviousTimeBefore(t *testing.T) {
	s := Schedule{Timezone: "UTC", Times: []string{"02:00", "14:00"}}

	tests := []struct {
		name   string
		before time.Time
		want   time.Time
	}{
		{
			name:   "after morning slot",
			before: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
			want:   time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			name:   "after afternoon slot",
			before: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC),
			want:   time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		},
		{
			name:   "before any slot today falls back to yesterday",
			before: time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC),
			want:   time.Date(2025, 5, 31, 14, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := s.PreviousTimeBefore(tt.before)
			if err != nil {
				t.Fatalf("PreviousTimeBefore() error = %v", err)
			}

			if !ok {
				t.Fatal("PreviousTimeBefore() ok = false")
			}

			if !got.Equal(tt.want) {
				t.Errorf("PreviousTimeBefore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDue(t *testing.T) {
	s := Schedule{Timezone: "UTC", Times: []string{"02:00"}}

	lastRun := time.Date(2025, 5, 31, 2, 0, 0, 0, time.UTC)

	due, err := s.Due(time.Date(2025, 6, 1, 2, 30, 0, 0, time.UTC), lastRun)
	if err != nil {
		t.Fatalf("Due() error = %v", err)
	}

	if !due {
		t.Error("expected due after next slot passed")
	}

	due, err = s.Due(time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC), lastRun)
	if err != nil {
		t.Fatalf("Due() error = %v", err)
	}

	if due {
		t.Error("expected not due before the next slot")
	}

	// Zero lastRun means startup: the most recent past slot is not replayed.
	due, err = s.Due(time.Date(2025, 6, 1, 2, 30, 0, 0, time.UTC), time.Time{})
	if err != nil {
		t.Fatalf("Due() error = %v", err)
	}

	if due {
		t.Error("expected not due right after startup")
	}
}

func TestDue_ExactSlotInstant(t *testing.T) {
	s := Schedule{Timezone: "UTC", Times: []string{"02:00"}}

	lastRun := time.Date(2025, 5, 31, 2, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)

	due, err := s.Due(now, lastRun)
	if err != nil {
		t.Fatalf("Due() error = %v", err)
	}

	if !due {
		t.Error("expected due at the exact slot instant")
	}
}
