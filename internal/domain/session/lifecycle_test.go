package session

import (
	"testing"
	"time"
)

func TestThresholds_Evaluate(t *testing.T) {
	th := Thresholds{Timeout: 1800 * time.Second, WarningLead: 30 * time.Second}

	cases := []struct {
		name string
		idle time.Duration
		want State
	}{
		{"fresh", 0, StateActive},
		{"just under lead boundary", 1769 * time.Second, StateActive},
		{"at lead boundary", 1770 * time.Second, StateWarning},
		{"inside warning window", 1771 * time.Second, StateWarning},
		{"last warning second", 1799 * time.Second, StateWarning},
		{"at timeout", 1800 * time.Second, StateExpired},
		{"past timeout", 2000 * time.Second, StateExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := th.Evaluate(tc.idle); got != tc.want {
				t.Errorf("Evaluate(%v) = %s, want %s", tc.idle, got, tc.want)
			}
		})
	}
}

func TestThresholds_TimeUntilExpiry(t *testing.T) {
	th := Thresholds{Timeout: 1800 * time.Second, WarningLead: 30 * time.Second}

	if got := th.TimeUntilExpiry(1771 * time.Second); got != 29*time.Second {
		t.Errorf("expected 29s remaining, got %v", got)
	}
	if got := th.TimeUntilExpiry(2000 * time.Second); got != 0 {
		t.Errorf("expected 0 remaining past expiry, got %v", got)
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := (Thresholds{Timeout: time.Minute, WarningLead: 10 * time.Second}).Validate(); err != nil {
		t.Fatalf("valid thresholds rejected: %v", err)
	}
	if err := (Thresholds{Timeout: 0, WarningLead: 0}).Validate(); err != ErrInvalidTimeout {
		t.Errorf("expected ErrInvalidTimeout, got %v", err)
	}
	if err := (Thresholds{Timeout: time.Minute, WarningLead: time.Minute}).Validate(); err != ErrInvalidWarningLead {
		t.Errorf("expected ErrInvalidWarningLead, got %v", err)
	}
}

func TestSnapshot_Armed(t *testing.T) {
	cases := []struct {
		user, token, want bool
	}{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, false},
	}
	for _, tc := range cases {
		s := Snapshot{UserPresent: tc.user, TokenPresent: tc.token}
		if s.Armed() != tc.want {
			t.Errorf("Snapshot{%v,%v}.Armed() = %v, want %v", tc.user, tc.token, s.Armed(), tc.want)
		}
	}
}
