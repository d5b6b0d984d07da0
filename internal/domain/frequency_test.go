package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want Recurrence
	}{
		{name: "disabled", spec: "0", want: Recurrence{Kind: Disabled}},
		{name: "run once", spec: "1", want: Recurrence{Kind: RunOnce}},
		{name: "hourly", spec: "2h", want: Recurrence{Kind: Hourly, Every: 2}},
		{name: "single hour", spec: "1h", want: Recurrence{Kind: Hourly, Every: 1}},
		{name: "minutely", spec: "15m", want: Recurrence{Kind: Minutely, Every: 15}},
		{name: "empty falls back to disabled", spec: "", want: Recurrence{Kind: Disabled}},
		{name: "garbage falls back to disabled", spec: "weekly", want: Recurrence{Kind: Disabled}},
		{name: "negative interval falls back to disabled", spec: "-2h", want: Recurrence{Kind: Disabled}},
		{name: "zero interval falls back to disabled", spec: "0m", want: Recurrence{Kind: Disabled}},
		{name: "non-numeric interval falls back to disabled", spec: "xh", want: Recurrence{Kind: Disabled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFrequency(tt.spec))
		})
	}
}

func TestRecurrence_IsDue(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	hourAgo := now.Add(-1 * time.Hour)
	threeHoursAgo := now.Add(-3 * time.Hour)
	tenMinutesAgo := now.Add(-10 * time.Minute)

	tests := []struct {
		name      string
		spec      string
		lastRunAt *time.Time
		want      bool
	}{
		{name: "disabled never due", spec: "0", lastRunAt: nil, want: false},
		{name: "disabled never due even with last run", spec: "0", lastRunAt: &threeHoursAgo, want: false},
		{name: "run once always due", spec: "1", lastRunAt: nil, want: true},
		{name: "run once due even with last run", spec: "1", lastRunAt: &hourAgo, want: true},
		{name: "hourly due when never run", spec: "2h", lastRunAt: nil, want: true},
		{name: "hourly not due inside window", spec: "2h", lastRunAt: &hourAgo, want: false},
		{name: "hourly due after window elapsed", spec: "2h", lastRunAt: &threeHoursAgo, want: true},
		{name: "minutely due when never run", spec: "5m", lastRunAt: nil, want: true},
		{name: "minutely not due inside window", spec: "15m", lastRunAt: &tenMinutesAgo, want: false},
		{name: "minutely due after window elapsed", spec: "5m", lastRunAt: &tenMinutesAgo, want: true},
		{name: "unrecognized spec never due", spec: "every tuesday", lastRunAt: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseFrequency(tt.spec)
			assert.Equal(t, tt.want, r.IsDue(tt.lastRunAt, now))
		})
	}
}

func TestRecurrence_Interval(t *testing.T) {
	assert.Equal(t, 2*time.Hour, ParseFrequency("2h").Interval())
	assert.Equal(t, 30*time.Minute, ParseFrequency("30m").Interval())
	assert.Equal(t, time.Duration(0), ParseFrequency("1").Interval())
	assert.Equal(t, time.Duration(0), ParseFrequency("0").Interval())
}

func TestFinalJobStatus(t *testing.T) {
	tests := []struct {
		name      string
		newStatus string
		frequency string
		want      string
	}{
		{name: "completed hourly becomes recurring", newStatus: JobStatusCompleted, frequency: "1h", want: JobStatusRecurring},
		{name: "completed minutely becomes recurring", newStatus: JobStatusCompleted, frequency: "30m", want: JobStatusRecurring},
		{name: "completed run-once stays completed", newStatus: JobStatusCompleted, frequency: "1", want: JobStatusCompleted},
		{name: "completed disabled stays completed", newStatus: JobStatusCompleted, frequency: "0", want: JobStatusCompleted},
		{name: "running passes through", newStatus: JobStatusRunning, frequency: "1h", want: JobStatusRunning},
		{name: "deactivated passes through", newStatus: JobStatusDeactivated, frequency: "5m", want: JobStatusDeactivated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinalJobStatus(tt.newStatus, tt.frequency))
		})
	}
}

func TestLifecycleGuards(t *testing.T) {
	assert.False(t, CanDeactivate(JobStatusRunning))
	assert.False(t, CanDeactivate(JobStatusDeactivated))
	assert.True(t, CanDeactivate(JobStatusInit))
	assert.True(t, CanDeactivate(JobStatusRecurring))

	assert.False(t, CanDelete(JobStatusRunning))
	assert.True(t, CanDelete(JobStatusCompleted))
	assert.True(t, CanDelete(JobStatusDeactivated))

	assert.False(t, CanActivate(JobStatusRunning))
	assert.False(t, CanActivate(JobStatusDeactivated))
	assert.True(t, CanActivate(JobStatusCompleted))
}
