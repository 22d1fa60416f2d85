package utils

import (
	"testing"
	"time"

	"groupcast/models"

	"github.com/stretchr/testify/assert"
)

func TestSendWindowContains(t *testing.T) {
	window := SendWindow{StartHour: 9, EndHour: 21}

	assert.True(t, window.Contains(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	assert.True(t, window.Contains(time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)))
	assert.True(t, window.Contains(time.Date(2026, 3, 10, 20, 59, 0, 0, time.UTC)))

	assert.False(t, window.Contains(time.Date(2026, 3, 10, 8, 59, 0, 0, time.UTC)))
	assert.False(t, window.Contains(time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)))
	assert.False(t, window.Contains(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)))
}

func TestNextAllowedTime(t *testing.T) {
	window := SendWindow{StartHour: 9, EndHour: 21}

	// Before the window snaps to today's opening
	early := time.Date(2026, 3, 10, 7, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), window.NextAllowedTime(early))

	// After the window snaps to tomorrow's opening
	late := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), window.NextAllowedTime(late))

	// At the closing hour is already outside
	closing := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), window.NextAllowedTime(closing))

	// Inside the window is returned unchanged
	inside := time.Date(2026, 3, 10, 12, 45, 0, 0, time.UTC)
	assert.Equal(t, inside, window.NextAllowedTime(inside))

	// Month rollover
	endOfMonth := time.Date(2026, 3, 31, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), window.NextAllowedTime(endOfMonth))
}

func TestTotalRuns(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("no recurrence is a single run", func(t *testing.T) {
		assert.Equal(t, 1, TotalRuns(models.Recurrence{Type: models.RecurrenceNone}, &start, 0))
		assert.Equal(t, 1, TotalRuns(models.Recurrence{}, &start, 0))
	})

	t.Run("daily counts whole days until the end date", func(t *testing.T) {
		end := start.AddDate(0, 0, 10)
		rec := models.Recurrence{Type: models.RecurrenceDaily, EndDate: &end}
		assert.Equal(t, 11, TotalRuns(rec, &start, 0))
	})

	t.Run("weekly counts whole weeks", func(t *testing.T) {
		end := start.AddDate(0, 0, 21)
		rec := models.Recurrence{Type: models.RecurrenceWeekly, EndDate: &end}
		assert.Equal(t, 4, TotalRuns(rec, &start, 0))
	})

	t.Run("monthly decrements when the end day has not been reached", func(t *testing.T) {
		jan31 := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
		mar1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		rec := models.Recurrence{Type: models.RecurrenceMonthly, EndDate: &mar1}
		// Two calendar months apart, but March 1st is before the 31st
		assert.Equal(t, 2, TotalRuns(rec, &jan31, 0))
	})

	t.Run("monthly with full months", func(t *testing.T) {
		end := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
		rec := models.Recurrence{Type: models.RecurrenceMonthly, EndDate: &end}
		assert.Equal(t, 4, TotalRuns(rec, &start, 0))
	})

	t.Run("custom adds its explicit dates", func(t *testing.T) {
		rec := models.Recurrence{
			Type: models.RecurrenceCustom,
			CustomDates: []time.Time{
				start.AddDate(0, 0, 1),
				start.AddDate(0, 0, 3),
				start.AddDate(0, 0, 7),
			},
		}
		assert.Equal(t, 4, TotalRuns(rec, &start, 0))
		assert.Equal(t, 6, TotalRuns(rec, &start, 2))
	})

	t.Run("end date before start adds nothing", func(t *testing.T) {
		end := start.AddDate(0, 0, -5)
		rec := models.Recurrence{Type: models.RecurrenceDaily, EndDate: &end}
		assert.Equal(t, 1, TotalRuns(rec, &start, 0))
	})

	t.Run("missing end date adds nothing", func(t *testing.T) {
		rec := models.Recurrence{Type: models.RecurrenceWeekly}
		assert.Equal(t, 1, TotalRuns(rec, &start, 0))
	})

	t.Run("additional dates count even without recurrence", func(t *testing.T) {
		assert.Equal(t, 3, TotalRuns(models.Recurrence{Type: models.RecurrenceNone}, &start, 2))
	})
}
