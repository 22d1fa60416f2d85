package utils

import (
	"time"

	"groupcast/models"
)

// SendWindow bounds the clock hours in which campaigns may dispatch,
// [StartHour, EndHour) in 24-hour format. It is passed in from config so
// tests can vary it.
type SendWindow struct {
	StartHour int
	EndHour   int
}

// Contains reports whether t falls inside the allowed window.
func (w SendWindow) Contains(t time.Time) bool {
	hour := t.Hour()
	return hour >= w.StartHour && hour < w.EndHour
}

// NextAllowedTime returns the earliest allowed send time at or after t.
// Before the window it snaps to today's opening hour, at or after the window
// to tomorrow's. Callers only invoke it when t is outside the window; inside
// it, t is returned unchanged.
func (w SendWindow) NextAllowedTime(t time.Time) time.Time {
	hour := t.Hour()
	if hour < w.StartHour {
		return time.Date(t.Year(), t.Month(), t.Day(), w.StartHour, 0, 0, 0, t.Location())
	}
	if hour >= w.EndHour {
		next := t.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), w.StartHour, 0, 0, 0, t.Location())
	}
	return t
}

// TotalRuns counts how many executions a campaign's schedule implies: the
// base run, plus recurrence expansion, plus any dates being added right now.
// This is a planning figure used for cost projection; future runs are
// scheduled individually through the queue's delay mechanism.
func TotalRuns(recurrence models.Recurrence, scheduledAt *time.Time, additionalDates int) int {
	totalRuns := 1

	switch recurrence.Type {
	case models.RecurrenceCustom:
		totalRuns += len(recurrence.CustomDates)
	case models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly:
		if recurrence.EndDate != nil && scheduledAt != nil && recurrence.EndDate.After(*scheduledAt) {
			start := *scheduledAt
			end := *recurrence.EndDate

			switch recurrence.Type {
			case models.RecurrenceDaily:
				totalRuns += int(end.Sub(start).Hours() / 24)
			case models.RecurrenceWeekly:
				totalRuns += int(end.Sub(start).Hours() / 24 / 7)
			case models.RecurrenceMonthly:
				months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
				if end.Day() < start.Day() {
					months--
				}
				if months > 0 {
					totalRuns += months
				}
			}
		}
	}

	return totalRuns + additionalDates
}
