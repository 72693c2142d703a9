package store

import (
	"time"
)

// DayKeyFormat is the calendar-day granularity for activity counters:
// month-day, matching the axis labels of the statistics chart.
const DayKeyFormat = "01-02"

// ActivityCounters tracks per-day activity for one user. Increments are
// append-only; nothing is ever decremented or expired. Guarded by the
// owning UserState's mutex.
type ActivityCounters struct {
	created    map[string]int
	deleted    map[string]int
	aiAnalysis map[string]int
	totalAI    int
}

// NewActivityCounters creates zeroed counters.
func NewActivityCounters() *ActivityCounters {
	return &ActivityCounters{
		created:    make(map[string]int),
		deleted:    make(map[string]int),
		aiAnalysis: make(map[string]int),
	}
}

// RecordCreated counts a note creation on now's calendar day.
func (c *ActivityCounters) RecordCreated(now time.Time) {
	c.created[now.Format(DayKeyFormat)]++
}

// RecordDeleted counts a note deletion on now's calendar day.
func (c *ActivityCounters) RecordDeleted(now time.Time) {
	c.deleted[now.Format(DayKeyFormat)]++
}

// RecordAIAnalysis counts an analysis attempt on now's calendar day and
// bumps the running total.
func (c *ActivityCounters) RecordAIAnalysis(now time.Time) {
	c.aiAnalysis[now.Format(DayKeyFormat)]++
	c.totalAI++
}

// CreatedOn returns the creations counted on a day key.
func (c *ActivityCounters) CreatedOn(day string) int {
	return c.created[day]
}

// DeletedOn returns the deletions counted on a day key.
func (c *ActivityCounters) DeletedOn(day string) int {
	return c.deleted[day]
}

// AIAnalysisOn returns the analysis attempts counted on a day key.
func (c *ActivityCounters) AIAnalysisOn(day string) int {
	return c.aiAnalysis[day]
}

// TotalCreated sums creations across all days.
func (c *ActivityCounters) TotalCreated() int {
	return sumValues(c.created)
}

// TotalDeleted sums deletions across all days.
func (c *ActivityCounters) TotalDeleted() int {
	return sumValues(c.deleted)
}

// TotalAI returns the running total of analysis attempts.
func (c *ActivityCounters) TotalAI() int {
	return c.totalAI
}

func sumValues(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}
