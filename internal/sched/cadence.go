// Package sched runs registered maintenance tasks at most once per period,
// using the database as the only coordination point.
package sched

import "time"

// Cadence is how often a task is due, together with the rule that names the
// period a timestamp belongs to. Two timestamps with the same label are the
// same period for idempotency purposes.
type Cadence struct {
	interval time.Duration
	label    func(time.Time) string
}

// Daily runs once per calendar day (UTC).
func Daily() Cadence {
	return Cadence{
		interval: 24 * time.Hour,
		label:    func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	}
}

// Every runs once per custom interval; labelFn buckets timestamps into
// periods and must be deterministic.
func Every(interval time.Duration, labelFn func(time.Time) string) Cadence {
	return Cadence{interval: interval, label: labelFn}
}

// Interval is the approximate time between due periods.
func (c Cadence) Interval() time.Duration { return c.interval }

// Label names the period the timestamp falls in.
func (c Cadence) Label(t time.Time) string { return c.label(t) }
