// Package allowance models recurring pocket money for a child.
package allowance

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is the weekday an allowance is paid.
type Schedule string

const (
	Monday    Schedule = "mon"
	Tuesday   Schedule = "tue"
	Wednesday Schedule = "wed"
	Thursday  Schedule = "thu"
	Friday    Schedule = "fri"
	Saturday  Schedule = "sat"
	Sunday    Schedule = "sun"
)

var weekdays = map[time.Weekday]Schedule{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// ScheduleOn returns the schedule matching a timestamp's weekday.
func ScheduleOn(t time.Time) Schedule { return weekdays[t.Weekday()] }

// ParseSchedule accepts the lowercase three-letter weekday names.
func ParseSchedule(s string) (Schedule, error) {
	for _, v := range weekdays {
		if string(v) == strings.ToLower(s) {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid schedule %q", s)
}

// Allowance is the recurring amount paid to one user. Amount is in the
// family currency's minor unit.
type Allowance struct {
	UID      string   `json:"uid"`
	UserUID  string   `json:"user_uid"`
	Amount   int64    `json:"amount"`
	Schedule Schedule `json:"schedule"`
}
