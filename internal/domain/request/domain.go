// Package request models a child's purchase request awaiting a parent's
// decision.
package request

import "time"

// Request is created by a child and granted or declined by a parent.
// The uid is a database serial, unlike the uuid-keyed entities.
type Request struct {
	UID         int64     `json:"uid"`
	UserUID     string    `json:"user_uid"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	URL         string    `json:"url,omitempty"`
	Time        time.Time `json:"time"`
}
