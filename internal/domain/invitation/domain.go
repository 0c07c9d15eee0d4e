// Package invitation models pending family-member invitations.
package invitation

import "time"

// Invitation is a member-to-be. The allowance fields are only set when the
// invited role is child.
type Invitation struct {
	UID               string    `json:"uid"`
	Role              string    `json:"role"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	AllowanceAmount   *int64    `json:"allowance_amount,omitempty"`
	AllowanceSchedule *string   `json:"allowance_schedule,omitempty"`
	Time              time.Time `json:"time"`
	FamilyUID         string    `json:"family_uid"`
}
