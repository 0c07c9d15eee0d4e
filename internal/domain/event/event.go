// Package event defines the notification events sent to live clients and
// their wire encodings.
package event

import (
	"allowly/internal/domain/allowance"
	"allowly/internal/domain/invitation"
	"allowly/internal/domain/request"
)

// Type discriminates event payloads on the wire.
type Type string

const (
	// TypePing is an empty keep-alive message.
	TypePing Type = "Ping"
	// TypeLogout tells every live session for a user to terminate.
	TypeLogout Type = "Logout"
	// TypeFamilyMemberAdded is sent when a member joins a family.
	TypeFamilyMemberAdded Type = "FamilyMemberAdded"
	// TypeFamilyMemberRemoved is sent when a member is removed from a family.
	TypeFamilyMemberRemoved Type = "FamilyMemberRemoved"
	// TypeFamilyMemberInvited is sent when an invitation is created.
	TypeFamilyMemberInvited Type = "FamilyMemberInvited"
	// TypeAllowanceUpdated is sent when a child's allowance changes.
	TypeAllowanceUpdated Type = "AllowanceUpdated"
	// TypeRequestCreated is sent when a child asks for a purchase.
	TypeRequestCreated Type = "RequestCreated"
	// TypeRequestGranted is sent when a parent grants a request.
	TypeRequestGranted Type = "RequestGranted"
	// TypeRequestDeclined is sent when a parent declines a request.
	TypeRequestDeclined Type = "RequestDeclined"
)

// Member is the slice of a user carried inside events. Events cross process
// boundaries, so they carry data rather than references.
type Member struct {
	UID       string `json:"uid"`
	Role      string `json:"role"`
	Name      string `json:"name"`
	FamilyUID string `json:"family_uid"`
}

// Event is an immutable description of a domain occurrence. Exactly the
// fields relevant to the variant named by Kind are set; the rest are nil and
// omitted on the wire.
type Event struct {
	Kind Type `json:"type"`

	// User is set for the FamilyMember* variants.
	User *Member `json:"user,omitempty"`
	// Invitation is set for FamilyMemberInvited.
	Invitation *invitation.Invitation `json:"invitation,omitempty"`
	// Allowance is set for AllowanceUpdated.
	Allowance *allowance.Allowance `json:"allowance,omitempty"`
	// Request is set for the Request* variants.
	Request *request.Request `json:"request,omitempty"`
	// By is the uid of the acting user, when one exists.
	By string `json:"by,omitempty"`
}

func Ping() *Event { return &Event{Kind: TypePing} }

// Logout forces every live session of the addressed user to close.
func Logout() *Event { return &Event{Kind: TypeLogout} }

func FamilyMemberAdded(user Member, by string) *Event {
	return &Event{Kind: TypeFamilyMemberAdded, User: &user, By: by}
}

func FamilyMemberRemoved(user Member, by string) *Event {
	return &Event{Kind: TypeFamilyMemberRemoved, User: &user, By: by}
}

func FamilyMemberInvited(inv invitation.Invitation, by string) *Event {
	return &Event{Kind: TypeFamilyMemberInvited, Invitation: &inv, By: by}
}

func AllowanceUpdated(a allowance.Allowance, by string) *Event {
	return &Event{Kind: TypeAllowanceUpdated, Allowance: &a, By: by}
}

func RequestCreated(r request.Request, by string) *Event {
	return &Event{Kind: TypeRequestCreated, Request: &r, By: by}
}

func RequestGranted(r request.Request, by string) *Event {
	return &Event{Kind: TypeRequestGranted, Request: &r, By: by}
}

func RequestDeclined(r request.Request, by string) *Event {
	return &Event{Kind: TypeRequestDeclined, Request: &r, By: by}
}
