// Package notify fans domain events out to the family members they concern.
package notify

// targetKind is the closed set of addressing rules.
type targetKind int

const (
	targetMember targetKind = iota
	targetFamily
	targetMemberAndParents
	targetParents
)

// Target names the users an event should reach. Except for the direct
// ToMember form, the acting user is always excluded from the recipients.
type Target struct {
	kind      targetKind
	userUID   string
	familyUID string
}

// ToMember addresses a single user directly. The user receives the event
// even when they are the actor.
func ToMember(userUID string) Target {
	return Target{kind: targetMember, userUID: userUID}
}

// ToFamily addresses every member of a family.
func ToFamily(familyUID string) Target {
	return Target{kind: targetFamily, familyUID: familyUID}
}

// ToMemberAndParents addresses one member and all parents of their family.
func ToMemberAndParents(userUID, familyUID string) Target {
	return Target{kind: targetMemberAndParents, userUID: userUID, familyUID: familyUID}
}

// ToParents addresses the parents of a family.
func ToParents(familyUID string) Target {
	return Target{kind: targetParents, familyUID: familyUID}
}
