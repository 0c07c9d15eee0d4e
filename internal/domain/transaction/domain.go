// Package transaction is the append-only ledger behind every balance.
package transaction

import "time"

// Kind classifies ledger entries.
type Kind string

const (
	// KindAllowance entries are booked by the allowance payer task.
	KindAllowance Kind = "allowance"
	// KindRequest entries are booked when a request is granted.
	KindRequest Kind = "request"
	// KindManual entries are booked directly by a parent.
	KindManual Kind = "manual"
)

func (k Kind) Valid() bool {
	return k == KindAllowance || k == KindRequest || k == KindManual
}

type Transaction struct {
	UID         int64     `json:"uid"`
	Kind        Kind      `json:"kind"`
	UserUID     string    `json:"user_uid"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Time        time.Time `json:"time"`
}
