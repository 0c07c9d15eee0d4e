package event

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// The wire format is the same tagged structure in both encodings: JSON text
// frames on the live connection, CBOR on the broker.

var knownTypes = map[Type]struct{}{
	TypePing:                {},
	TypeLogout:              {},
	TypeFamilyMemberAdded:   {},
	TypeFamilyMemberRemoved: {},
	TypeFamilyMemberInvited: {},
	TypeAllowanceUpdated:    {},
	TypeRequestCreated:      {},
	TypeRequestGranted:      {},
	TypeRequestDeclined:     {},
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Encode encodes the event as a JSON text frame.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode decodes a JSON text frame.
func Decode(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if _, ok := knownTypes[e.Kind]; !ok {
		return nil, fmt.Errorf("decode event: unknown type %q", e.Kind)
	}
	return &e, nil
}

// EncodeBinary encodes the event in the compact form used on the broker.
func (e *Event) EncodeBinary() ([]byte, error) {
	return encMode.Marshal(e)
}

// DecodeBinary decodes a broker payload.
func DecodeBinary(data []byte) (*Event, error) {
	var e Event
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if _, ok := knownTypes[e.Kind]; !ok {
		return nil, fmt.Errorf("decode event: unknown type %q", e.Kind)
	}
	return &e, nil
}
