package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/onmission/matchd/internal/match"
)

// Change feed event kinds and operations.
const (
	KindProfile    = "profile"
	KindAssignment = "assignment"

	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Change feed decoding errors.
var (
	ErrInvalidCBOR    = errors.New("invalid CBOR data")
	ErrUnknownKind    = errors.New("unknown event kind")
	ErrUnknownOp      = errors.New("unknown event operation")
	ErrMissingID      = errors.New("missing entity id in event")
	ErrMissingPayload = errors.New("missing payload for upsert event")
)

// ChangeEvent is one entry on the change feed. Upserts carry the full
// entity snapshot for the kind they name; deletes carry only the ID.
type ChangeEvent struct {
	// Kind is the entity type: "profile" or "assignment".
	Kind string `cbor:"kind"`

	// Op is the operation: "upsert" or "delete".
	Op string `cbor:"op"`

	// ID is the entity identifier. Required for deletes; for upserts it
	// must agree with the payload's own ID when both are set.
	ID string `cbor:"id,omitempty"`

	// TimeUS is the event timestamp in microseconds since the epoch.
	TimeUS int64 `cbor:"time_us"`

	Profile    *match.Profile    `cbor:"profile,omitempty"`
	Assignment *match.Assignment `cbor:"assignment,omitempty"`
}

// EntityID returns the ID the event refers to, preferring the payload's
// own ID over the envelope field.
func (e *ChangeEvent) EntityID() string {
	switch {
	case e.Kind == KindProfile && e.Profile != nil && e.Profile.ID != "":
		return e.Profile.ID
	case e.Kind == KindAssignment && e.Assignment != nil && e.Assignment.ID != "":
		return e.Assignment.ID
	}
	return e.ID
}

// DecodeEvent decodes and validates a CBOR-encoded change feed event.
func DecodeEvent(data []byte) (*ChangeEvent, error) {
	if len(data) == 0 {
		return nil, ErrInvalidCBOR
	}

	var event ChangeEvent
	dec := cbor.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCBOR, err)
	}

	if event.Kind != KindProfile && event.Kind != KindAssignment {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, event.Kind)
	}

	switch event.Op {
	case OpUpsert:
		switch event.Kind {
		case KindProfile:
			if event.Profile == nil {
				return nil, ErrMissingPayload
			}
		case KindAssignment:
			if event.Assignment == nil {
				return nil, ErrMissingPayload
			}
		}
	case OpDelete:
		// Deletes carry no payload; the envelope ID is all we have.
		if event.ID == "" {
			return nil, ErrMissingID
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, event.Op)
	}

	if event.EntityID() == "" {
		return nil, ErrMissingID
	}

	return &event, nil
}

// EncodeEvent encodes a change feed event to CBOR bytes.
func EncodeEvent(event *ChangeEvent) ([]byte, error) {
	var buf bytes.Buffer
	enc := cbor.NewEncoder(&buf)
	if err := enc.Encode(event); err != nil {
		return nil, fmt.Errorf("failed to encode CBOR: %w", err)
	}
	return buf.Bytes(), nil
}
