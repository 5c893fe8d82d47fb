package ingest

import (
	"errors"
	"testing"

	"github.com/onmission/matchd/internal/match"
)

func mustEncode(t *testing.T, event *ChangeEvent) []byte {
	t.Helper()
	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	return data
}

func TestDecodeEvent_ProfileUpsert(t *testing.T) {
	data := mustEncode(t, &ChangeEvent{
		Kind:   KindProfile,
		Op:     OpUpsert,
		TimeUS: 1756710000000000,
		Profile: &match.Profile{
			ID:     "profile-1",
			Values: []string{"transparency"},
			Skills: map[string]match.Skill{"go": {ID: "go", Level: 4, Months: 36}},
		},
	})

	event, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Kind != KindProfile || event.Op != OpUpsert {
		t.Errorf("kind/op = %s/%s, want profile/upsert", event.Kind, event.Op)
	}
	if event.EntityID() != "profile-1" {
		t.Errorf("entity id = %q, want profile-1", event.EntityID())
	}
	if event.Profile.Skills["go"].Level != 4 {
		t.Errorf("skill level lost in round trip: %+v", event.Profile.Skills)
	}
}

func TestDecodeEvent_AssignmentDelete(t *testing.T) {
	data := mustEncode(t, &ChangeEvent{
		Kind: KindAssignment,
		Op:   OpDelete,
		ID:   "asg-9",
	})

	event, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.EntityID() != "asg-9" {
		t.Errorf("entity id = %q, want asg-9", event.EntityID())
	}
}

func TestDecodeEvent_PayloadIDWins(t *testing.T) {
	data := mustEncode(t, &ChangeEvent{
		Kind:       KindAssignment,
		Op:         OpUpsert,
		ID:         "envelope-id",
		Assignment: &match.Assignment{ID: "asg-1"},
	})

	event, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.EntityID() != "asg-1" {
		t.Errorf("entity id = %q, want payload id asg-1", event.EntityID())
	}
}

func TestDecodeEvent_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		event   *ChangeEvent
		raw     []byte
		wantErr error
	}{
		{name: "empty payload", raw: []byte{}, wantErr: ErrInvalidCBOR},
		{name: "garbage payload", raw: []byte{0xff, 0x00, 0x13}, wantErr: ErrInvalidCBOR},
		{
			name:    "unknown kind",
			event:   &ChangeEvent{Kind: "org", Op: OpUpsert, ID: "x"},
			wantErr: ErrUnknownKind,
		},
		{
			name:    "unknown op",
			event:   &ChangeEvent{Kind: KindProfile, Op: "merge", ID: "x"},
			wantErr: ErrUnknownOp,
		},
		{
			name:    "upsert without payload",
			event:   &ChangeEvent{Kind: KindProfile, Op: OpUpsert, ID: "x"},
			wantErr: ErrMissingPayload,
		},
		{
			name:    "delete without id",
			event:   &ChangeEvent{Kind: KindAssignment, Op: OpDelete},
			wantErr: ErrMissingID,
		},
		{
			name:    "upsert with empty payload id",
			event:   &ChangeEvent{Kind: KindProfile, Op: OpUpsert, Profile: &match.Profile{}},
			wantErr: ErrMissingID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.raw
			if tt.event != nil {
				data = mustEncode(t, tt.event)
			}

			_, err := DecodeEvent(data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
