package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantType string
		wantErr  bool
	}{
		{
			name:     "join_room",
			data:     `{"type":"joinRoom","payload":{"type":"article","id":"42"}}`,
			wantType: TypeJoinRoom,
		},
		{
			name:     "no_payload",
			data:     `{"type":"leaveRoom"}`,
			wantType: TypeLeaveRoom,
		},
		{
			name:    "empty_type",
			data:    `{"payload":{}}`,
			wantErr: true,
		},
		{
			name:    "not_json",
			data:    `not json at all`,
			wantErr: true,
		},
		{
			name:    "empty_input",
			data:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if msg.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", msg.Type, tt.wantType)
			}
		})
	}
}

func TestDecodeEmptyTypeSentinel(t *testing.T) {
	_, err := Decode([]byte(`{"type":""}`))
	if !errors.Is(err, ErrEmptyType) {
		t.Errorf("error = %v, want ErrEmptyType", err)
	}
}

func TestDecodePayload(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"joinRoom","payload":{"type":"article","id":"42"}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	var ref RoomRef
	if err := msg.DecodePayload(&ref); err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if ref.Type != "article" || ref.ID != "42" {
		t.Errorf("RoomRef = %+v, want {article 42}", ref)
	}
}

func TestDecodePayloadMissing(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"joinRoom"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	var ref RoomRef
	if err := msg.DecodePayload(&ref); err == nil {
		t.Fatal("expected error for missing payload")
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(TypeLockGranted, LockGranted{
		AnnotationID: "a1",
		UserID:       "u1",
		DisplayName:  "Ada",
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var env struct {
		Type    string      `json:"type"`
		Payload LockGranted `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("round-trip unmarshal: %v", err)
	}
	if env.Type != TypeLockGranted {
		t.Errorf("Type = %q, want %q", env.Type, TypeLockGranted)
	}
	if env.Payload.AnnotationID != "a1" || env.Payload.DisplayName != "Ada" {
		t.Errorf("Payload = %+v", env.Payload)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	data, err := Encode(TypeUserLeft, nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if strings.Contains(string(data), "payload") {
		t.Errorf("nil payload should be omitted, got %s", data)
	}
}

func TestDeniedOmitsEmptyHeldBy(t *testing.T) {
	data, err := Encode(TypeDenied, Denied{Code: DeniedNotHolder})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if strings.Contains(string(data), "heldBy") {
		t.Errorf("empty heldBy should be omitted, got %s", data)
	}
}
