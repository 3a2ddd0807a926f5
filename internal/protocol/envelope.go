package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned for envelopes or payloads that cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// Envelope is the outer frame of every message. Data carries the payload as
// a JSON document encoded into a JSON string, or null.
type Envelope struct {
	Action Action          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type outgoing struct {
	Action Action  `json:"action"`
	Data   *string `json:"data"`
}

// Encode builds an envelope whose data is payload marshalled to JSON and
// then carried as a string.
func Encode(action Action, payload any) ([]byte, error) {
	inner, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", action, err)
	}
	s := string(inner)
	return json.Marshal(outgoing{Action: action, Data: &s})
}

// EncodeNull builds an envelope with data: null.
func EncodeNull(action Action) []byte {
	// Marshalling a string tag and a nil pointer cannot fail.
	b, _ := json.Marshal(outgoing{Action: action})
	return b
}

// Decode parses the outer envelope only. The payload is left for the
// action's handler.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Action == "" {
		return Envelope{}, fmt.Errorf("%w: missing action", ErrMalformed)
	}
	return env, nil
}

// Payload is the raw data field of an incoming envelope.
type Payload json.RawMessage

// Decode unmarshals the payload into v. Both the string-wrapped form the
// front-end sends and a bare JSON value are accepted.
func (p Payload) Decode(v any) error {
	raw := bytes.TrimSpace(p)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw = []byte(inner)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
