package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedState is returned by DecodeState when a document does not
// have the expected shape.
var ErrMalformedState = errors.New("malformed agency state")

// EncodeState serialises the document in its persisted JSON form.
func EncodeState(s *AgencyState) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode agency state: %w", err)
	}
	return string(raw), nil
}

// DecodeState parses a persisted document. Both managers and accounts must
// be JSON arrays; anything else is rejected with ErrMalformedState.
func DecodeState(raw string) (*AgencyState, error) {
	var shape struct {
		Managers json.RawMessage `json:"managers"`
		Accounts json.RawMessage `json:"accounts"`
	}
	if err := json.Unmarshal([]byte(raw), &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if !isJSONArray(shape.Managers) || !isJSONArray(shape.Accounts) {
		return nil, fmt.Errorf("%w: managers and accounts must be arrays", ErrMalformedState)
	}

	var s AgencyState
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	normalize(&s)
	return &s, nil
}

func isJSONArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

// normalize replaces nil slices with empty ones and gives ownerless
// campaigns to the administrator pool.
func normalize(s *AgencyState) {
	if s.Managers == nil {
		s.Managers = []Manager{}
	}
	if s.Accounts == nil {
		s.Accounts = []Account{}
	}
	for i := range s.Accounts {
		acc := &s.Accounts[i]
		if acc.Campaigns == nil {
			acc.Campaigns = []Campaign{}
		}
		for j := range acc.Campaigns {
			c := &acc.Campaigns[j]
			if c.OwnerID == "" {
				c.OwnerID = AdminOwnerID
			}
			if c.Keywords == nil {
				c.Keywords = []string{}
			}
		}
	}
}
