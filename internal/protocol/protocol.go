// Package protocol is the JSON wire format between a match and remote
// control code. A client sends HELLO and gets WELCOME, then answers each OBS
// with one ACT until RESULT closes the match.
package protocol

import (
	"encoding/json"
	"errors"
)

// Version must match in HELLO and in every ACT.
const Version = "1.0"

const (
	TypeHello   = "HELLO"   // client to server
	TypeWelcome = "WELCOME" // reply to HELLO
	TypeObs     = "OBS"     // one per turn
	TypeAct     = "ACT"     // answers the OBS of the same turn
	TypeResult  = "RESULT"  // last message of a match
)

var errNoType = errors.New("message has no type")

// Envelope holds the fields every message carries.
type Envelope struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

// Peek decodes only the envelope, so readers can dispatch on Type before
// decoding the full message.
func Peek(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, errNoType
	}
	return env, nil
}
