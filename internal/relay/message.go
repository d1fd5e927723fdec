package relay

import (
	"encoding/json"

	"github.com/cory-johannsen/skirmish/internal/game/command"
)

// Message kinds sent from the relay to a client.
const (
	KindEnvelope = "envelope"
	KindError    = "error"
	KindClosed   = "closed"
)

// Message is one frame sent to a client. Clients send bare {type, payload}
// commands; the relay answers with envelopes, errors addressed to the
// sender alone, and a final closed frame when the game ends.
type Message struct {
	Kind     string            `json:"kind"`
	Envelope *command.Envelope `json:"envelope,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func encode(m Message) []byte {
	// Message holds only JSON-safe values, so Marshal cannot fail.
	data, _ := json.Marshal(m)
	return data
}
