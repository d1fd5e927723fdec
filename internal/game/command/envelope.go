package command

import "time"

// Envelope is a command stamped by the relay with its position in a game's
// ordered log. Seq starts at 1 and increases by one per accepted submission.
type Envelope struct {
	Seq     uint64    `json:"seq"`
	Slot    string    `json:"slot"`
	At      time.Time `json:"at"`
	Command Command   `json:"command"`
}
