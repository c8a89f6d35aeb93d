package rag

import "fmt"

// TurnState tracks one chat turn through its lifecycle.
type TurnState string

const (
	TurnIdle            TurnState = "idle"
	TurnAwaitingContext TurnState = "awaiting_context"
	TurnStreaming       TurnState = "streaming"
	TurnDone            TurnState = "done"
	TurnFailed          TurnState = "failed"
)

// validNext is the forward edge set; terminal states have none.
var validNext = map[TurnState][]TurnState{
	TurnIdle:            {TurnAwaitingContext},
	TurnAwaitingContext: {TurnStreaming, TurnFailed},
	TurnStreaming:       {TurnDone, TurnFailed},
}

// Turn is a single-goroutine state machine; it guards against programming
// errors in the orchestrator, not against concurrent use.
type Turn struct {
	state TurnState
}

func NewTurn() *Turn {
	return &Turn{state: TurnIdle}
}

func (t *Turn) State() TurnState {
	return t.state
}

// To moves the turn forward. Invalid transitions are rejected so a bug in
// the orchestrator surfaces as an error instead of silent state corruption.
func (t *Turn) To(next TurnState) error {
	for _, allowed := range validNext[t.state] {
		if allowed == next {
			t.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid turn transition %s -> %s", t.state, next)
}

// Terminal reports whether the turn has finished, successfully or not.
func (t *Turn) Terminal() bool {
	return t.state == TurnDone || t.state == TurnFailed
}
