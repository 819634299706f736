package game

import (
	"time"

	"github.com/MJE43/oligopoly-sim-go/internal/market"
)

// EventType enumerates the lifecycle events the orchestrator emits.
type EventType string

const (
	EventGameState             EventType = "game_state"
	EventReplicationStarted    EventType = "replication_started"
	EventReplicationComplete   EventType = "replication_complete"
	EventRoundStarted          EventType = "round_started"
	EventCommunicationStarted  EventType = "communication_started"
	EventCommunicationMessage  EventType = "communication_message"
	EventCommunicationComplete EventType = "communication_complete"
	EventDecisionPending       EventType = "decision_pending"
	EventFirmDecision          EventType = "firm_decision"
	EventRoundComplete         EventType = "round_complete"
	EventGameOver              EventType = "game_over"
	EventError                 EventType = "error"
)

// Event is one structured lifecycle notification. Which payload fields are
// populated depends on Type.
type Event struct {
	Type      EventType `json:"type"`
	GameID    string    `json:"gameId"`
	Timestamp time.Time `json:"timestamp"`

	Replication       int                      `json:"replication,omitempty"`
	Replications      int                      `json:"replications,omitempty"`
	Round             int                      `json:"round,omitempty"`
	Firm              int                      `json:"firm,omitempty"`
	Value             float64                  `json:"value,omitempty"`
	Rationale         string                   `json:"rationale,omitempty"`
	Text              string                   `json:"text,omitempty"`
	Transcript        []market.TranscriptEntry `json:"transcript,omitempty"`
	RoundResult       *market.RoundResult      `json:"roundResult,omitempty"`
	ReplicationResult *ReplicationResult       `json:"replicationResult,omitempty"`
	State             *State                   `json:"state,omitempty"`
	Message           string                   `json:"message,omitempty"`
}

// Emitter pushes lifecycle events to observers. Delivery is fire-and-forget
// from the orchestrator's perspective; implementations must not block.
type Emitter interface {
	Emit(Event)
}
