package game

import (
	"context"

	"github.com/MJE43/oligopoly-sim-go/internal/market"
	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

// DecisionRequest is everything a decision provider may consider when
// choosing a firm's control variable for a round.
type DecisionRequest struct {
	Config      *Config
	Firm        int // 1-based
	Replication int
	Round       int
	History     []market.RoundResult
	// Transcript holds this round's communication messages, already
	// complete by the time decisions are requested.
	Transcript []market.TranscriptEntry
	Params     params.Realized
}

// MessageRequest asks a provider for one communication-phase message.
// Transcript holds the messages already spoken this round, in order.
type MessageRequest struct {
	Config     *Config
	Firm       int
	Round      int
	History    []market.RoundResult
	Transcript []market.TranscriptEntry
}

// DecisionProvider is the contract toward the decision-making agents. The
// core never sees inside their reasoning: a decision is a scalar plus
// optional audit text. Decision failures degrade to a default decision;
// communication failures are fatal to the round. Timeouts and retries are
// the provider's own concern.
type DecisionProvider interface {
	Decision(ctx context.Context, req DecisionRequest) (market.Decision, error)
	CommunicationMessage(ctx context.Context, req MessageRequest) (string, error)
}

// Store is the optional persistence collaborator. Absence or failure must
// never block gameplay.
type Store interface {
	SaveGame(ctx context.Context, st *State) error
}
