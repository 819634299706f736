package game

import (
	"time"

	"github.com/MJE43/oligopoly-sim-go/internal/market"
	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

// Status is the orchestrator lifecycle state.
type Status string

const (
	StatusConfiguring Status = "configuring"
	StatusRunning     Status = "running"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
)

// ReplicationSummary aggregates one replication's rounds.
type ReplicationSummary struct {
	TotalProfits   []float64 `json:"totalProfits"`
	AvgQuantities  []float64 `json:"avgQuantities"`
	AvgPrices      []float64 `json:"avgPrices"`
	AvgMarketPrice float64   `json:"avgMarketPrice"`
}

// ReplicationResult is the immutable record of one finished replication.
type ReplicationResult struct {
	Replication int                  `json:"replication"`
	Rounds      []market.RoundResult `json:"rounds"`
	Summary     ReplicationSummary   `json:"summary"`
	StartedAt   time.Time            `json:"startedAt"`
	EndedAt     time.Time            `json:"endedAt"`
}

// NashDeviation measures how far the first two firms' average decisions
// landed from the two-firm Nash benchmark.
type NashDeviation struct {
	Firm1 float64 `json:"firm1"`
	Firm2 float64 `json:"firm2"`
}

// Summary is the whole-game aggregate computed at completion.
type Summary struct {
	TotalProfits  []float64      `json:"totalProfits"`
	AvgQuantities []float64      `json:"avgQuantities"`
	AvgPrices     []float64      `json:"avgPrices"`
	NashDeviation *NashDeviation `json:"nashDeviation,omitempty"`
}

// State is the single live game state an orchestrator owns. It is
// superseded wholesale on reset.
type State struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	Config     *Config    `json:"config"`
	Benchmarks Benchmarks `json:"benchmarks"`

	// GameParams is the game-wide realized parameter set; nil when the
	// configuration is fully deterministic or uses a narrower scope.
	GameParams *params.Realized `json:"gameParams,omitempty"`

	CurrentReplication int `json:"currentReplication"`
	CurrentRound       int `json:"currentRound"`

	// Rounds is the in-progress replication's round list.
	Rounds       []market.RoundResult `json:"rounds"`
	Replications []ReplicationResult  `json:"replications"`
	Summary      *Summary             `json:"summary,omitempty"`
	LastError    string               `json:"lastError,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// summarizeRounds computes per-firm aggregates over a round list.
func summarizeRounds(firms int, rounds []market.RoundResult) ReplicationSummary {
	s := ReplicationSummary{
		TotalProfits:  make([]float64, firms),
		AvgQuantities: make([]float64, firms),
		AvgPrices:     make([]float64, firms),
	}
	if len(rounds) == 0 {
		return s
	}
	priceSum := 0.0
	for _, r := range rounds {
		roundPrice := 0.0
		for i, f := range r.Firms {
			if i >= firms {
				break
			}
			s.TotalProfits[i] += f.Profit
			s.AvgQuantities[i] += f.Quantity
			s.AvgPrices[i] += f.Price
			roundPrice += f.Price
		}
		if len(r.Firms) > 0 {
			priceSum += roundPrice / float64(len(r.Firms))
		}
	}
	n := float64(len(rounds))
	for i := 0; i < firms; i++ {
		s.AvgQuantities[i] /= n
		s.AvgPrices[i] /= n
	}
	s.AvgMarketPrice = priceSum / n
	return s
}

// summarizeGame folds every replication into the final game summary and
// measures deviation from the two-firm Nash benchmark when one exists.
func summarizeGame(st *State) *Summary {
	firms := st.Config.Firms
	out := &Summary{
		TotalProfits:  make([]float64, firms),
		AvgQuantities: make([]float64, firms),
		AvgPrices:     make([]float64, firms),
	}
	rounds := 0
	for _, rep := range st.Replications {
		rounds += len(rep.Rounds)
		for i := 0; i < firms; i++ {
			out.TotalProfits[i] += rep.Summary.TotalProfits[i]
			out.AvgQuantities[i] += rep.Summary.AvgQuantities[i] * float64(len(rep.Rounds))
			out.AvgPrices[i] += rep.Summary.AvgPrices[i] * float64(len(rep.Rounds))
		}
	}
	if rounds > 0 {
		for i := 0; i < firms; i++ {
			out.AvgQuantities[i] /= float64(rounds)
			out.AvgPrices[i] /= float64(rounds)
		}
	}

	if nash := st.Benchmarks.Nash; nash != nil && firms >= 2 {
		dev := &NashDeviation{}
		if st.Config.Mode == market.ModePrice {
			dev.Firm1 = out.AvgPrices[0] - nash.Price
			dev.Firm2 = out.AvgPrices[1] - nash.Price
		} else {
			dev.Firm1 = out.AvgQuantities[0] - nash.Quantity1
			dev.Firm2 = out.AvgQuantities[1] - nash.Quantity2
		}
		out.NashDeviation = dev
	}
	return out
}
