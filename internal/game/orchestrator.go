package game

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/MJE43/oligopoly-sim-go/internal/market"
	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

// persistTimeout bounds the best-effort snapshot save at game completion.
const persistTimeout = 10 * time.Second

// Orchestrator owns exactly one live game state and drives the
// replication/round loop. The loop is a single logical sequence; decision
// requests within a round are the only concurrent part.
type Orchestrator struct {
	mu       sync.RWMutex
	logger   *log.Logger
	provider DecisionProvider
	emitter  Emitter
	store    Store
	realizer *params.Realizer

	state  *State
	gate   *pauseGate
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an orchestrator. The provider is required; the emitter may be
// nil when nobody observes the game.
func New(provider DecisionProvider, emitter Emitter) *Orchestrator {
	return &Orchestrator{
		logger:   log.New(os.Stdout, "[GAME] ", log.LstdFlags),
		provider: provider,
		emitter:  emitter,
		realizer: params.NewRealizer(),
	}
}

// SetStore attaches the optional persistence collaborator.
func (o *Orchestrator) SetStore(s Store) { o.store = s }

// SetRealizer swaps the parameter realizer, used for deterministic runs.
func (o *Orchestrator) SetRealizer(r *params.Realizer) { o.realizer = r }

// SetLogger replaces the default logger.
func (o *Orchestrator) SetLogger(l *log.Logger) { o.logger = l }

// Configure validates the configuration, computes the four equilibrium
// benchmarks once, and enters the configuring state. Under a game-wide
// variation scope with randomized specs, realization happens here and the
// drawn set is reused for the whole game.
func (o *Orchestrator) Configure(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	if st := o.state; st != nil && (st.Status == StatusRunning || st.Status == StatusPaused) {
		o.mu.Unlock()
		return fmt.Errorf("cannot reconfigure while a game is %s", st.Status)
	}
	st := o.newState(cfg)
	o.state = st
	o.mu.Unlock()

	o.emitState(st)
	return nil
}

// newState builds a fresh game state with a new identity. Callers hold the
// lock or own the orchestrator exclusively.
func (o *Orchestrator) newState(cfg *Config) *State {
	benchParams := cfg.literalParams()
	var gameParams *params.Realized
	if params.HasRandom(cfg.inputs()) && cfg.scope() == ScopeGame {
		drawn := o.realizer.DrawAll(cfg.inputs())
		gameParams = &drawn
		benchParams = drawn
	}
	return &State{
		ID:                 uuid.NewString(),
		Status:             StatusConfiguring,
		Config:             cfg,
		Benchmarks:         computeBenchmarks(cfg.Mode, benchParams),
		GameParams:         gameParams,
		CurrentReplication: 1,
		CurrentRound:       1,
		CreatedAt:          time.Now(),
	}
}

// Start transitions to running and launches the replication loop. Starting
// an unconfigured or already-running game is rejected.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	st := o.state
	if st == nil {
		o.mu.Unlock()
		return fmt.Errorf("no game configured")
	}
	if st.Status != StatusConfiguring {
		o.mu.Unlock()
		return fmt.Errorf("cannot start a game that is %s", st.Status)
	}

	now := time.Now()
	st.Status = StatusRunning
	st.StartedAt = &now
	o.gate = newPauseGate()
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.done = make(chan struct{})
	o.mu.Unlock()

	o.emitState(st)
	go o.run(ctx, st)
	return nil
}

// Pause requests a cooperative suspension. The flag is honored between
// rounds and between replications; an in-flight round always finishes.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	st := o.state
	if st == nil || st.Status != StatusRunning {
		o.mu.Unlock()
		return fmt.Errorf("game is not running")
	}
	st.Status = StatusPaused
	gate := o.gate
	o.mu.Unlock()

	gate.Pause()
	o.emitState(st)
	return nil
}

// Resume continues a paused game from the next unplayed round.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	st := o.state
	if st == nil || st.Status != StatusPaused {
		o.mu.Unlock()
		return fmt.Errorf("game is not paused")
	}
	st.Status = StatusRunning
	gate := o.gate
	o.mu.Unlock()

	gate.Resume()
	o.emitState(st)
	return nil
}

// Reset discards the current state and reconfigures from the same
// configuration under a fresh game identity. A running loop is torn down
// first; its in-flight round is discarded.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	st := o.state
	if st == nil {
		o.mu.Unlock()
		return fmt.Errorf("no game configured")
	}
	cfg := st.Config
	cancel := o.cancel
	gate := o.gate
	done := o.done
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if gate != nil {
		// Unblock a loop parked at a pause boundary so it can observe
		// the cancellation.
		gate.Resume()
	}
	if done != nil {
		<-done
	}

	o.mu.Lock()
	fresh := o.newState(cfg)
	o.state = fresh
	o.cancel = nil
	o.done = nil
	o.gate = nil
	o.mu.Unlock()

	o.emitState(fresh)
	return nil
}

// Snapshot returns a copy of the current game state. The contained slices
// are shared read-only views; callers must not mutate them.
func (o *Orchestrator) Snapshot() (State, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.state == nil {
		return State{}, false
	}
	return *o.state, true
}

// Wait blocks until the running loop exits. Returns immediately when no
// loop was started.
func (o *Orchestrator) Wait() {
	o.mu.RLock()
	done := o.done
	o.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// run is the replication/round loop. It runs in its own goroutine and is
// the only writer of round and replication results.
func (o *Orchestrator) run(ctx context.Context, st *State) {
	defer func() {
		o.mu.Lock()
		done := o.done
		if o.state == st {
			o.done = nil
		}
		o.mu.Unlock()
		if done != nil {
			close(done)
		}
	}()

	cfg := st.Config
	hasRandom := params.HasRandom(cfg.inputs())

	base := cfg.literalParams()
	if st.GameParams != nil {
		base = *st.GameParams
	}

	for rep := 1; rep <= cfg.Replications; rep++ {
		if o.gate.Wait(ctx) != nil {
			return
		}

		repParams := base
		if hasRandom && cfg.scope() == ScopeReplication {
			repParams = o.realizer.DrawAll(cfg.inputs())
		}

		repStart := time.Now()
		o.mutate(st, func() {
			st.CurrentReplication = rep
			st.CurrentRound = 1
			st.Rounds = nil
		})
		o.emit(Event{Type: EventReplicationStarted, Replication: rep, Replications: cfg.Replications})

		var repRounds []market.RoundResult
		for round := 1; round <= cfg.Rounds; round++ {
			if o.gate.Wait(ctx) != nil {
				return
			}

			roundParams := repParams
			if hasRandom && cfg.scope() == ScopeRound {
				roundParams = o.realizer.DrawAll(cfg.inputs())
			}

			o.emit(Event{Type: EventRoundStarted, Replication: rep, Round: round})

			transcript, err := o.communicationPhase(ctx, cfg, rep, round, repRounds)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				o.fail(st, fmt.Sprintf("communication phase failed in round %d: %v", round, err))
				return
			}

			decisions := o.collectDecisions(ctx, cfg, rep, round, repRounds, transcript, roundParams)
			if ctx.Err() != nil {
				return
			}

			firms, err := market.Compute(cfg.Mode, decisions, roundParams, cfg.Bounds)
			if err != nil {
				o.fail(st, fmt.Sprintf("round %d could not be settled: %v", round, err))
				return
			}

			var snapshot *params.Realized
			if hasRandom {
				p := roundParams
				snapshot = &p
			}
			result := market.NewRoundResult(round, firms, snapshot, transcript)
			repRounds = append(repRounds, result)

			o.mutate(st, func() {
				st.Rounds = repRounds
				st.CurrentRound = round + 1
			})
			o.emit(Event{Type: EventRoundComplete, Replication: rep, Round: round, RoundResult: &result})
		}

		repResult := ReplicationResult{
			Replication: rep,
			Rounds:      repRounds,
			Summary:     summarizeRounds(cfg.Firms, repRounds),
			StartedAt:   repStart,
			EndedAt:     time.Now(),
		}
		o.mutate(st, func() {
			st.Replications = append(st.Replications, repResult)
			st.Rounds = nil
		})
		o.emit(Event{Type: EventReplicationComplete, Replication: rep, ReplicationResult: &repResult})
	}

	o.finish(st)
}

// communicationPhase runs the strictly sequential round-robin of messages.
// Each message sees the transcript so far, which is why this phase can
// never be concurrent. A provider failure here is fatal to the round.
func (o *Orchestrator) communicationPhase(ctx context.Context, cfg *Config, rep, round int, history []market.RoundResult) ([]market.TranscriptEntry, error) {
	if !cfg.Communication.Enabled {
		return nil, nil
	}

	o.emit(Event{Type: EventCommunicationStarted, Replication: rep, Round: round})

	var transcript []market.TranscriptEntry
	for m := 0; m < cfg.Communication.MessagesPerRound; m++ {
		firm := m%cfg.Firms + 1
		text, err := o.provider.CommunicationMessage(ctx, MessageRequest{
			Config:     cfg,
			Firm:       firm,
			Round:      round,
			History:    history,
			Transcript: transcript,
		})
		if err != nil {
			return nil, fmt.Errorf("firm %d message: %w", firm, err)
		}
		transcript = append(transcript, market.TranscriptEntry{Firm: firm, Text: text})
		o.emit(Event{Type: EventCommunicationMessage, Replication: rep, Round: round, Firm: firm, Text: text})
	}

	o.emit(Event{Type: EventCommunicationComplete, Replication: rep, Round: round, Transcript: transcript})
	return transcript, nil
}

// collectDecisions fans out to every firm concurrently and blocks until all
// resolve. A single firm's failure never aborts the round: it degrades to a
// deterministic default (zero quantity, or marginal cost as the price) and
// the failures are logged in aggregate.
func (o *Orchestrator) collectDecisions(ctx context.Context, cfg *Config, rep, round int, history []market.RoundResult, transcript []market.TranscriptEntry, p params.Realized) []market.Decision {
	decisions := make([]market.Decision, cfg.Firms)

	var g errgroup.Group
	var failMu sync.Mutex
	var failures error

	for i := 0; i < cfg.Firms; i++ {
		firm := i + 1
		o.emit(Event{Type: EventDecisionPending, Replication: rep, Round: round, Firm: firm})
		g.Go(func() error {
			d, err := o.provider.Decision(ctx, DecisionRequest{
				Config:      cfg,
				Firm:        firm,
				Replication: rep,
				Round:       round,
				History:     history,
				Transcript:  transcript,
				Params:      p,
			})
			if err != nil {
				failMu.Lock()
				failures = multierr.Append(failures, fmt.Errorf("firm %d: %w", firm, err))
				failMu.Unlock()
				d = defaultDecision(cfg.Mode, p, firm-1)
			}
			decisions[firm-1] = d
			o.emit(Event{Type: EventFirmDecision, Replication: rep, Round: round, Firm: firm, Value: d.Value, Rationale: d.Rationale})
			return nil
		})
	}
	g.Wait()

	if failures != nil && ctx.Err() == nil {
		o.logger.Printf("round %d: defaulted decisions after provider failures: %v", round, failures)
	}
	return decisions
}

// defaultDecision is the deterministic stand-in when a firm's provider
// fails: produce nothing under quantity-setting, price at marginal cost
// under price-setting.
func defaultDecision(mode market.Mode, p params.Realized, idx int) market.Decision {
	if mode == market.ModePrice {
		return market.Decision{Value: p.LinearCosts[idx], Rationale: "defaulted: provider failure"}
	}
	return market.Decision{Value: 0, Rationale: "defaulted: provider failure"}
}

// finish computes the overall summary, transitions to completed, and hands
// the snapshot to the persistence and notification collaborators. Both
// hand-offs are best-effort.
func (o *Orchestrator) finish(st *State) {
	now := time.Now()
	o.mutate(st, func() {
		st.Summary = summarizeGame(st)
		st.Status = StatusCompleted
		st.CompletedAt = &now
	})

	if o.store != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		snap, ok := o.Snapshot()
		if ok {
			if err := o.store.SaveGame(saveCtx, &snap); err != nil {
				o.logger.Printf("game %s: snapshot save failed: %v", st.ID, err)
			}
		}
	}

	if snap, ok := o.Snapshot(); ok {
		o.emit(Event{Type: EventGameOver, State: &snap})
	}
}

// fail records a fatal round-level error, surfaces it via the error event,
// and completes the game.
func (o *Orchestrator) fail(st *State, msg string) {
	o.logger.Printf("game %s: %s", st.ID, msg)
	now := time.Now()
	o.mutate(st, func() {
		st.LastError = msg
		st.Status = StatusCompleted
		st.CompletedAt = &now
	})
	o.emit(Event{Type: EventError, Message: msg})
	if snap, ok := o.Snapshot(); ok {
		o.emit(Event{Type: EventGameOver, State: &snap})
	}
}

// mutate applies fn to the state under the lock, unless the state has been
// superseded by a reset in the meantime.
func (o *Orchestrator) mutate(st *State, fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != st {
		return
	}
	fn()
}

func (o *Orchestrator) emit(ev Event) {
	if o.emitter == nil {
		return
	}
	o.mu.RLock()
	if o.state != nil {
		ev.GameID = o.state.ID
	}
	o.mu.RUnlock()
	ev.Timestamp = time.Now()
	o.emitter.Emit(ev)
}

func (o *Orchestrator) emitState(st *State) {
	if o.emitter == nil {
		return
	}
	o.mu.RLock()
	snap := *st
	o.mu.RUnlock()
	o.emit(Event{Type: EventGameState, State: &snap})
}
