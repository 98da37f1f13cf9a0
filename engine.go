package coach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/wesleylhandy/tuition-lift-sub001/finaid"
)

// HaltReason explains why an Advance call returned control to the caller.
type HaltReason string

const (
	// HaltTerminal means the workflow pass completed for this thread.
	HaltTerminal HaltReason = "terminal"

	// HaltSuspended means the thread is waiting on an external event and
	// must not be re-entered automatically.
	HaltSuspended HaltReason = "suspended"

	// HaltYield means the next node is concrete but not marked
	// auto-continue; the caller re-triggers later.
	HaltYield HaltReason = "yield"

	// HaltStepBudget means the per-call step budget was exhausted. The
	// last checkpoint is durable and a further Advance resumes from it.
	HaltStepBudget HaltReason = "step_budget"
)

// AdvanceResult summarizes a successful Advance call.
type AdvanceResult struct {
	ThreadID    string     `json:"thread_id"`
	Steps       int        `json:"steps"`
	Halt        HaltReason `json:"halt"`
	PendingNode string     `json:"pending_node"`
	Version     int64      `json:"version"`
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	Plan        *Plan
	Registry    *Registry
	Checkpoints CheckpointStore
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Engine executes the currently pending node for a thread, persists a
// checkpoint after every step, and either advances, suspends, or halts.
// Advance calls for distinct threads need no coordination; calls for the
// same thread are serialized by the checkpoint store's compare-and-swap.
type Engine struct {
	plan        *Plan
	registry    *Registry
	checkpoints CheckpointStore
	logger      *slog.Logger
	clock       func() time.Time
}

// NewEngine creates an engine for the given plan and registry. Every node
// the plan declares must already be registered.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Plan == nil {
		return nil, fmt.Errorf("plan is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.Checkpoints == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if err := opts.Plan.Validate(opts.Registry); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{
		plan:        opts.Plan,
		registry:    opts.Registry,
		checkpoints: opts.Checkpoints,
		logger:      opts.Logger,
		clock:       opts.Clock,
	}, nil
}

// Advance loads the latest checkpoint for a thread (initializing a fresh
// state at the plan entry node if none exists), executes the pending node,
// persists the outcome, and repeats while nodes route to auto-continue
// successors. It returns when the pass completes, suspends, yields, or
// exhausts the step budget.
//
// A node error halts the thread at the failing node: the failure is
// recorded in history and a later Advance re-executes the same node.
// A checkpoint version conflict aborts with ConcurrentAdvanceError and no
// further side effects.
func (e *Engine) Advance(ctx context.Context, threadID string) (*AdvanceResult, error) {
	if threadID == "" {
		return nil, fmt.Errorf("thread id is required")
	}
	logger := e.logger.With("thread_id", threadID)

	state, version, err := e.loadOrInit(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if state.Terminal() {
		logger.Debug("thread already terminal")
		return &AdvanceResult{
			ThreadID:    threadID,
			Halt:        HaltTerminal,
			PendingNode: TerminalNode,
			Version:     version,
		}, nil
	}

	steps := 0
	for steps < e.plan.MaxSteps() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := state.PendingNode
		node, ok := e.registry.Get(name)
		if !ok || !e.plan.Declares(name) {
			// Reachable only through a corrupted checkpoint. Halt the
			// thread where it stands and surface to an operator.
			logger.Error("pending node not registered", "node", name)
			return nil, &UnknownNodeError{Node: name}
		}

		next, route, nodeErr := node.Execute(ctx, state.Clone())
		now := e.clock()
		steps++

		if nodeErr != nil {
			failed := state.Clone()
			failed.appendHistory(name, now, OutcomeFailed, nodeErr.Error())
			if saveErr := e.save(ctx, failed, version); saveErr != nil {
				if errors.Is(saveErr, ErrVersionConflict) {
					return nil, &ConcurrentAdvanceError{ThreadID: threadID, Version: version}
				}
				return nil, fmt.Errorf("failed to checkpoint node failure: %w", saveErr)
			}
			logger.Warn("node failed, thread halted",
				"node", name,
				"error", nodeErr,
				"version", failed.Version)
			return nil, &NodeExecutionError{ThreadID: threadID, Node: name, Err: nodeErr}
		}

		if next == nil {
			return nil, fmt.Errorf("node %q returned nil state", name)
		}
		next.ThreadID = state.ThreadID
		if next.UserID == "" {
			next.UserID = state.UserID
		}

		// Refuse writes that would break the bracket invariant rather
		// than letting them corrupt the stored state.
		if got, want := next.DerivedBracket, finaid.ClassifyHouseholdIncome(next.Profile.FinancialIndex); got != want {
			return nil, fmt.Errorf("node %q left derived bracket %s inconsistent with financial index (want %s)", name, got, want)
		}

		outcome := OutcomeCompleted
		switch {
		case route.IsTerminal():
			next.PendingNode = TerminalNode
		case route.IsSuspend():
			next.PendingNode = name
			outcome = OutcomeSuspended
		default:
			target, _ := route.Next()
			if _, ok := e.registry.Get(target); !ok || !e.plan.Declares(target) {
				// Refused at the boundary: the checkpoint must never
				// point at an unregistered node.
				return nil, &UnknownNodeError{Node: target}
			}
			next.PendingNode = target
		}
		next.appendHistory(name, now, outcome, "")

		if saveErr := e.save(ctx, next, version); saveErr != nil {
			if errors.Is(saveErr, ErrVersionConflict) {
				return nil, &ConcurrentAdvanceError{ThreadID: threadID, Version: version}
			}
			return nil, fmt.Errorf("failed to save checkpoint: %w", saveErr)
		}
		version = next.Version
		state = next

		logger.Debug("node executed",
			"node", name,
			"route", route.String(),
			"version", version,
			"step", steps)

		switch {
		case route.IsTerminal():
			logger.Info("workflow pass completed", "steps", steps, "version", version)
			return &AdvanceResult{
				ThreadID:    threadID,
				Steps:       steps,
				Halt:        HaltTerminal,
				PendingNode: TerminalNode,
				Version:     version,
			}, nil
		case route.IsSuspend():
			logger.Info("thread suspended", "node", name, "steps", steps, "version", version)
			return &AdvanceResult{
				ThreadID:    threadID,
				Steps:       steps,
				Halt:        HaltSuspended,
				PendingNode: state.PendingNode,
				Version:     version,
			}, nil
		default:
			if !e.plan.AutoContinue(state.PendingNode) {
				return &AdvanceResult{
					ThreadID:    threadID,
					Steps:       steps,
					Halt:        HaltYield,
					PendingNode: state.PendingNode,
					Version:     version,
				}, nil
			}
		}
	}

	logger.Warn("step budget exhausted", "steps", steps, "pending_node", state.PendingNode)
	return &AdvanceResult{
		ThreadID:    threadID,
		Steps:       steps,
		Halt:        HaltStepBudget,
		PendingNode: state.PendingNode,
		Version:     version,
	}, nil
}

// History returns the recorded history for a thread, oldest-first.
func (e *Engine) History(ctx context.Context, threadID string) ([]HistoryEntry, error) {
	checkpoint, err := e.checkpoints.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return append([]HistoryEntry(nil), checkpoint.State.History...), nil
}

// loadOrInit returns the current state and stored version for a thread,
// initializing a fresh state at the entry node when no checkpoint exists.
func (e *Engine) loadOrInit(ctx context.Context, threadID string) (*WorkflowState, int64, error) {
	checkpoint, err := e.checkpoints.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, ErrCheckpointNotFound) {
			return NewWorkflowState(threadID, e.plan.Entry()), 0, nil
		}
		return nil, 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if checkpoint.State == nil {
		return nil, 0, fmt.Errorf("checkpoint for thread %q has no state", threadID)
	}
	state := checkpoint.State.Clone()
	state.PendingNode = checkpoint.PendingNode
	state.Version = checkpoint.Version
	return state, checkpoint.Version, nil
}

// save persists state as a checkpoint at expectedVersion+1.
func (e *Engine) save(ctx context.Context, state *WorkflowState, expectedVersion int64) error {
	state.Version = expectedVersion + 1
	checkpoint := &Checkpoint{
		ThreadID:     state.ThreadID,
		State:        state,
		PendingNode:  state.PendingNode,
		Version:      state.Version,
		CheckpointAt: e.clock(),
	}
	return e.checkpoints.Save(ctx, checkpoint, expectedVersion)
}
