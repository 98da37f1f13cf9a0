package coach

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wesleylhandy/tuition-lift-sub001/finaid"
)

func newTestEngine(t *testing.T, store CheckpointStore, planNodes []*PlanNode, entry string, maxSteps int, nodes ...Node) *Engine {
	t.Helper()
	registry := NewRegistry()
	for _, node := range nodes {
		require.NoError(t, registry.Register(node))
	}
	plan, err := NewPlan(PlanOptions{
		Name:     "test-plan",
		Entry:    entry,
		MaxSteps: maxSteps,
		Nodes:    planNodes,
	})
	require.NoError(t, err)
	engine, err := NewEngine(EngineOptions{
		Plan:        plan,
		Registry:    registry,
		Checkpoints: store,
	})
	require.NoError(t, err)
	return engine
}

func passThrough(name, next string) Node {
	return NewNodeFunc(name, func(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error) {
		return state, RouteTo(next), nil
	})
}

func terminal(name string) Node {
	return NewNodeFunc(name, func(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error) {
		return state, RouteTerminal(), nil
	})
}

func TestNewEngineValidation(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(terminal("only")))
	plan, err := NewPlan(PlanOptions{
		Name:  "p",
		Entry: "only",
		Nodes: []*PlanNode{{Name: "only"}, {Name: "ghost"}},
	})
	require.NoError(t, err)

	_, err = NewEngine(EngineOptions{
		Plan:        plan,
		Registry:    registry,
		Checkpoints: NewMemoryCheckpointStore(),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), `"ghost" not registered`)
}

func TestAdvanceFreshThreadRunsToTerminal(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	engine := newTestEngine(t, store,
		[]*PlanNode{
			{Name: "first", AutoContinue: true},
			{Name: "second", AutoContinue: true},
		},
		"first", 0,
		passThrough("first", "second"),
		terminal("second"),
	)

	result, err := engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltTerminal, result.Halt)
	require.Equal(t, 2, result.Steps)
	require.Equal(t, TerminalNode, result.PendingNode)
	require.Equal(t, int64(2), result.Version)

	checkpoint, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, TerminalNode, checkpoint.PendingNode)
	require.Len(t, checkpoint.State.History, 2)
	require.Equal(t, "first", checkpoint.State.History[0].Node)
	require.Equal(t, OutcomeCompleted, checkpoint.State.History[0].Outcome)
	require.Equal(t, "second", checkpoint.State.History[1].Node)

	// A terminal thread stays terminal and runs no further steps.
	again, err := engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltTerminal, again.Halt)
	require.Zero(t, again.Steps)
}

func TestAdvanceSuspendAndResume(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	ready := false
	wait := NewNodeFunc("wait", func(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error) {
		if !ready {
			return state, RouteSuspend(), nil
		}
		return state, RouteTo("done"), nil
	})
	engine := newTestEngine(t, store,
		[]*PlanNode{
			{Name: "wait", AutoContinue: true},
			{Name: "done", AutoContinue: true},
		},
		"wait", 0, wait, terminal("done"))

	result, err := engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltSuspended, result.Halt)
	require.Equal(t, "wait", result.PendingNode)
	require.Equal(t, 1, result.Steps)

	// Suspended checkpoints still advance the version by exactly one.
	checkpoint, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), checkpoint.Version)
	require.Equal(t, OutcomeSuspended, checkpoint.State.History[0].Outcome)

	// The external event arrives; the same node re-executes and routes on.
	ready = true
	result, err = engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltTerminal, result.Halt)
	require.Equal(t, 2, result.Steps)
	require.Equal(t, int64(3), result.Version)
}

func TestAdvanceNodeFailureHaltsAndResumesAtSameNode(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()

	sideEffects := 0
	attempts := 0
	flaky := NewNodeFunc("flaky", func(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error) {
		attempts++
		if sideEffects == 0 {
			// The durable side effect is keyed, so re-execution must
			// not repeat it.
			sideEffects++
		}
		if attempts == 1 {
			return nil, Route{}, errors.New("transient downstream failure")
		}
		return state, RouteTerminal(), nil
	})
	engine := newTestEngine(t, store,
		[]*PlanNode{
			{Name: "first", AutoContinue: true},
			{Name: "flaky", AutoContinue: true},
		},
		"first", 0, passThrough("first", "flaky"), flaky)

	_, err := engine.Advance(ctx, "thread-1")
	require.Error(t, err)
	var nodeErr *NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
	require.Equal(t, "flaky", nodeErr.Node)

	// The thread halted at the failing node with the failure on record.
	checkpoint, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, "flaky", checkpoint.PendingNode)
	require.Equal(t, int64(2), checkpoint.Version)
	last := checkpoint.State.History[len(checkpoint.State.History)-1]
	require.Equal(t, OutcomeFailed, last.Outcome)
	require.Contains(t, last.Detail, "transient downstream failure")

	// Re-triggering re-executes the failed node, not its successor, and
	// the side effect is not duplicated.
	result, err := engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltTerminal, result.Halt)
	require.Equal(t, 2, attempts)
	require.Equal(t, 1, sideEffects)
}

func TestAdvanceYieldsWithoutAutoContinue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	engine := newTestEngine(t, store,
		[]*PlanNode{
			{Name: "first", AutoContinue: true},
			{Name: "manual"},
		},
		"first", 0, passThrough("first", "manual"), terminal("manual"))

	result, err := engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltYield, result.Halt)
	require.Equal(t, "manual", result.PendingNode)
	require.Equal(t, 1, result.Steps)

	result, err = engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltTerminal, result.Halt)
}

func TestAdvanceStepBudget(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	engine := newTestEngine(t, store,
		[]*PlanNode{
			{Name: "ping", AutoContinue: true},
			{Name: "pong", AutoContinue: true},
		},
		"ping", 3, passThrough("ping", "pong"), passThrough("pong", "ping"))

	result, err := engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltStepBudget, result.Halt)
	require.Equal(t, 3, result.Steps)

	// The budget bounds one invocation, not the thread: the next call
	// resumes from the durable checkpoint.
	checkpoint, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, int64(3), checkpoint.Version)

	result, err = engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltStepBudget, result.Halt)
}

func TestAdvanceUnknownPendingNode(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	engine := newTestEngine(t, store,
		[]*PlanNode{{Name: "only", AutoContinue: true}},
		"only", 0, terminal("only"))

	// Corrupt the checkpoint so the pending node is unregistered.
	state := NewWorkflowState("thread-1", "ghost")
	require.NoError(t, store.Save(ctx, &Checkpoint{
		ThreadID:    "thread-1",
		State:       state,
		PendingNode: "ghost",
	}, 0))

	_, err := engine.Advance(ctx, "thread-1")
	var unknown *UnknownNodeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "ghost", unknown.Node)
	require.False(t, IsRetryable(err))

	// The thread did not move.
	checkpoint, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), checkpoint.Version)
}

func TestAdvanceRefusesRouteToUnregisteredNode(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	engine := newTestEngine(t, store,
		[]*PlanNode{{Name: "first", AutoContinue: true}},
		"first", 0, passThrough("first", "ghost"))

	_, err := engine.Advance(ctx, "thread-1")
	var unknown *UnknownNodeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "ghost", unknown.Node)

	// The offending write was refused: no checkpoint exists.
	_, err = store.Load(ctx, "thread-1")
	require.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestAdvanceRefusesInconsistentBracket(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	sloppy := NewNodeFunc("sloppy", func(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error) {
		index := 4200
		state.Profile.FinancialIndex = &index
		// DerivedBracket deliberately left stale.
		return state, RouteTerminal(), nil
	})
	engine := newTestEngine(t, store,
		[]*PlanNode{{Name: "sloppy", AutoContinue: true}},
		"sloppy", 0, sloppy)

	_, err := engine.Advance(ctx, "thread-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "derived bracket")

	_, err = store.Load(ctx, "thread-1")
	require.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestAdvanceConcurrentConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()

	// The racer node advances the thread out from under the engine
	// between node execution and checkpoint save.
	raced := false
	racer := NewNodeFunc("racer", func(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error) {
		if !raced {
			raced = true
			competing := testCheckpoint("thread-1")
			competing.PendingNode = "racer"
			competing.State.PendingNode = "racer"
			require.NoError(t, store.Save(ctx, competing, 0))
		}
		return state, RouteTerminal(), nil
	})
	engine := newTestEngine(t, store,
		[]*PlanNode{{Name: "racer", AutoContinue: true}},
		"racer", 0, racer)

	_, err := engine.Advance(ctx, "thread-1")
	var conflict *ConcurrentAdvanceError
	require.ErrorAs(t, err, &conflict)
	require.ErrorIs(t, err, ErrVersionConflict)
	require.True(t, IsRetryable(err))

	// The losing call applied nothing; the competing checkpoint stands
	// and a retry succeeds from it.
	checkpoint, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), checkpoint.Version)

	result, err := engine.Advance(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, HaltTerminal, result.Halt)
}

func TestAdvanceRequiresThreadID(t *testing.T) {
	engine := newTestEngine(t, NewMemoryCheckpointStore(),
		[]*PlanNode{{Name: "only"}}, "only", 0, terminal("only"))
	_, err := engine.Advance(context.Background(), "")
	require.Error(t, err)
}

func TestEngineHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCheckpointStore()
	engine := newTestEngine(t, store,
		[]*PlanNode{
			{Name: "first", AutoContinue: true},
			{Name: "second", AutoContinue: true},
		},
		"first", 0, passThrough("first", "second"), terminal("second"))

	_, err := engine.Advance(ctx, "thread-1")
	require.NoError(t, err)

	history, err := engine.History(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, []string{"first", "second"}, []string{history[0].Node, history[1].Node})
}

func TestStateBracketConsistencyHelper(t *testing.T) {
	// Guard against the derivation and the state drifting apart: a node
	// that recomputes via finaid always passes the engine's check.
	index := 123456
	state := NewWorkflowState("t", "n")
	state.Profile.FinancialIndex = &index
	state.DerivedBracket = finaid.ClassifyHouseholdIncome(state.Profile.FinancialIndex)
	require.Equal(t, finaid.BracketMinimalNeed, state.DerivedBracket)
}

func TestIsRetryableDefaults(t *testing.T) {
	require.False(t, IsRetryable(nil))
	require.True(t, IsRetryable(fmt.Errorf("socket reset")))
	require.True(t, IsRetryable(ErrUniqueConflict))
	require.False(t, IsRetryable(&ProfileNotFoundError{UserID: "u"}))
}
