package coach

import (
	"context"
	"fmt"
)

// routeKind discriminates the Route tagged union.
type routeKind int

const (
	routeNext routeKind = iota
	routeTerminal
	routeSuspend
)

// Route is a node's routing decision: advance to a named node, complete the
// workflow pass, or suspend until an external event re-triggers the thread.
// Construct with RouteTo, RouteTerminal, or RouteSuspend.
type Route struct {
	kind routeKind
	next string
}

// RouteTo routes the thread to the named node.
func RouteTo(node string) Route {
	return Route{kind: routeNext, next: node}
}

// RouteTerminal marks the workflow pass complete for this thread.
func RouteTerminal() Route {
	return Route{kind: routeTerminal}
}

// RouteSuspend parks the thread at the current node until an external event
// calls Advance again. The engine never re-enters a suspended thread on its
// own.
func RouteSuspend() Route {
	return Route{kind: routeSuspend}
}

// Next returns the target node name for a concrete route.
func (r Route) Next() (string, bool) {
	return r.next, r.kind == routeNext
}

// IsTerminal reports whether the route completes the pass.
func (r Route) IsTerminal() bool { return r.kind == routeTerminal }

// IsSuspend reports whether the route suspends the thread.
func (r Route) IsSuspend() bool { return r.kind == routeSuspend }

func (r Route) String() string {
	switch r.kind {
	case routeTerminal:
		return "terminal"
	case routeSuspend:
		return "suspend"
	default:
		return fmt.Sprintf("next(%s)", r.next)
	}
}

// Node is a named unit of workflow logic. Execute receives a private copy
// of the thread state and returns the successor state plus a routing
// decision. Routing must depend only on fields inside the given state;
// external reads are allowed solely to populate the returned state.
//
// A node may perform declared external side effects (profile lookup,
// obligation creation), but they must be idempotent: a checkpoint write
// failure after the node runs causes the same node to re-execute on retry.
type Node interface {

	// Name returns the registered name of the node.
	Name() string

	// Execute runs the node against the given state.
	Execute(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error)
}

// NodeFunc adapts a function to the Node interface.
type NodeFunc struct {
	name string
	fn   func(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error)
}

// NewNodeFunc creates a Node from a function.
func NewNodeFunc(name string, fn func(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error)) *NodeFunc {
	return &NodeFunc{name: name, fn: fn}
}

func (n *NodeFunc) Name() string {
	return n.name
}

func (n *NodeFunc) Execute(ctx context.Context, state *WorkflowState) (*WorkflowState, Route, error) {
	return n.fn(ctx, state)
}
