package coach

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps node names to node implementations. It is safe for
// concurrent use. Registration is expected to happen once at startup;
// lookups happen on every Advance.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

// NewRegistry creates an empty node registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]Node)}
}

// Register adds a node. Re-registering a name replaces the prior node.
// The terminal sentinel and the empty string are not registrable names.
func (r *Registry) Register(node Node) error {
	name := node.Name()
	if name == "" {
		return fmt.Errorf("node name required")
	}
	if name == TerminalNode {
		return fmt.Errorf("node name %q is reserved", TerminalNode)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[name] = node
	return nil
}

// Get returns the node registered under name.
func (r *Registry) Get(name string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, ok := r.nodes[name]
	return node, ok
}

// Names returns all registered node names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
