package coach

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PlanNode declares one node's place in a coaching plan. AutoContinue marks
// nodes the engine may execute immediately after their predecessor within a
// single Advance call.
type PlanNode struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	AutoContinue bool   `json:"auto_continue,omitempty" yaml:"auto_continue,omitempty"`
}

// PlanOptions are used to configure a plan.
type PlanOptions struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Entry       string      `json:"entry" yaml:"entry"`
	MaxSteps    int         `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	Nodes       []*PlanNode `json:"nodes" yaml:"nodes"`
}

// Plan defines a coaching workflow as a set of named nodes and an entry
// point. The plan carries wiring metadata only; node behavior lives in the
// registry.
type Plan struct {
	name        string
	description string
	entry       string
	maxSteps    int
	nodesByName map[string]*PlanNode
	nodes       []*PlanNode
}

// DefaultMaxSteps bounds the auto-continue loop within one Advance call so
// a mis-wired plan cannot starve the caller.
const DefaultMaxSteps = 25

// NewPlan returns a new Plan configured with the given options.
func NewPlan(opts PlanOptions) (*Plan, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("plan name required")
	}
	if len(opts.Nodes) == 0 {
		return nil, fmt.Errorf("plan nodes required")
	}
	if opts.Entry == "" {
		return nil, fmt.Errorf("plan entry node required")
	}
	if opts.MaxSteps == 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.MaxSteps < 1 {
		return nil, fmt.Errorf("plan max_steps must be positive")
	}

	nodesByName := make(map[string]*PlanNode, len(opts.Nodes))
	for _, node := range opts.Nodes {
		if node.Name == "" {
			return nil, fmt.Errorf("plan node name required")
		}
		if node.Name == TerminalNode {
			return nil, fmt.Errorf("plan node name %q is reserved", TerminalNode)
		}
		if _, exists := nodesByName[node.Name]; exists {
			return nil, fmt.Errorf("duplicate plan node %q", node.Name)
		}
		nodesByName[node.Name] = node
	}
	if _, ok := nodesByName[opts.Entry]; !ok {
		return nil, fmt.Errorf("entry node %q not declared in plan", opts.Entry)
	}

	return &Plan{
		name:        opts.Name,
		description: opts.Description,
		entry:       opts.Entry,
		maxSteps:    opts.MaxSteps,
		nodesByName: nodesByName,
		nodes:       opts.Nodes,
	}, nil
}

// Name returns the plan name.
func (p *Plan) Name() string {
	return p.name
}

// Description returns the plan description.
func (p *Plan) Description() string {
	return p.description
}

// Entry returns the entry node name.
func (p *Plan) Entry() string {
	return p.entry
}

// MaxSteps returns the per-Advance step budget.
func (p *Plan) MaxSteps() int {
	return p.maxSteps
}

// Nodes returns the declared plan nodes.
func (p *Plan) Nodes() []*PlanNode {
	return p.nodes
}

// Declares reports whether the plan declares a node with the given name.
func (p *Plan) Declares(name string) bool {
	_, ok := p.nodesByName[name]
	return ok
}

// AutoContinue reports whether the named node may be executed immediately
// after its predecessor within a single Advance call.
func (p *Plan) AutoContinue(name string) bool {
	node, ok := p.nodesByName[name]
	return ok && node.AutoContinue
}

// Validate checks that every declared node has an implementation in the
// registry.
func (p *Plan) Validate(registry *Registry) error {
	for _, node := range p.nodes {
		if _, ok := registry.Get(node.Name); !ok {
			return fmt.Errorf("plan node %q not registered", node.Name)
		}
	}
	return nil
}

// LoadPlanFile loads a plan from a YAML file.
func LoadPlanFile(path string) (*Plan, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return LoadPlanString(string(yamlData))
}

// LoadPlanString loads a plan from a YAML string.
func LoadPlanString(data string) (*Plan, error) {
	var opts PlanOptions
	if err := yaml.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	return NewPlan(opts)
}
