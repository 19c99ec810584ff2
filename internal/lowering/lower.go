package lowering

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ludo-technologies/coroflat/internal/parser"
)

// Graph is a lowered function
type Graph struct {
	// Name is the function name, empty for anonymous functions
	Name string

	// Blocks are the reachable blocks; Blocks[i].ID == i and Blocks[0] is
	// the entry block
	Blocks []*Block

	// GlobalCatch is the state of the handler in effect outside every try
	// region, or -1 when no transition installs it
	GlobalCatch int

	// Exit is the state whose block completes the function by falling off
	// its end, or -1 when the end of the body is unreachable
	Exit int

	// HasFinally reports whether the function uses the finally path
	HasFinally bool

	Slots Slots
	Node  *parser.Node
}

// Entry returns the entry block
func (g *Graph) Entry() *Block {
	return g.Blocks[0]
}

// EdgeKind tells how a block refers to another state
type EdgeKind string

const (
	EdgeState     EdgeKind = "state"
	EdgeException EdgeKind = "exception"
	EdgeFinally   EdgeKind = "finally"
)

// Edge is a reference from a block to a state
type Edge struct {
	To   int      `json:"to" yaml:"to"`
	Kind EdgeKind `json:"kind" yaml:"kind"`
}

// Edges returns the references of a block in statement order. A state
// referenced twice with the same kind is listed once.
func (g *Graph) Edges(b *Block) []Edge {
	var out []Edge
	add := func(to int, kind EdgeKind) {
		e := Edge{To: to, Kind: kind}
		for _, x := range out {
			if x == e {
				return
			}
		}
		out = append(out, e)
	}

	var walk func(stmts []Stmt)
	walk = func(stmts []Stmt) {
		for _, s := range stmts {
			switch s := s.(type) {
			case AssignState:
				add(s.State, EdgeState)
			case AssignExceptionState:
				add(s.State, EdgeException)
			case AssignFinallyPath:
				for _, st := range s.States {
					add(st, EdgeFinally)
				}
			case *If:
				walk(s.Then)
				walk(s.Else)
			}
		}
	}
	walk(b.Statements)
	return out
}

// Successors returns the states a block can transfer control to: its state
// assignments, installed handlers and queued finally entries, in statement
// order and without duplicates
func (g *Graph) Successors(b *Block) []int {
	var out []int
	for _, e := range g.Edges(b) {
		out = appendUnique(out, e.To)
	}
	return out
}

// Option configures a Lowerer
type Option func(*Lowerer)

// WithSlots sets the slot names used when rendering. An empty sentinel
// selects direct returns of suspend calls.
func WithSlots(slots Slots) Option {
	return func(l *Lowerer) {
		l.slots = slots.withDefaults()
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(l *Lowerer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Lowerer lowers function bodies. It holds configuration only, so one
// Lowerer may be used from several goroutines.
type Lowerer struct {
	slots  Slots
	logger *zap.Logger
}

// New creates a Lowerer
func New(opts ...Option) *Lowerer {
	l := &Lowerer{
		slots:  DefaultSlots(),
		logger: Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lower lowers the body of fn. fn is a function node or a program; its
// suspend calls must already be marked. The tree is not modified.
func (l *Lowerer) Lower(fn *parser.Node) (*Graph, error) {
	if fn == nil {
		return nil, fmt.Errorf("cannot lower nil node")
	}

	info, err := analyze(fn)
	if err != nil {
		return nil, err
	}

	t := newBodyTransformer(info, l.slots.Sentinel != "", l.logger)
	if err := t.lowerStatements(fn.Body); err != nil {
		return nil, err
	}
	t.resetHandlers()
	exit := t.current

	blocks, err := finalize(t.entry, t.blocks)
	if err != nil {
		return nil, &InvariantError{Node: fn, Reason: "graph finalization failed", Err: err}
	}

	// the tail is not an exit when the finalizer dropped it as unreachable
	// or when it ends in a transition
	exitState := -1
	if exit.ID >= 0 && exit.ID < len(blocks) && blocks[exit.ID] == exit && !exit.terminated() {
		exitState = exit.ID
	}

	g := &Graph{
		Name:        fn.Name,
		Blocks:      blocks,
		GlobalCatch: t.globalCatch.ID,
		Exit:        exitState,
		HasFinally:  t.hasFinally,
		Slots:       l.slots,
		Node:        fn,
	}

	l.logger.Debug("function lowered",
		zap.String("function", fn.Name),
		zap.Int("blocks", len(blocks)),
		zap.Int("split_nodes", len(info.split)),
		zap.Bool("has_finally", t.hasFinally))
	return g, nil
}
