package lowering

import (
	"fmt"

	"github.com/ludo-technologies/coroflat/internal/parser"
)

// Block label constants to avoid magic strings
const (
	LabelEntry       = "entry"
	LabelGlobalCatch = "global_catch"
	LabelResume      = "resume"
	LabelIfJoin      = "if_join"
	LabelLoopBody    = "loop_body"
	LabelLoopExit    = "loop_exit"
	LabelCondition   = "condition"
	LabelIncrement   = "increment"
	LabelLabelExit   = "label_exit"
	LabelCatch       = "catch"
	LabelFinally     = "finally"
	LabelTryExit     = "try_exit"
	LabelReturn      = "return"
	LabelUnreachable = "unreachable"
	labelBranch      = "branch"
)

// Block is a basic block of the lowered function. Until the graph is
// finalized blocks are identified by pointer and ID is -1.
type Block struct {
	// ID is the state number assigned by the finalizer
	ID int

	// Label records which construct created the block
	Label string

	// Statements are the lowered statements, ending with a transition
	Statements []Stmt

	// ExceptionStates lists the handler states installed by this block
	ExceptionStates []int

	// FinallyStates lists the states queued on the finally path by this block
	FinallyStates []int
}

func newBlock(label string) *Block {
	return &Block{ID: -1, Label: label}
}

func (b *Block) add(stmts ...Stmt) {
	b.Statements = append(b.Statements, stmts...)
}

func (b *Block) insert(i int, s Stmt) {
	b.Statements = append(b.Statements, nil)
	copy(b.Statements[i+1:], b.Statements[i:])
	b.Statements[i] = s
}

// terminated reports whether control cannot fall off the end of the block
func (b *Block) terminated() bool {
	if len(b.Statements) == 0 {
		return false
	}
	switch s := b.Statements[len(b.Statements)-1].(type) {
	case Dispatch, FinallyExit, Return, ReturnSuspend, Rethrow:
		return true
	case Source:
		return s.Node.Type == parser.NodeReturnStatement || s.Node.Type == parser.NodeThrowStatement
	default:
		return false
	}
}

// String returns a short description of the block
func (b *Block) String() string {
	if b.ID < 0 {
		return fmt.Sprintf("@%s(%p)", b.Label, b)
	}
	return fmt.Sprintf("%d(%s)", b.ID, b.Label)
}
