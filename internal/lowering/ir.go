package lowering

import "github.com/ludo-technologies/coroflat/internal/parser"

// Stmt is a lowered statement. The set of implementations is closed.
type Stmt interface {
	stmt()
}

// Source is a statement copied through from the input unchanged. Compound
// statements that needed no splitting keep their nested control flow.
type Source struct {
	Node *parser.Node
}

// Eval evaluates an expression for its side effects.
type Eval struct {
	Expr *parser.Node
}

// If is a conditional whose branches were lowered. Branches never cross a
// block boundary: a branch that continues elsewhere ends with a transition.
type If struct {
	Cond    *parser.Node
	Negated bool
	Then    []Stmt
	Else    []Stmt

	// Node is the source statement, nil for synthesized loop checks
	Node *parser.Node
}

// SetState selects the block the dispatch loop runs next.
type SetState struct {
	Target *Block
}

// SetExceptionHandler selects the block that receives a thrown exception.
type SetExceptionHandler struct {
	Target *Block
}

// SetFinallyPath replaces the pending finally path with Path followed by the
// path saved at pending level Keep. Keep 0 appends nothing.
type SetFinallyPath struct {
	Path []*Block
	Keep int
}

// SaveFinallyPath records the pending finally path on entry to a construct
// at pending level Level, so jumps staying inside it can restore it.
type SaveFinallyPath struct {
	Level int
}

// Dispatch returns control to the dispatch loop.
type Dispatch struct{}

// FinallyExit pops the head of the pending finally path into the state and
// dispatches.
type FinallyExit struct{}

// CallSuspend evaluates a suspend call and stores its value in the result
// slot.
type CallSuspend struct {
	Call *parser.Node
}

// ReturnIfSuspended returns the sentinel when the result slot holds it.
type ReturnIfSuspended struct{}

// ReturnSuspend returns the value of a suspend call directly. Used when no
// sentinel is configured: the caller resumes the function with the result.
type ReturnSuspend struct {
	Call *parser.Node
}

// AssignResult assigns the result slot to a target after resumption.
type AssignResult struct {
	Target   string
	Operator string // assignment operator, "=" for declarations
	Kind     string // declaration keyword, empty for plain assignments
}

// BindException binds the caught exception to the catch parameter.
type BindException struct {
	Name string
}

// Rethrow throws the pending exception out of the function.
type Rethrow struct{}

// StoreReturnValue saves the value of a return that has to run finally
// blocks before leaving.
type StoreReturnValue struct {
	Value      *parser.Node
	FromResult bool
}

// Return leaves the function.
type Return struct {
	FromSlot   bool
	FromResult bool
}

// AssignState is the resolved form of SetState.
type AssignState struct {
	State int
}

// AssignExceptionState is the resolved form of SetExceptionHandler.
type AssignExceptionState struct {
	State int
}

// AssignFinallyPath is the resolved form of SetFinallyPath.
type AssignFinallyPath struct {
	States []int
	Keep   int
}

func (Source) stmt()               {}
func (Eval) stmt()                 {}
func (*If) stmt()                  {}
func (SetState) stmt()             {}
func (SetExceptionHandler) stmt()  {}
func (SetFinallyPath) stmt()       {}
func (SaveFinallyPath) stmt()      {}
func (Dispatch) stmt()             {}
func (FinallyExit) stmt()          {}
func (CallSuspend) stmt()          {}
func (ReturnIfSuspended) stmt()    {}
func (ReturnSuspend) stmt()        {}
func (AssignResult) stmt()         {}
func (BindException) stmt()        {}
func (Rethrow) stmt()              {}
func (StoreReturnValue) stmt()     {}
func (Return) stmt()               {}
func (AssignState) stmt()          {}
func (AssignExceptionState) stmt() {}
func (AssignFinallyPath) stmt()    {}
