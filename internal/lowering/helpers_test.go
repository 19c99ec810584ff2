package lowering

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/coroflat/internal/parser"
)

// Tree builders. Statements carry a Raw text close to what the parser
// produces, so rendered output stays readable.

func ident(name string) *parser.Node {
	n := parser.NewNode(parser.NodeIdentifier)
	n.Name = name
	n.Raw = name
	return n
}

func call(name string) *parser.Node {
	n := parser.NewNode(parser.NodeCallExpression)
	n.Callee = ident(name)
	n.Raw = name + "()"
	return n
}

func suspendCall(name string) *parser.Node {
	n := call(name)
	n.Suspend = true
	return n
}

func await(arg *parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeAwaitExpression)
	n.Argument = arg
	n.Raw = "await " + arg.Raw
	n.Suspend = true
	return n
}

func exprStmt(expr *parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeExpressionStatement)
	n.Expression = expr
	n.Raw = expr.Raw + ";"
	return n
}

// do is the statement "name();"
func do(name string) *parser.Node {
	return exprStmt(call(name))
}

// yield is the statement "name();" with a marked suspend call
func yield(name string) *parser.Node {
	return exprStmt(suspendCall(name))
}

func assign(target string, value *parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeAssignmentExpression)
	n.Left = ident(target)
	n.Right = value
	n.Kind = "="
	n.Raw = target + " = " + value.Raw
	return exprStmt(n)
}

func declare(kind, name string, init *parser.Node) *parser.Node {
	d := parser.NewNode(parser.NodeVariableDeclarator)
	d.Name = name
	d.Init = init
	d.Raw = name
	if init != nil {
		d.Raw += " = " + init.Raw
	}

	n := parser.NewNode(parser.NodeVariableDeclaration)
	n.Kind = kind
	n.Declarations = []*parser.Node{d}
	n.Raw = kind + " " + d.Raw + ";"
	return n
}

func block(stmts ...*parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeBlockStatement)
	n.Body = stmts
	n.Raw = "{ ... }"
	return n
}

func ifStmt(test string, consequent, alternate *parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeIfStatement)
	n.Test = ident(test)
	n.Consequent = consequent
	n.Alternate = alternate
	n.Raw = "if (" + test + ") ..."
	return n
}

func whileLoop(test string, body ...*parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeWhileStatement)
	n.Test = ident(test)
	n.Body = body
	n.Raw = "while (" + test + ") { ... }"
	return n
}

func forever(body ...*parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeForStatement)
	n.Body = body
	n.Raw = "for (;;) { ... }"
	return n
}

func forLoop(init *parser.Node, test, update string, body ...*parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeForStatement)
	n.Init = init
	n.Test = ident(test)
	n.Update = ident(update)
	n.Body = body
	n.Raw = "for (...) { ... }"
	return n
}

func doWhile(test string, body ...*parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeDoWhileStatement)
	n.Test = ident(test)
	n.Body = body
	n.Raw = "do { ... } while (" + test + ")"
	return n
}

func labeled(label string, stmt *parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeLabeledStatement)
	n.Label = label
	n.Body = []*parser.Node{stmt}
	n.Raw = label + ": ..."
	return n
}

func brk(label string) *parser.Node {
	n := parser.NewNode(parser.NodeBreakStatement)
	n.Label = label
	n.Raw = strings.TrimSpace("break " + label + ";")
	return n
}

func cont(label string) *parser.Node {
	n := parser.NewNode(parser.NodeContinueStatement)
	n.Label = label
	n.Raw = strings.TrimSpace("continue " + label + ";")
	return n
}

func ret(arg *parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeReturnStatement)
	n.Argument = arg
	n.Raw = "return;"
	if arg != nil {
		n.Raw = "return " + arg.Raw + ";"
	}
	return n
}

func throw(value string) *parser.Node {
	n := parser.NewNode(parser.NodeThrowStatement)
	n.Argument = ident(value)
	n.Raw = "throw " + value + ";"
	return n
}

// try builds a try statement. catchName "" without catchBody means no catch
// clause; a nil finallyBody means no finally clause.
func try(body []*parser.Node, catchName string, catchBody []*parser.Node, finallyBody []*parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeTryStatement)
	n.Body = body
	if catchName != "" || catchBody != nil {
		h := parser.NewNode(parser.NodeCatchClause)
		h.Name = catchName
		h.Body = catchBody
		n.Handler = h
	}
	if finallyBody != nil {
		n.Finalizer = block(finallyBody...)
	}
	n.Raw = "try { ... }"
	return n
}

func stmts(nodes ...*parser.Node) []*parser.Node {
	if nodes == nil {
		return []*parser.Node{}
	}
	return nodes
}

func function(name string, body ...*parser.Node) *parser.Node {
	n := parser.NewNode(parser.NodeFunction)
	n.Name = name
	n.Body = body
	n.Raw = "function " + name + "() { ... }"
	return n
}

func lower(t *testing.T, fn *parser.Node, opts ...Option) *Graph {
	t.Helper()
	g, err := New(opts...).Lower(fn)
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

func blocksWithLabel(g *Graph, label string) []*Block {
	var out []*Block
	for _, b := range g.Blocks {
		if b.Label == label {
			out = append(out, b)
		}
	}
	return out
}

func blockWithLabel(t *testing.T, g *Graph, label string) *Block {
	t.Helper()
	found := blocksWithLabel(g, label)
	require.Len(t, found, 1, "blocks labeled %q", label)
	return found[0]
}

// walkStmts visits every statement of the block, nested branches included
func walkStmts(stmts []Stmt, visit func(Stmt)) {
	for _, s := range stmts {
		visit(s)
		if s, ok := s.(*If); ok {
			walkStmts(s.Then, visit)
			walkStmts(s.Else, visit)
		}
	}
}

type flow int

const (
	flowNext flow = iota
	flowDispatch
	flowReturn
	flowThrow
)

// machine runs a lowered graph the way the generated dispatch loop would.
// Conditions are scripted by their source text and default to false once
// their script runs out. Calls whose callee starts with "fail" throw.
type machine struct {
	t     *testing.T
	g     *Graph
	conds map[string][]bool

	state          int
	exceptionState int
	finallyPath    []int
	finallyStack   map[int][]int
	result         string
	exception      string
	returnValue    string
	thrown         string

	vars     map[string]string
	trace    []string
	returned *string
	uncaught *string
	steps    int
}

func execute(t *testing.T, g *Graph, conds map[string][]bool) *machine {
	t.Helper()
	m := &machine{
		t:              t,
		g:              g,
		conds:          conds,
		exceptionState: g.GlobalCatch,
		finallyStack:   make(map[int][]int),
		vars:           make(map[string]string),
	}

	for {
		m.steps++
		require.Less(t, m.steps, 1000, "dispatch loop did not terminate")
		require.True(t, m.state >= 0 && m.state < len(g.Blocks), "state %d out of range", m.state)

		current := m.state
		switch m.exec(g.Blocks[current].Statements) {
		case flowDispatch:
		case flowReturn:
			return m
		case flowNext:
			require.Equal(t, g.Exit, current, "block %d fell off its end", current)
			return m
		case flowThrow:
			if m.exceptionState < 0 || m.state == g.GlobalCatch {
				value := m.thrown
				m.uncaught = &value
				return m
			}
			m.exception = m.thrown
			m.state = m.exceptionState
		}
	}
}

func (m *machine) exec(stmts []Stmt) flow {
	for _, s := range stmts {
		if f := m.step(s); f != flowNext {
			return f
		}
	}
	return flowNext
}

func (m *machine) step(s Stmt) flow {
	switch s := s.(type) {
	case Source:
		return m.source(s.Node)
	case Eval:
		m.trace = append(m.trace, s.Expr.Raw)
	case *If:
		v := m.cond(s.Cond)
		if s.Negated {
			v = !v
		}
		if v {
			return m.exec(s.Then)
		}
		return m.exec(s.Else)
	case AssignState:
		m.state = s.State
	case AssignExceptionState:
		m.exceptionState = s.State
	case AssignFinallyPath:
		var kept []int
		if s.Keep > 0 {
			saved, ok := m.finallyStack[s.Keep]
			require.True(m.t, ok, "finally path restores level %d which was never saved", s.Keep)
			kept = saved
		}
		m.finallyPath = append(append([]int(nil), s.States...), kept...)
	case SaveFinallyPath:
		m.finallyStack[s.Level] = append([]int(nil), m.finallyPath...)
	case Dispatch:
		return flowDispatch
	case FinallyExit:
		require.NotEmpty(m.t, m.finallyPath, "finally exit with an empty path")
		m.state = m.finallyPath[0]
		m.finallyPath = m.finallyPath[1:]
		return flowDispatch
	case CallSuspend:
		return m.call(s.Call)
	case ReturnIfSuspended:
	case ReturnSuspend:
		if f := m.call(s.Call); f == flowThrow {
			return f
		}
		// the caller resumes the function with the result
		return flowDispatch
	case AssignResult:
		m.vars[s.Target] = m.result
	case BindException:
		m.trace = append(m.trace, "bind "+s.Name+"="+m.exception)
	case Rethrow:
		m.thrown = m.exception
		return flowThrow
	case StoreReturnValue:
		if s.FromResult {
			m.returnValue = m.result
		} else {
			m.returnValue = s.Value.Raw
		}
	case Return:
		var v string
		switch {
		case s.FromSlot:
			v = m.returnValue
		case s.FromResult:
			v = m.result
		}
		m.returned = &v
		return flowReturn
	default:
		m.t.Fatalf("unexpected statement %T in finalized graph", s)
	}
	return flowNext
}

func (m *machine) call(n *parser.Node) flow {
	m.trace = append(m.trace, n.Raw)
	if strings.HasPrefix(n.CalleeName(), "fail") {
		m.thrown = n.Raw
		return flowThrow
	}
	m.result = "result:" + n.Raw
	return flowNext
}

func (m *machine) source(n *parser.Node) flow {
	switch n.Type {
	case parser.NodeExpressionStatement:
		if n.Expression != nil && n.Expression.Type == parser.NodeCallExpression {
			return m.call(n.Expression)
		}
		m.trace = append(m.trace, n.Raw)
	case parser.NodeReturnStatement:
		var v string
		if n.Argument != nil {
			v = n.Argument.Raw
		}
		m.returned = &v
		return flowReturn
	case parser.NodeThrowStatement:
		m.thrown = n.Argument.Raw
		return flowThrow
	default:
		m.trace = append(m.trace, n.Raw)
	}
	return flowNext
}

func (m *machine) cond(n *parser.Node) bool {
	script := m.conds[n.Raw]
	if len(script) == 0 {
		return false
	}
	m.conds[n.Raw] = script[1:]
	return script[0]
}
