package lowering

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ludo-technologies/coroflat/internal/parser"
)

const indentUnit = "    "

// Format writes a readable rendering of the graph, one case per state
func Format(w io.Writer, g *Graph) error {
	name := g.Name
	if name == "" {
		name = "<anonymous>"
	}
	header := fmt.Sprintf("function %s: %d blocks", name, len(g.Blocks))
	if g.GlobalCatch >= 0 {
		header += fmt.Sprintf(", global catch %d", g.GlobalCatch)
	}
	if g.HasFinally {
		header += ", uses finally path"
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	for _, b := range g.Blocks {
		if _, err := fmt.Fprintf(w, "  case %d: // %s\n", b.ID, b.Label); err != nil {
			return err
		}
		for _, line := range RenderBlock(b, g.Slots) {
			if _, err := fmt.Fprintf(w, "    %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderBlock renders the statements of a block as target-language lines
func RenderBlock(b *Block, slots Slots) []string {
	p := &printer{slots: slots.withDefaults(), sentinel: slots.Sentinel}
	p.stmts(b.Statements, 0)
	return p.lines
}

type printer struct {
	slots    Slots
	sentinel string
	lines    []string
}

func (p *printer) line(depth int, format string, args ...any) {
	p.lines = append(p.lines, strings.Repeat(indentUnit, depth)+fmt.Sprintf(format, args...))
}

func (p *printer) stmts(stmts []Stmt, depth int) {
	for _, s := range stmts {
		p.stmt(s, depth)
	}
}

func (p *printer) stmt(s Stmt, depth int) {
	switch s := s.(type) {
	case Source:
		p.source(s.Node, depth)
	case Eval:
		p.line(depth, "%s;", s.Expr.Raw)
	case *If:
		cond := condText(s.Cond)
		if s.Negated {
			cond = "!(" + cond + ")"
		}
		p.line(depth, "if (%s) {", cond)
		p.stmts(s.Then, depth+1)
		if len(s.Else) > 0 {
			p.line(depth, "} else {")
			p.stmts(s.Else, depth+1)
		}
		p.line(depth, "}")
	case SetState:
		p.line(depth, "%s = %s;", p.slots.State, s.Target)
	case SetExceptionHandler:
		p.line(depth, "%s = %s;", p.slots.ExceptionState, s.Target)
	case SetFinallyPath:
		targets := make([]string, len(s.Path))
		for i, b := range s.Path {
			targets[i] = b.String()
		}
		p.finallyPath(depth, targets, s.Keep)
	case AssignState:
		p.line(depth, "%s = %d;", p.slots.State, s.State)
	case AssignExceptionState:
		p.line(depth, "%s = %d;", p.slots.ExceptionState, s.State)
	case AssignFinallyPath:
		targets := make([]string, len(s.States))
		for i, st := range s.States {
			targets[i] = strconv.Itoa(st)
		}
		p.finallyPath(depth, targets, s.Keep)
	case SaveFinallyPath:
		p.line(depth, "%s[%d] = %s.slice();", p.slots.FinallyStack, s.Level-1, p.slots.FinallyPath)
	case Dispatch:
		p.line(depth, "continue;")
	case FinallyExit:
		p.line(depth, "%s = %s.shift();", p.slots.State, p.slots.FinallyPath)
		p.line(depth, "continue;")
	case CallSuspend:
		p.line(depth, "%s = %s;", p.slots.Result, s.Call.Raw)
	case ReturnIfSuspended:
		p.line(depth, "if (%s === %s) return %s;", p.slots.Result, p.sentinel, p.sentinel)
	case ReturnSuspend:
		p.line(depth, "return %s;", s.Call.Raw)
	case AssignResult:
		if s.Kind != "" {
			p.line(depth, "%s %s = %s;", s.Kind, s.Target, p.slots.Result)
		} else {
			p.line(depth, "%s %s %s;", s.Target, s.Operator, p.slots.Result)
		}
	case BindException:
		p.line(depth, "var %s = %s;", s.Name, p.slots.Exception)
	case Rethrow:
		p.line(depth, "throw %s;", p.slots.Exception)
	case StoreReturnValue:
		if s.FromResult {
			p.line(depth, "%s = %s;", p.slots.ReturnValue, p.slots.Result)
		} else {
			p.line(depth, "%s = %s;", p.slots.ReturnValue, s.Value.Raw)
		}
	case Return:
		switch {
		case s.FromSlot:
			p.line(depth, "return %s;", p.slots.ReturnValue)
		case s.FromResult:
			p.line(depth, "return %s;", p.slots.Result)
		default:
			p.line(depth, "return;")
		}
	default:
		p.line(depth, "/* %T */", s)
	}
}

func (p *printer) finallyPath(depth int, targets []string, keep int) {
	list := "[" + strings.Join(targets, ", ") + "]"
	if keep == 0 {
		p.line(depth, "%s = %s;", p.slots.FinallyPath, list)
		return
	}
	p.line(depth, "%s = %s.concat(%s[%d]);", p.slots.FinallyPath, list, p.slots.FinallyStack, keep-1)
}

// source renders a statement copied through, keeping its own line breaks
func (p *printer) source(n *parser.Node, depth int) {
	raw := strings.TrimSpace(n.Raw)
	if n.Type == parser.NodeExpressionStatement && !strings.HasSuffix(raw, ";") {
		raw += ";"
	}
	lines := strings.Split(raw, "\n")
	first := n.Location.StartCol
	for i, l := range lines {
		if i > 0 {
			l = trimIndent(l, first)
		}
		p.line(depth, "%s", strings.TrimRight(l, " \t\r"))
	}
}

// trimIndent removes up to n leading blanks
func trimIndent(s string, n int) string {
	i := 0
	for i < len(s) && i < n && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[i:]
}

func condText(n *parser.Node) string {
	if n == nil {
		return "true"
	}
	return n.Raw
}
