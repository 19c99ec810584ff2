package lowering

import (
	"go.uber.org/zap"

	"github.com/ludo-technologies/coroflat/internal/parser"
)

// suspendSite returns expr when it is itself a marked suspend call or await
func suspendSite(expr *parser.Node) *parser.Node {
	if expr == nil || !expr.Suspend {
		return nil
	}
	if expr.Type == parser.NodeCallExpression || expr.Type == parser.NodeAwaitExpression {
		return expr
	}
	return nil
}

// nestedSuspend reports whether a suspend call appears below site
func nestedSuspend(site *parser.Node) bool {
	for _, child := range site.GetChildren() {
		if containsSuspend(child) {
			return true
		}
	}
	return false
}

// suspendOperand is the expression whose value the suspension produces
func suspendOperand(site *parser.Node) *parser.Node {
	if site.Type == parser.NodeAwaitExpression && site.Argument != nil {
		return site.Argument
	}
	return site
}

// splitSuspend ends the current block with the suspension point and
// continues lowering in a new block, the resume point.
func (t *bodyTransformer) splitSuspend(stmt, site *parser.Node) {
	next := t.newBlock(LabelResume)
	call := suspendOperand(site)

	t.emit(t.setState(next))
	if t.sentinel {
		t.emit(CallSuspend{Call: call}, ReturnIfSuspended{}, Dispatch{})
	} else {
		t.emit(ReturnSuspend{Call: call})
	}
	t.current = next

	t.logger.Debug("split at suspend call",
		zap.String("call", call.Raw),
		zap.Int("line", stmt.Location.StartLine))
}

func (t *bodyTransformer) lowerExpressionStatement(n *parser.Node) error {
	expr := n.Expression
	if expr == nil {
		t.emit(Source{Node: n})
		return nil
	}

	site := suspendSite(expr)
	var assign *parser.Node
	if site == nil && expr.Type == parser.NodeAssignmentExpression {
		if site = suspendSite(expr.Right); site != nil {
			assign = expr
			if containsSuspend(expr.Left) {
				return unsupported(n, "suspend call inside an assignment target")
			}
		}
	}

	if site == nil {
		if containsSuspend(expr) {
			return unsupported(n, "suspend call nested inside an expression")
		}
		t.emit(Source{Node: n})
		return nil
	}
	if nestedSuspend(site) {
		return unsupported(n, "nested suspend calls")
	}

	t.splitSuspend(n, site)
	if assign != nil {
		t.emit(AssignResult{Target: assign.Left.Raw, Operator: assign.Kind})
	}
	return nil
}

func (t *bodyTransformer) lowerVariableDeclaration(n *parser.Node) error {
	if !containsSuspend(n) {
		t.emit(Source{Node: n})
		return nil
	}
	if len(n.Declarations) != 1 {
		return unsupported(n, "suspend call in a declaration with several declarators")
	}

	decl := n.Declarations[0]
	site := suspendSite(decl.Init)
	if site == nil {
		return unsupported(n, "suspend call nested inside an initializer")
	}
	if nestedSuspend(site) {
		return unsupported(n, "nested suspend calls")
	}

	t.splitSuspend(n, site)
	t.emit(AssignResult{Target: decl.Name, Operator: "=", Kind: n.Kind})
	return nil
}
