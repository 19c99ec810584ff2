package lowering

import "github.com/ludo-technologies/coroflat/internal/parser"

// splitInfo is the result of the split-necessity analysis of one function
type splitInfo struct {
	// targets maps every break/continue to the statement it leaves or
	// continues. A label on a loop resolves to the loop itself.
	targets map[*parser.Node]*parser.Node

	// split holds the nodes that must be lowered into several blocks
	split map[*parser.Node]bool
}

func (s *splitInfo) needsSplit(node *parser.Node) bool {
	return s.split[node]
}

// markPath marks every node on the path
func (s *splitInfo) markPath(path []*parser.Node) bool {
	changed := false
	for _, n := range path {
		if !s.split[n] {
			s.split[n] = true
			changed = true
		}
	}
	return changed
}

// markUntil marks the nodes on the path below target, the jump included
func (s *splitInfo) markUntil(path []*parser.Node, target *parser.Node) bool {
	changed := false
	for i := len(path) - 1; i >= 0 && path[i] != target; i-- {
		if !s.split[path[i]] {
			s.split[path[i]] = true
			changed = true
		}
	}
	return changed
}

// analyze decides which statements of fn need splitting. Nested functions
// and classes are opaque: their bodies are never lowered with fn.
func analyze(fn *parser.Node) (*splitInfo, error) {
	info := &splitInfo{
		targets: make(map[*parser.Node]*parser.Node),
		split:   make(map[*parser.Node]bool),
	}

	var (
		err     error
		jumps   [][]*parser.Node
		returns [][]*parser.Node
	)

	visitor := parser.NewPathVisitor(func(n *parser.Node, path []*parser.Node) bool {
		if err != nil {
			return false
		}
		if n != fn && (n.IsFunction() || n.Type == parser.NodeClass) {
			return false
		}

		switch n.Type {
		case parser.NodeBreakStatement, parser.NodeContinueStatement:
			target := resolveJumpTarget(n, path)
			if target == nil {
				err = invariant(n, "%s has no enclosing target", jumpKeyword(n))
				return false
			}
			info.targets[n] = target
			jumps = append(jumps, append([]*parser.Node(nil), path...))
		case parser.NodeReturnStatement:
			returns = append(returns, append([]*parser.Node(nil), path...))
		case parser.NodeCallExpression, parser.NodeAwaitExpression:
			if n.Suspend {
				info.markPath(path)
			}
		}
		return true
	})
	fn.Accept(visitor)
	if err != nil {
		return nil, err
	}

	// A jump to a split statement cannot stay a plain break or continue, so
	// everything between it and its target splits too. A jump whose target
	// is copied verbatim stays inside the copy.
	//
	// A return inside a statement copied verbatim would leave the function
	// without running the lowered finally blocks around it, so returns
	// protected by a split try-finally split their whole path.
	//
	// Both rules can split further statements, hence the fixpoint. The split
	// set stays closed under ancestors: every rule marks a suffix of a path
	// whose head is already split, or a whole path.
	for changed := true; changed; {
		changed = false
		for _, path := range jumps {
			jump := path[len(path)-1]
			target := info.targets[jump]
			if info.split[target] && info.markUntil(path, target) {
				changed = true
			}
		}
		for _, path := range returns {
			if info.split[path[len(path)-1]] || !protectedBySplitFinally(info, path) {
				continue
			}
			if info.markPath(path) {
				changed = true
			}
		}
	}

	return info, nil
}

// protectedBySplitFinally reports whether the last node of path sits in the
// try body or catch clause of a split try statement with a finally clause
func protectedBySplitFinally(info *splitInfo, path []*parser.Node) bool {
	for i := 0; i < len(path)-1; i++ {
		n := path[i]
		if n.Type != parser.NodeTryStatement || n.Finalizer == nil || !info.split[n] {
			continue
		}
		if path[i+1] != n.Finalizer {
			return true
		}
	}
	return false
}

// resolveJumpTarget finds the statement a break or continue refers to by
// walking the path from the jump outwards
func resolveJumpTarget(jump *parser.Node, path []*parser.Node) *parser.Node {
	isBreak := jump.Type == parser.NodeBreakStatement
	for i := len(path) - 2; i >= 0; i-- {
		n := path[i]
		if jump.Label != "" {
			if n.Type != parser.NodeLabeledStatement || n.Label != jump.Label {
				continue
			}
			if loop := labeledLoop(n); loop != nil {
				return loop
			}
			if isBreak {
				return n
			}
			// continue to a label that does not name a loop
			return nil
		}
		if n.IsLoop() || (isBreak && n.Type == parser.NodeSwitchStatement) {
			return n
		}
	}
	return nil
}

// labeledLoop returns the loop a chain of labels names, or nil when the
// chain ends in another statement
func labeledLoop(n *parser.Node) *parser.Node {
	for n.Type == parser.NodeLabeledStatement {
		if len(n.Body) != 1 {
			return nil
		}
		n = n.Body[0]
	}
	if n.IsLoop() {
		return n
	}
	return nil
}

func jumpKeyword(n *parser.Node) string {
	if n.Type == parser.NodeBreakStatement {
		return "break"
	}
	return "continue"
}

// containsSuspend reports whether n or a node below it, outside nested
// functions, is a marked suspend call
func containsSuspend(n *parser.Node) bool {
	found := false
	if n == nil {
		return false
	}
	n.WalkScope(func(c *parser.Node) bool {
		if c.Suspend {
			found = true
		}
		return !found
	})
	return found
}

// containsFinally reports whether any statement in stmts has a try with a
// finally clause, outside nested functions
func containsFinally(stmts []*parser.Node) bool {
	for _, s := range stmts {
		found := false
		s.WalkScope(func(c *parser.Node) bool {
			if c.Type == parser.NodeTryStatement && c.Finalizer != nil {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}
