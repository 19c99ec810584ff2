package suspend

import (
	"github.com/ludo-technologies/coroflat/internal/parser"
)

// Marker flags the suspension points of a tree
type Marker struct {
	matcher Matcher
	awaits  bool
}

// NewMarker creates a marker. A nil matcher matches no call.
func NewMarker(matcher Matcher, awaits bool) *Marker {
	return &Marker{matcher: matcher, awaits: awaits}
}

// Mark sets the Suspend flag on the suspending calls and awaits below root,
// nested functions included, and returns how many it flagged. The operand of
// a suspending await is not flagged itself: the await is the suspension
// point.
func (m *Marker) Mark(root *parser.Node) int {
	if root == nil {
		return 0
	}

	count := 0
	operands := make(map[*parser.Node]bool)
	root.Walk(func(n *parser.Node) bool {
		switch n.Type {
		case parser.NodeAwaitExpression:
			if m.awaits {
				n.Suspend = true
				count++
				if n.Argument != nil {
					operands[n.Argument] = true
				}
			}
		case parser.NodeCallExpression:
			if operands[n] || m.matcher == nil {
				break
			}
			if m.matcher.Match(n.CalleeName()) {
				n.Suspend = true
				count++
			}
		}
		return true
	})
	return count
}

// Count returns the number of flagged nodes of fn outside nested functions
func Count(fn *parser.Node) int {
	count := 0
	for _, n := range fn.Body {
		if n.IsFunction() || n.Type == parser.NodeClass {
			continue
		}
		n.WalkScope(func(c *parser.Node) bool {
			if c.Suspend {
				count++
			}
			return true
		})
	}
	return count
}
