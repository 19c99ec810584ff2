package lowering

import (
	"go.uber.org/zap"

	"github.com/ludo-technologies/coroflat/internal/parser"
)

func (t *bodyTransformer) lowerJump(n *parser.Node) error {
	stmt, ok := t.info.targets[n]
	if !ok {
		return invariant(n, "%s has no resolved target", jumpKeyword(n))
	}

	targets := t.breakTargets
	if n.Type == parser.NodeContinueStatement {
		targets = t.continueTargets
	}
	target, ok := targets[stmt]
	if !ok {
		return invariant(n, "%s target has no registered block", jumpKeyword(n))
	}
	if target.tryDepth > t.tryDepth() {
		return invariant(n, "%s into a nested try region (depth %d > %d)", jumpKeyword(n), target.tryDepth, t.tryDepth())
	}

	want := t.tryStack[target.tryDepth].handler
	if h := t.handlerAfterFinally(target.tryDepth); h != nil && h != want {
		t.handlerResets[target.block] = want
	}

	t.jumpWithFinally(target)
	t.emit(Dispatch{})
	t.abandon()
	return nil
}

// jumpWithFinally transfers control to target.block, running the finally
// blocks of every try region between the jump site and the target first,
// innermost first. The caller emits the Dispatch.
func (t *bodyTransformer) jumpWithFinally(target jumpTarget) {
	if target.tryDepth < t.tryDepth() {
		t.emit(t.setExceptionHandler(t.tryStack[target.tryDepth].handler))
	}

	path := append(t.relativeFinallyPath(target.tryDepth+1), target.block)
	if len(path) > 1 || t.pendingDepth > target.pendingDepth {
		t.emit(t.setFinallyPath(path[1:], target.pendingDepth))
	}
	t.emit(t.setState(path[0]))

	t.logger.Debug("jump resolved",
		zap.String("target", target.block.Label),
		zap.Int("from_depth", t.tryDepth()),
		zap.Int("to_depth", target.tryDepth),
		zap.Int("finally_blocks", len(path)-1))
}

// handlerAfterFinally returns the handler installed by the outermost finally
// block run on the way to a target at depth, or nil when none runs
func (t *bodyTransformer) handlerAfterFinally(depth int) *Block {
	for i := depth + 1; i < len(t.tryStack); i++ {
		if t.tryStack[i].finallyBlock != nil {
			return t.tryStack[i-1].handler
		}
	}
	return nil
}

// relativeFinallyPath lists the finally blocks of the regions from depth
// upwards, innermost first
func (t *bodyTransformer) relativeFinallyPath(depth int) []*Block {
	var path []*Block
	for i := len(t.tryStack) - 1; i >= depth; i-- {
		if fb := t.tryStack[i].finallyBlock; fb != nil {
			path = append(path, fb)
		}
	}
	return path
}

func (t *bodyTransformer) lowerReturn(n *parser.Node) error {
	site := suspendSite(n.Argument)
	if site != nil {
		if nestedSuspend(site) {
			return unsupported(n, "nested suspend calls in a return value")
		}
	} else if containsSuspend(n.Argument) {
		return unsupported(n, "suspend call nested inside a return value")
	}

	if site != nil {
		t.splitSuspend(n, site)
	}

	if !t.hasEnclosingFinally() {
		if site != nil {
			t.emit(Return{FromResult: true})
			t.abandon()
			return nil
		}
		t.emit(Source{Node: n})
		return nil
	}

	returnBlock := t.newBlock(LabelReturn)
	switch {
	case site != nil:
		t.emit(StoreReturnValue{FromResult: true})
	case n.Argument != nil:
		t.emit(StoreReturnValue{Value: n.Argument})
	}
	t.jumpWithFinally(jumpTarget{block: returnBlock})
	t.emit(Dispatch{})

	returnBlock.add(Return{FromSlot: site != nil || n.Argument != nil})
	t.abandon()
	return nil
}
