package lowering

import (
	"go.uber.org/zap"

	"github.com/ludo-technologies/coroflat/internal/parser"
)

// tryRegion is the frame of one lexically active try statement. Frame 0
// belongs to the function itself and holds the global catch block.
type tryRegion struct {
	catchBlock   *Block
	finallyBlock *Block

	// handler is the exception handler active for code lowered in the
	// region: the catch block inside the try body, the finally block or the
	// enclosing handler inside the catch clause
	handler *Block
}

// jumpTarget is a block a break or continue can reach, together with the
// try depth and pending depth in effect at the target
type jumpTarget struct {
	block        *Block
	tryDepth     int
	pendingDepth int
}

// bodyTransformer lowers one function body. It is used once and discarded.
type bodyTransformer struct {
	info *splitInfo

	entry       *Block
	globalCatch *Block
	current     *Block

	tryStack []*tryRegion

	// pendingDepth counts the enclosing constructs that own entries of the
	// pending finally path: finally bodies, and catch clauses of try
	// statements that have a finally clause
	pendingDepth int

	// restored marks the pending levels some finally path update appends
	// the saved path of
	restored map[int]bool

	// handlerResets holds jump targets reached through a finally block that
	// leaves a handler of a region the jump left installed
	handlerResets map[*Block]*Block

	breakTargets    map[*parser.Node]jumpTarget
	continueTargets map[*parser.Node]jumpTarget
	referenced      map[*Block]bool
	blocks          map[*Block]bool

	hasFinally bool
	sentinel   bool
	logger     *zap.Logger
}

func newBodyTransformer(info *splitInfo, sentinel bool, logger *zap.Logger) *bodyTransformer {
	t := &bodyTransformer{
		info:            info,
		breakTargets:    make(map[*parser.Node]jumpTarget),
		continueTargets: make(map[*parser.Node]jumpTarget),
		referenced:      make(map[*Block]bool),
		blocks:          make(map[*Block]bool),
		restored:        make(map[int]bool),
		handlerResets:   make(map[*Block]*Block),
		sentinel:        sentinel,
		logger:          logger,
	}
	t.entry = t.newBlock(LabelEntry)
	t.globalCatch = t.newBlock(LabelGlobalCatch)
	t.globalCatch.add(Rethrow{})
	t.current = t.entry
	t.tryStack = []*tryRegion{{catchBlock: t.globalCatch, handler: t.globalCatch}}
	return t
}

func (t *bodyTransformer) newBlock(label string) *Block {
	b := newBlock(label)
	t.blocks[b] = true
	return b
}

// newBranch creates a container for the statements of an if branch. It is
// inlined into the If and never becomes a block of the graph.
func (t *bodyTransformer) newBranch() *Block {
	return newBlock(labelBranch)
}

func (t *bodyTransformer) tryDepth() int {
	return len(t.tryStack) - 1
}

func (t *bodyTransformer) handler() *Block {
	return t.tryStack[len(t.tryStack)-1].handler
}

func (t *bodyTransformer) emit(stmts ...Stmt) {
	t.current.add(stmts...)
}

func (t *bodyTransformer) setState(target *Block) Stmt {
	t.referenced[target] = true
	return SetState{Target: target}
}

func (t *bodyTransformer) setExceptionHandler(target *Block) Stmt {
	t.referenced[target] = true
	return SetExceptionHandler{Target: target}
}

func (t *bodyTransformer) setFinallyPath(path []*Block, keep int) Stmt {
	for _, b := range path {
		t.referenced[b] = true
	}
	if keep > 0 {
		t.restored[keep] = true
	}
	return SetFinallyPath{Path: path, Keep: keep}
}

func (t *bodyTransformer) stateAndJump(target *Block) {
	t.emit(t.setState(target), Dispatch{})
}

// left reports whether control already left the current block
func (t *bodyTransformer) left() bool {
	if t.current.Label == LabelUnreachable && len(t.current.Statements) == 0 {
		return true
	}
	return t.current.terminated()
}

// abandon continues lowering in a block nothing can reach. Code following
// an unconditional jump lands there and is dropped by the finalizer.
func (t *bodyTransformer) abandon() {
	t.current = t.newBlock(LabelUnreachable)
}

func (t *bodyTransformer) lowerStatements(stmts []*parser.Node) error {
	for _, stmt := range stmts {
		if err := t.lowerStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (t *bodyTransformer) lowerStatement(n *parser.Node) error {
	switch n.Type {
	case parser.NodeExpressionStatement:
		return t.lowerExpressionStatement(n)
	case parser.NodeVariableDeclaration:
		return t.lowerVariableDeclaration(n)
	case parser.NodeReturnStatement:
		return t.lowerReturn(n)
	case parser.NodeBreakStatement, parser.NodeContinueStatement:
		return t.lowerJump(n)
	}

	if !t.info.needsSplit(n) {
		t.emit(Source{Node: n})
		return nil
	}

	switch n.Type {
	case parser.NodeBlockStatement:
		return t.lowerStatements(n.Body)
	case parser.NodeIfStatement:
		return t.lowerIf(n)
	case parser.NodeWhileStatement:
		return t.lowerWhile(n)
	case parser.NodeDoWhileStatement:
		return t.lowerDoWhile(n)
	case parser.NodeForStatement:
		return t.lowerFor(n)
	case parser.NodeLabeledStatement:
		return t.lowerLabeled(n)
	case parser.NodeTryStatement:
		return t.lowerTry(n)
	case parser.NodeThrowStatement:
		return unsupported(n, "suspend call inside a throw expression")
	case parser.NodeSwitchStatement:
		return unsupported(n, "switch statement cannot be split")
	case parser.NodeForInStatement, parser.NodeForOfStatement:
		return unsupported(n, "for-in/for-of loop cannot be split")
	default:
		return invariant(n, "cannot lower statement")
	}
}

func (t *bodyTransformer) lowerIf(n *parser.Node) error {
	if containsSuspend(n.Test) {
		return unsupported(n, "suspend call inside an if condition")
	}

	ifBlock := t.current

	thenEntry := t.newBranch()
	t.current = thenEntry
	if n.Consequent != nil {
		if err := t.lowerStatement(n.Consequent); err != nil {
			return err
		}
	}
	thenExit, thenLeft := t.current, t.left()

	elseEntry := t.newBranch()
	t.current = elseEntry
	if n.Alternate != nil {
		if err := t.lowerStatement(n.Alternate); err != nil {
			return err
		}
	}
	elseExit, elseLeft := t.current, t.left()

	node := &If{Cond: n.Test, Node: n}

	// Without a split inside the branches that fall through, the code after
	// the if can stay in the same block.
	thenInline := thenLeft || thenExit == thenEntry
	elseInline := elseLeft || elseExit == elseEntry
	if thenInline && elseInline && !(thenLeft && elseLeft) {
		node.Then, node.Else = thenEntry.Statements, elseEntry.Statements
		ifBlock.add(node)
		t.current = ifBlock
		return nil
	}

	join := t.newBlock(LabelIfJoin)
	if !thenLeft {
		thenExit.add(t.setState(join), Dispatch{})
	}
	if !elseLeft {
		elseExit.add(t.setState(join), Dispatch{})
	}

	node.Then, node.Else = thenEntry.Statements, elseEntry.Statements
	ifBlock.add(node)
	t.current = join
	return nil
}

// exitCheck builds "if (!cond) goto successor"
func (t *bodyTransformer) exitCheck(cond *parser.Node, successor *Block) Stmt {
	return &If{
		Cond:    cond,
		Negated: true,
		Then:    []Stmt{t.setState(successor), Dispatch{}},
	}
}

func (t *bodyTransformer) lowerWhile(n *parser.Node) error {
	if containsSuspend(n.Test) {
		return unsupported(n, "suspend call inside a loop condition")
	}

	successor := t.newBlock(LabelLoopExit)
	bodyEntry := t.newBlock(LabelLoopBody)
	t.stateAndJump(bodyEntry)

	t.current = bodyEntry
	if n.Test != nil && !n.Test.IsLiteralTrue() {
		t.emit(t.exitCheck(n.Test, successor))
	}

	err := t.withBreakAndContinue(n, successor, bodyEntry, func() error {
		return t.lowerStatements(n.Body)
	})
	if err != nil {
		return err
	}
	if !t.left() {
		t.stateAndJump(bodyEntry)
	}

	t.current = successor
	return nil
}

func (t *bodyTransformer) lowerDoWhile(n *parser.Node) error {
	if containsSuspend(n.Test) {
		return unsupported(n, "suspend call inside a loop condition")
	}

	successor := t.newBlock(LabelLoopExit)
	bodyEntry := t.newBlock(LabelLoopBody)
	condition := t.newBlock(LabelCondition)
	t.stateAndJump(bodyEntry)

	t.current = bodyEntry
	err := t.withBreakAndContinue(n, successor, condition, func() error {
		return t.lowerStatements(n.Body)
	})
	if err != nil {
		return err
	}

	// The condition only needs its own block when a continue jumps to it.
	if t.referenced[condition] {
		if !t.left() {
			t.stateAndJump(condition)
		}
		t.current = condition
	}
	if !t.left() {
		if n.Test != nil && !n.Test.IsLiteralTrue() {
			t.emit(t.exitCheck(n.Test, successor))
		}
		t.stateAndJump(bodyEntry)
	}

	t.current = successor
	return nil
}

func (t *bodyTransformer) lowerFor(n *parser.Node) error {
	if containsSuspend(n.Test) || containsSuspend(n.Update) {
		return unsupported(n, "suspend call inside a for loop header")
	}
	if n.Init != nil {
		if err := t.lowerStatement(n.Init); err != nil {
			return err
		}
	}

	successor := t.newBlock(LabelLoopExit)
	bodyEntry := t.newBlock(LabelLoopBody)
	increment := t.newBlock(LabelIncrement)
	t.stateAndJump(bodyEntry)

	t.current = bodyEntry
	if n.Test != nil && !n.Test.IsLiteralTrue() {
		t.emit(t.exitCheck(n.Test, successor))
	}

	err := t.withBreakAndContinue(n, successor, increment, func() error {
		return t.lowerStatements(n.Body)
	})
	if err != nil {
		return err
	}
	if !t.left() {
		t.stateAndJump(increment)
	}

	t.current = increment
	if n.Update != nil {
		t.emit(Eval{Expr: n.Update})
	}
	t.stateAndJump(bodyEntry)

	t.current = successor
	return nil
}

func (t *bodyTransformer) lowerLabeled(n *parser.Node) error {
	if len(n.Body) != 1 {
		return invariant(n, "labeled statement without a body")
	}
	if loop := labeledLoop(n); loop != nil {
		// the loop owns the targets of every label in the chain
		return t.lowerStatement(loop)
	}
	inner := n.Body[0]

	successor := t.newBlock(LabelLabelExit)
	err := t.withBreakAndContinue(n, successor, nil, func() error {
		return t.lowerStatement(inner)
	})
	if err != nil {
		return err
	}

	if t.referenced[successor] {
		if !t.left() {
			t.stateAndJump(successor)
		}
		t.current = successor
	}
	return nil
}

func (t *bodyTransformer) withBreakAndContinue(n *parser.Node, breakBlock, continueBlock *Block, action func() error) error {
	target := jumpTarget{tryDepth: t.tryDepth(), pendingDepth: t.pendingDepth}

	target.block = breakBlock
	t.breakTargets[n] = target
	if continueBlock != nil {
		target.block = continueBlock
		t.continueTargets[n] = target
	}

	err := action()

	delete(t.breakTargets, n)
	delete(t.continueTargets, n)
	return err
}

func (t *bodyTransformer) lowerTry(n *parser.Node) error {
	successor := t.newBlock(LabelTryExit)
	catchBlock := t.newBlock(LabelCatch)
	var finallyBlock *Block
	if n.Finalizer != nil {
		finallyBlock = t.newBlock(LabelFinally)
		t.hasFinally = true
	}

	enclosing := t.handler()
	level := t.pendingDepth
	region := &tryRegion{catchBlock: catchBlock, finallyBlock: finallyBlock, handler: catchBlock}
	t.tryStack = append(t.tryStack, region)

	t.emit(t.setExceptionHandler(catchBlock))
	if err := t.lowerStatements(n.Body); err != nil {
		return err
	}
	if !t.left() {
		t.emit(t.setExceptionHandler(enclosing))
		t.exitTryClause(finallyBlock, successor, level)
	}

	// The catch block is entered from the dispatch loop with the exception
	// stored in the exception slot.
	t.current = catchBlock
	switch {
	case finallyBlock != nil && n.Handler != nil:
		t.emit(t.setFinallyPath([]*Block{enclosing}, level), t.setExceptionHandler(finallyBlock))
	case finallyBlock != nil:
		t.emit(t.setFinallyPath([]*Block{enclosing}, level))
		t.stateAndJump(finallyBlock)
	case n.Handler != nil:
		if containsFinally(n.Body) {
			// drop entries of finally blocks the exception escaped from
			t.emit(t.setFinallyPath(nil, level))
		}
		t.emit(t.setExceptionHandler(enclosing))
	default:
		t.stateAndJump(enclosing)
	}

	if n.Handler != nil {
		clause := func() error {
			if n.Handler.Name != "" {
				t.emit(BindException{Name: n.Handler.Name})
			}
			return t.lowerStatements(n.Handler.Body)
		}

		var err error
		region.handler = enclosing
		if finallyBlock != nil {
			region.handler = finallyBlock
			err = t.withPendingLevel(clause)
		} else {
			err = clause()
		}
		if err != nil {
			return err
		}
		if !t.left() {
			t.exitTryClause(finallyBlock, successor, level)
		}
	}

	if err := t.popTry(n, region); err != nil {
		return err
	}

	if finallyBlock != nil {
		t.current = finallyBlock
		t.emit(t.setExceptionHandler(enclosing))
		err := t.withPendingLevel(func() error {
			return t.lowerStatements(n.Finalizer.Body)
		})
		if err != nil {
			return err
		}
		if !t.left() {
			t.emit(FinallyExit{})
		}
	}

	t.current = successor
	return nil
}

// withPendingLevel lowers a construct that owns entries of the pending
// finally path. The path is saved on entry only when an update inside the
// construct restores it.
func (t *bodyTransformer) withPendingLevel(action func() error) error {
	t.pendingDepth++
	level := t.pendingDepth
	block, at := t.current, len(t.current.Statements)
	t.restored[level] = false

	err := action()

	if t.restored[level] {
		block.insert(at, SaveFinallyPath{Level: level})
	}
	delete(t.restored, level)
	t.pendingDepth--
	return err
}

// exitTryClause leaves a try body or catch clause normally
func (t *bodyTransformer) exitTryClause(finallyBlock, successor *Block, level int) {
	if finallyBlock == nil {
		t.stateAndJump(successor)
		return
	}
	t.emit(t.setFinallyPath([]*Block{successor}, level))
	t.stateAndJump(finallyBlock)
}

// resetHandlers installs the handler of each recorded jump target on entry
func (t *bodyTransformer) resetHandlers() {
	for block, h := range t.handlerResets {
		block.insert(0, t.setExceptionHandler(h))
	}
}

func (t *bodyTransformer) popTry(n *parser.Node, region *tryRegion) error {
	if len(t.tryStack) < 2 {
		return invariant(n, "try region stack underflow")
	}
	if t.tryStack[len(t.tryStack)-1] != region {
		return invariant(n, "try region stack out of balance")
	}
	t.tryStack = t.tryStack[:len(t.tryStack)-1]
	return nil
}

func (t *bodyTransformer) hasEnclosingFinally() bool {
	for _, r := range t.tryStack {
		if r.finallyBlock != nil {
			return true
		}
	}
	return false
}
