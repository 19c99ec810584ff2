package lowering

import (
	"fmt"
)

// successors returns the blocks referenced by the statements, in statement
// order, nested branches included
func successors(stmts []Stmt) []*Block {
	var out []*Block
	for _, s := range stmts {
		switch s := s.(type) {
		case SetState:
			out = append(out, s.Target)
		case SetExceptionHandler:
			out = append(out, s.Target)
		case SetFinallyPath:
			out = append(out, s.Path...)
		case *If:
			out = append(out, successors(s.Then)...)
			out = append(out, successors(s.Else)...)
		}
	}
	return out
}

// topologicalOrder returns the blocks reachable from entry in reverse
// post-order. Successors are visited in statement order, so the order is
// deterministic and starts with entry.
func topologicalOrder(entry *Block, owned map[*Block]bool) ([]*Block, error) {
	visited := make(map[*Block]bool)
	var post []*Block

	var visit func(b *Block) error
	visit = func(b *Block) error {
		visited[b] = true
		for _, succ := range successors(b.Statements) {
			if !owned[succ] {
				return fmt.Errorf("block %s references block %s of another function", b, succ)
			}
			if visited[succ] {
				continue
			}
			if err := visit(succ); err != nil {
				return err
			}
		}
		post = append(post, b)
		return nil
	}
	if err := visit(entry); err != nil {
		return nil, err
	}

	ordered := make([]*Block, len(post))
	for i, b := range post {
		ordered[len(post)-1-i] = b
	}
	return ordered, nil
}

// finalize numbers the reachable blocks and replaces every placeholder
// with its resolved form
func finalize(entry *Block, owned map[*Block]bool) ([]*Block, error) {
	ordered, err := topologicalOrder(entry, owned)
	if err != nil {
		return nil, err
	}

	for i, b := range ordered {
		b.ID = i
	}
	for _, b := range ordered {
		b.Statements = resolve(b, b.Statements)
	}
	return ordered, nil
}

func resolve(b *Block, stmts []Stmt) []Stmt {
	out := make([]Stmt, 0, len(stmts))
	for _, s := range stmts {
		switch s := s.(type) {
		case SetState:
			out = append(out, AssignState{State: s.Target.ID})
		case SetExceptionHandler:
			b.ExceptionStates = appendUnique(b.ExceptionStates, s.Target.ID)
			out = append(out, AssignExceptionState{State: s.Target.ID})
		case SetFinallyPath:
			states := make([]int, len(s.Path))
			for i, target := range s.Path {
				states[i] = target.ID
				b.FinallyStates = appendUnique(b.FinallyStates, target.ID)
			}
			out = append(out, AssignFinallyPath{States: states, Keep: s.Keep})
		case *If:
			out = append(out, &If{
				Cond:    s.Cond,
				Negated: s.Negated,
				Then:    resolve(b, s.Then),
				Else:    resolve(b, s.Else),
				Node:    s.Node,
			})
		default:
			out = append(out, s)
		}
	}
	return out
}

func appendUnique(list []int, v int) []int {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
