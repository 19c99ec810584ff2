// Package lowering turns the body of a suspendable function into a flat
// graph of basic blocks connected by explicit state transitions.
//
// The input is a statement tree from package parser whose suspend calls have
// been marked beforehand. Statements that contain no suspension point and no
// jump leaving them are copied through unchanged; everything else is split
// into blocks. Blocks reference each other through transition placeholders
// while the graph is built, and the finalizer numbers the reachable blocks
// and rewrites the placeholders into integer states.
//
// A code generator drives the result with a dispatch loop:
//
//	for {
//	    try {
//	        switch ($state) { case 0: ...; case 1: ... }
//	    } catch (e) {
//	        if ($state === GLOBAL_CATCH) throw e;
//	        $state = $exceptionState; $exception = e;
//	    }
//	}
//
// where every block ends by assigning the next state and continuing the
// loop, returning the sentinel when a call suspends, or returning the
// function result. GLOBAL_CATCH is Graph.GlobalCatch: its block rethrows the
// pending exception out of the function.
//
// Basic usage:
//
//	graph, err := lowering.New().Lower(fn)
//	if err != nil {
//	    // *InvariantError carries the offending statement
//	}
//	lowering.Format(os.Stdout, graph)
package lowering
