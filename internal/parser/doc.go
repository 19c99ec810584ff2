// Package parser provides JavaScript parsing capabilities using tree-sitter.
//
// This package wraps the tree-sitter Go bindings to parse JavaScript source
// code and converts the concrete syntax tree into the statement model that
// the lowering pass consumes. Statements are modeled precisely; expressions
// are kept mostly opaque (their source text plus operands), except for the
// forms the lowering pass needs to recognize: calls, await, assignments and
// literals.
//
// Basic usage:
//
//	p := parser.New()
//	result, err := p.Parse(ctx, []byte("async function f() { await g(); }"))
//	if err != nil {
//	    // Handle parsing error
//	}
//	program, err := parser.NewASTBuilder(result.SourceCode).Build(result.Tree)
//	functions := parser.CollectFunctions(program)
package parser
