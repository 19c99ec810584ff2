package parser

import (
	"context"
	"fmt"
	"io"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Parser provides JavaScript code parsing capabilities using tree-sitter
type Parser struct {
	parser *sitter.Parser
}

// New creates a new Parser instance with the JavaScript grammar
func New() *Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return &Parser{
		parser: parser,
	}
}

// ParseResult represents the result of parsing JavaScript code
type ParseResult struct {
	Tree       *sitter.Tree
	RootNode   *sitter.Node
	SourceCode []byte
}

// Parse parses JavaScript source code and returns the syntax tree
func (p *Parser) Parse(ctx context.Context, source []byte) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		if pos, ok := p.firstError(rootNode); ok {
			return nil, fmt.Errorf("syntax errors found in source code at line %d", pos.Row+1)
		}
		return nil, fmt.Errorf("syntax errors found in source code")
	}

	return &ParseResult{
		Tree:       tree,
		RootNode:   rootNode,
		SourceCode: source,
	}, nil
}

// ParseFile parses a JavaScript file from a reader
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) (*ParseResult, error) {
	source, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	return p.Parse(ctx, source)
}

// WalkTree traverses the syntax tree and calls the visitor function for each node
func (p *Parser) WalkTree(node *sitter.Node, visitor func(*sitter.Node) error) error {
	if err := visitor(node); err != nil {
		return err
	}

	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		if err := p.WalkTree(child, visitor); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) firstError(node *sitter.Node) (sitter.Point, bool) {
	var (
		pos   sitter.Point
		found bool
	)
	_ = p.WalkTree(node, func(n *sitter.Node) error {
		if !found && (n.IsError() || n.IsMissing()) {
			pos = n.StartPoint()
			found = true
		}
		return nil
	})
	return pos, found
}

// ParseProgram parses source and builds the statement model in one step.
// The file name is recorded in every node location.
func (p *Parser) ParseProgram(ctx context.Context, file string, source []byte) (*Node, error) {
	result, err := p.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	builder := NewASTBuilder(result.SourceCode)
	builder.SetFile(file)
	return builder.Build(result.Tree)
}
