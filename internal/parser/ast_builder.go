package parser

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ASTBuilder converts tree-sitter parse trees to internal AST representation
type ASTBuilder struct {
	source []byte
	file   string
}

// NewASTBuilder creates a new AST builder
func NewASTBuilder(source []byte) *ASTBuilder {
	return &ASTBuilder{
		source: source,
	}
}

// SetFile sets the file name recorded in node locations
func (b *ASTBuilder) SetFile(file string) {
	b.file = file
}

// Build converts a tree-sitter tree to internal AST
func (b *ASTBuilder) Build(tree *sitter.Tree) (*Node, error) {
	if tree == nil {
		return nil, fmt.Errorf("tree is nil")
	}

	rootNode := tree.RootNode()
	if rootNode == nil {
		return nil, fmt.Errorf("root node is nil")
	}

	ast := b.buildNode(rootNode)
	if ast == nil {
		return nil, fmt.Errorf("unexpected root node %q", rootNode.Type())
	}
	return ast, nil
}

// buildNode recursively builds AST nodes from tree-sitter nodes
func (b *ASTBuilder) buildNode(tsNode *sitter.Node) *Node {
	if tsNode == nil || b.isTrivia(tsNode) {
		return nil
	}

	switch tsNode.Type() {
	case "program":
		return b.buildProgram(tsNode)
	case "function_declaration", "generator_function_declaration":
		return b.buildFunction(tsNode, NodeFunction)
	case "function", "function_expression", "generator_function":
		return b.buildFunction(tsNode, NodeFunctionExpression)
	case "arrow_function":
		return b.buildArrowFunction(tsNode)
	case "method_definition":
		return b.buildFunction(tsNode, NodeMethodDefinition)
	case "class_declaration", "class":
		return b.buildClass(tsNode)
	case "statement_block":
		return b.buildBlock(tsNode)
	case "if_statement":
		return b.buildIfStatement(tsNode)
	case "while_statement":
		return b.buildWhileStatement(tsNode)
	case "do_statement":
		return b.buildDoStatement(tsNode)
	case "for_statement":
		return b.buildForStatement(tsNode)
	case "for_in_statement":
		return b.buildForInStatement(tsNode)
	case "labeled_statement":
		return b.buildLabeledStatement(tsNode)
	case "break_statement":
		return b.buildJump(tsNode, NodeBreakStatement)
	case "continue_statement":
		return b.buildJump(tsNode, NodeContinueStatement)
	case "return_statement":
		return b.buildArgumentStatement(tsNode, NodeReturnStatement)
	case "throw_statement":
		return b.buildArgumentStatement(tsNode, NodeThrowStatement)
	case "try_statement":
		return b.buildTryStatement(tsNode)
	case "switch_statement":
		return b.buildSwitchStatement(tsNode)
	case "expression_statement":
		return b.buildExpressionStatement(tsNode)
	case "lexical_declaration", "variable_declaration":
		return b.buildVariableDeclaration(tsNode)
	case "empty_statement":
		return b.newNode(NodeEmptyStatement, tsNode)
	default:
		return b.buildExpression(tsNode)
	}
}

func (b *ASTBuilder) newNode(nodeType NodeType, tsNode *sitter.Node) *Node {
	node := NewNode(nodeType)
	node.Location = b.getLocation(tsNode)
	node.Raw = b.getNodeText(tsNode)
	return node
}

func (b *ASTBuilder) buildProgram(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeProgram, tsNode)
	for _, stmt := range b.buildStatements(tsNode) {
		node.AddToBody(stmt)
	}
	return node
}

// buildStatements builds every named, non-trivia child of tsNode
func (b *ASTBuilder) buildStatements(tsNode *sitter.Node) []*Node {
	var stmts []*Node
	count := int(tsNode.NamedChildCount())
	for i := 0; i < count; i++ {
		if stmt := b.buildNode(tsNode.NamedChild(i)); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// bodyOf returns the statements of a block, or the single statement otherwise
func (b *ASTBuilder) bodyOf(tsNode *sitter.Node, parent *Node) {
	if tsNode == nil {
		return
	}
	if tsNode.Type() == "statement_block" {
		for _, stmt := range b.buildStatements(tsNode) {
			parent.AddToBody(stmt)
		}
		return
	}
	parent.AddToBody(b.buildNode(tsNode))
}

func (b *ASTBuilder) buildFunction(tsNode *sitter.Node, nodeType NodeType) *Node {
	node := b.newNode(nodeType, tsNode)
	if name := b.getChildByFieldName(tsNode, "name"); name != nil {
		node.Name = b.getNodeText(name)
	}
	node.Async = b.hasChildOfType(tsNode, "async")
	node.Generator = strings.HasPrefix(tsNode.Type(), "generator_") || b.hasChildOfType(tsNode, "*")
	node.Params = b.buildParameters(b.getChildByFieldName(tsNode, "parameters"), node)
	b.bodyOf(b.getChildByFieldName(tsNode, "body"), node)
	return node
}

func (b *ASTBuilder) buildArrowFunction(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeArrowFunction, tsNode)
	node.Async = b.hasChildOfType(tsNode, "async")
	if params := b.getChildByFieldName(tsNode, "parameters"); params != nil {
		node.Params = b.buildParameters(params, node)
	} else if param := b.getChildByFieldName(tsNode, "parameter"); param != nil {
		p := b.buildNode(param)
		p.Parent = node
		node.Params = []*Node{p}
	}

	body := b.getChildByFieldName(tsNode, "body")
	if body != nil && body.Type() != "statement_block" {
		// Concise body: model it as a single return statement.
		ret := b.newNode(NodeReturnStatement, body)
		ret.Argument = b.buildExpression(body)
		ret.Argument.Parent = ret
		node.AddToBody(ret)
		return node
	}
	b.bodyOf(body, node)
	return node
}

func (b *ASTBuilder) buildParameters(tsNode *sitter.Node, parent *Node) []*Node {
	if tsNode == nil {
		return nil
	}
	var params []*Node
	for _, p := range b.buildStatements(tsNode) {
		p.Parent = parent
		params = append(params, p)
	}
	return params
}

func (b *ASTBuilder) buildClass(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeClass, tsNode)
	if name := b.getChildByFieldName(tsNode, "name"); name != nil {
		node.Name = b.getNodeText(name)
	}
	if body := b.getChildByFieldName(tsNode, "body"); body != nil {
		for _, member := range b.buildStatements(body) {
			node.AddToBody(member)
		}
	}
	return node
}

func (b *ASTBuilder) buildBlock(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeBlockStatement, tsNode)
	for _, stmt := range b.buildStatements(tsNode) {
		node.AddToBody(stmt)
	}
	return node
}

func (b *ASTBuilder) buildIfStatement(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeIfStatement, tsNode)
	node.Test = b.buildCondition(b.getChildByFieldName(tsNode, "condition"), node)

	if cons := b.buildNode(b.getChildByFieldName(tsNode, "consequence")); cons != nil {
		cons.Parent = node
		node.Consequent = cons
	}

	if alt := b.getChildByFieldName(tsNode, "alternative"); alt != nil {
		// else_clause wraps the statement
		if alt.Type() == "else_clause" {
			alt = b.firstNamedChild(alt)
		}
		if altNode := b.buildNode(alt); altNode != nil {
			altNode.Parent = node
			node.Alternate = altNode
		}
	}
	return node
}

// buildCondition builds a loop or branch condition, unwrapping parentheses
// and the statement forms for-loop headers use.
func (b *ASTBuilder) buildCondition(tsNode *sitter.Node, parent *Node) *Node {
	for tsNode != nil && (tsNode.Type() == "parenthesized_expression" || tsNode.Type() == "expression_statement") {
		tsNode = b.firstNamedChild(tsNode)
	}
	if tsNode == nil || tsNode.Type() == "empty_statement" || tsNode.Type() == ";" {
		return nil
	}
	cond := b.buildExpression(tsNode)
	cond.Parent = parent
	return cond
}

func (b *ASTBuilder) buildWhileStatement(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeWhileStatement, tsNode)
	node.Test = b.buildCondition(b.getChildByFieldName(tsNode, "condition"), node)
	b.bodyOf(b.getChildByFieldName(tsNode, "body"), node)
	return node
}

func (b *ASTBuilder) buildDoStatement(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeDoWhileStatement, tsNode)
	b.bodyOf(b.getChildByFieldName(tsNode, "body"), node)
	node.Test = b.buildCondition(b.getChildByFieldName(tsNode, "condition"), node)
	return node
}

func (b *ASTBuilder) buildForStatement(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeForStatement, tsNode)

	if init := b.getChildByFieldName(tsNode, "initializer"); init != nil {
		switch init.Type() {
		case "empty_statement", ";":
		case "lexical_declaration", "variable_declaration", "expression_statement":
			node.Init = b.buildNode(init)
		default:
			stmt := b.newNode(NodeExpressionStatement, init)
			stmt.Expression = b.buildExpression(init)
			stmt.Expression.Parent = stmt
			node.Init = stmt
		}
		if node.Init != nil {
			node.Init.Parent = node
		}
	}

	node.Test = b.buildCondition(b.getChildByFieldName(tsNode, "condition"), node)

	if update := b.getChildByFieldName(tsNode, "increment"); update != nil {
		node.Update = b.buildExpression(update)
		node.Update.Parent = node
	}

	b.bodyOf(b.getChildByFieldName(tsNode, "body"), node)
	return node
}

func (b *ASTBuilder) buildForInStatement(tsNode *sitter.Node) *Node {
	nodeType := NodeForInStatement
	if op := b.getChildByFieldName(tsNode, "operator"); op != nil && b.getNodeText(op) == "of" {
		nodeType = NodeForOfStatement
	}
	node := b.newNode(nodeType, tsNode)
	if left := b.getChildByFieldName(tsNode, "left"); left != nil {
		node.Left = b.buildExpression(left)
		node.Left.Parent = node
	}
	if right := b.getChildByFieldName(tsNode, "right"); right != nil {
		node.Right = b.buildExpression(right)
		node.Right.Parent = node
	}
	b.bodyOf(b.getChildByFieldName(tsNode, "body"), node)
	return node
}

func (b *ASTBuilder) buildLabeledStatement(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeLabeledStatement, tsNode)
	if label := b.getChildByFieldName(tsNode, "label"); label != nil {
		node.Label = b.getNodeText(label)
	}
	node.AddToBody(b.buildNode(b.getChildByFieldName(tsNode, "body")))
	return node
}

func (b *ASTBuilder) buildJump(tsNode *sitter.Node, nodeType NodeType) *Node {
	node := b.newNode(nodeType, tsNode)
	if label := b.getChildByFieldName(tsNode, "label"); label != nil {
		node.Label = b.getNodeText(label)
	}
	return node
}

func (b *ASTBuilder) buildArgumentStatement(tsNode *sitter.Node, nodeType NodeType) *Node {
	node := b.newNode(nodeType, tsNode)
	if arg := b.firstNamedChild(tsNode); arg != nil {
		node.Argument = b.buildExpression(arg)
		node.Argument.Parent = node
	}
	return node
}

func (b *ASTBuilder) buildTryStatement(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeTryStatement, tsNode)
	b.bodyOf(b.getChildByFieldName(tsNode, "body"), node)

	if handler := b.getChildByFieldName(tsNode, "handler"); handler != nil {
		clause := b.newNode(NodeCatchClause, handler)
		if param := b.getChildByFieldName(handler, "parameter"); param != nil {
			clause.Name = b.getNodeText(param)
		}
		b.bodyOf(b.getChildByFieldName(handler, "body"), clause)
		clause.Parent = node
		node.Handler = clause
	}

	if finalizer := b.getChildByFieldName(tsNode, "finalizer"); finalizer != nil {
		block := b.newNode(NodeBlockStatement, finalizer)
		b.bodyOf(b.getChildByFieldName(finalizer, "body"), block)
		block.Parent = node
		node.Finalizer = block
	}
	return node
}

func (b *ASTBuilder) buildSwitchStatement(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeSwitchStatement, tsNode)
	node.Test = b.buildCondition(b.getChildByFieldName(tsNode, "value"), node)

	body := b.getChildByFieldName(tsNode, "body")
	if body == nil {
		return node
	}
	count := int(body.NamedChildCount())
	for i := 0; i < count; i++ {
		tsCase := body.NamedChild(i)
		if tsCase.Type() != "switch_case" && tsCase.Type() != "switch_default" {
			continue
		}
		c := b.newNode(NodeSwitchCase, tsCase)
		value := b.getChildByFieldName(tsCase, "value")
		if value != nil {
			c.Test = b.buildExpression(value)
			c.Test.Parent = c
		}
		caseCount := int(tsCase.NamedChildCount())
		for j := 0; j < caseCount; j++ {
			child := tsCase.NamedChild(j)
			if value != nil && child.StartByte() == value.StartByte() && child.EndByte() == value.EndByte() {
				continue
			}
			c.AddToBody(b.buildNode(child))
		}
		c.Parent = node
		node.Cases = append(node.Cases, c)
	}
	return node
}

func (b *ASTBuilder) buildExpressionStatement(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeExpressionStatement, tsNode)
	if expr := b.firstNamedChild(tsNode); expr != nil {
		node.Expression = b.buildExpression(expr)
		node.Expression.Parent = node
	}
	return node
}

func (b *ASTBuilder) buildVariableDeclaration(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeVariableDeclaration, tsNode)
	if kind := tsNode.Child(0); kind != nil {
		node.Kind = b.getNodeText(kind)
	}
	count := int(tsNode.NamedChildCount())
	for i := 0; i < count; i++ {
		child := tsNode.NamedChild(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		decl := b.newNode(NodeVariableDeclarator, child)
		if name := b.getChildByFieldName(child, "name"); name != nil {
			decl.Name = b.getNodeText(name)
		}
		if value := b.getChildByFieldName(child, "value"); value != nil {
			decl.Init = b.buildExpression(value)
			decl.Init.Parent = decl
		}
		decl.Parent = node
		node.Declarations = append(node.Declarations, decl)
	}
	return node
}

// buildExpression builds an expression node. Only the forms the lowering
// pass inspects get dedicated node types.
func (b *ASTBuilder) buildExpression(tsNode *sitter.Node) *Node {
	switch tsNode.Type() {
	case "function", "function_expression", "generator_function":
		return b.buildFunction(tsNode, NodeFunctionExpression)
	case "arrow_function":
		return b.buildArrowFunction(tsNode)
	case "class":
		return b.buildClass(tsNode)
	case "call_expression":
		return b.buildCall(tsNode)
	case "await_expression":
		node := b.newNode(NodeAwaitExpression, tsNode)
		if arg := b.firstNamedChild(tsNode); arg != nil {
			node.Argument = b.buildExpression(arg)
			node.Argument.Parent = node
		}
		return node
	case "assignment_expression", "augmented_assignment_expression":
		return b.buildAssignment(tsNode)
	case "member_expression":
		node := b.newNode(NodeMemberExpression, tsNode)
		if obj := b.getChildByFieldName(tsNode, "object"); obj != nil {
			node.AddChild(b.buildExpression(obj))
		}
		return node
	case "identifier", "property_identifier", "shorthand_property_identifier",
		"this", "super", "undefined":
		node := b.newNode(NodeIdentifier, tsNode)
		node.Name = node.Raw
		return node
	case "true", "false":
		node := b.newNode(NodeLiteral, tsNode)
		node.Value = tsNode.Type() == "true"
		return node
	case "number":
		node := b.newNode(NodeLiteral, tsNode)
		if v, err := strconv.ParseFloat(node.Raw, 64); err == nil {
			node.Value = v
		}
		return node
	case "string", "null", "regex":
		node := b.newNode(NodeLiteral, tsNode)
		node.Value = node.Raw
		return node
	case "parenthesized_expression":
		if inner := b.firstNamedChild(tsNode); inner != nil {
			node := b.newNode(NodeExpression, tsNode)
			node.AddChild(b.buildExpression(inner))
			return node
		}
	}

	// Opaque expression. Children go through buildNode so that declarations
	// wrapped in export statements keep their structure.
	node := b.newNode(NodeExpression, tsNode)
	count := int(tsNode.NamedChildCount())
	for i := 0; i < count; i++ {
		node.AddChild(b.buildNode(tsNode.NamedChild(i)))
	}
	return node
}

func (b *ASTBuilder) buildCall(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeCallExpression, tsNode)
	if fn := b.getChildByFieldName(tsNode, "function"); fn != nil {
		node.Callee = b.buildExpression(fn)
		node.Callee.Parent = node
	}
	if args := b.getChildByFieldName(tsNode, "arguments"); args != nil {
		count := int(args.NamedChildCount())
		for i := 0; i < count; i++ {
			child := args.NamedChild(i)
			if b.isTrivia(child) {
				continue
			}
			arg := b.buildExpression(child)
			arg.Parent = node
			node.Arguments = append(node.Arguments, arg)
		}
	}
	return node
}

func (b *ASTBuilder) buildAssignment(tsNode *sitter.Node) *Node {
	node := b.newNode(NodeAssignmentExpression, tsNode)
	node.Kind = "="
	if op := b.getChildByFieldName(tsNode, "operator"); op != nil {
		node.Kind = b.getNodeText(op)
	}
	if left := b.getChildByFieldName(tsNode, "left"); left != nil {
		node.Left = b.buildExpression(left)
		node.Left.Parent = node
	}
	if right := b.getChildByFieldName(tsNode, "right"); right != nil {
		node.Right = b.buildExpression(right)
		node.Right.Parent = node
	}
	return node
}

// Utility methods...

// getLocation extracts location information from a tree-sitter node
func (b *ASTBuilder) getLocation(tsNode *sitter.Node) Location {
	startPoint := tsNode.StartPoint()
	endPoint := tsNode.EndPoint()

	return Location{
		File:      b.file,
		StartLine: int(startPoint.Row) + 1,
		StartCol:  int(startPoint.Column),
		EndLine:   int(endPoint.Row) + 1,
		EndCol:    int(endPoint.Column),
	}
}

// getNodeText gets the text content of a node
func (b *ASTBuilder) getNodeText(tsNode *sitter.Node) string {
	return tsNode.Content(b.source)
}

// getChildByFieldName gets a child node by field name
func (b *ASTBuilder) getChildByFieldName(tsNode *sitter.Node, fieldName string) *sitter.Node {
	return tsNode.ChildByFieldName(fieldName)
}

func (b *ASTBuilder) firstNamedChild(tsNode *sitter.Node) *sitter.Node {
	count := int(tsNode.NamedChildCount())
	for i := 0; i < count; i++ {
		child := tsNode.NamedChild(i)
		if !b.isTrivia(child) {
			return child
		}
	}
	return nil
}

// hasChildOfType checks if a node has a child of a specific type
func (b *ASTBuilder) hasChildOfType(tsNode *sitter.Node, childType string) bool {
	childCount := int(tsNode.ChildCount())
	for i := 0; i < childCount; i++ {
		child := tsNode.Child(i)
		if child != nil && child.Type() == childType {
			return true
		}
	}
	return false
}

// isTrivia checks if a node is trivia (comments)
func (b *ASTBuilder) isTrivia(tsNode *sitter.Node) bool {
	return tsNode.Type() == "comment"
}
