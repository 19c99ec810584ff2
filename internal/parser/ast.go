package parser

import (
	"fmt"
	"strings"
)

// NodeType represents the type of AST node
type NodeType string

// JavaScript AST node types
const (
	// Program structure
	NodeProgram NodeType = "Program"

	// Functions and classes
	NodeFunction           NodeType = "Function"
	NodeFunctionExpression NodeType = "FunctionExpression"
	NodeArrowFunction      NodeType = "ArrowFunction"
	NodeMethodDefinition   NodeType = "MethodDefinition"
	NodeClass              NodeType = "Class"

	// Statements
	NodeBlockStatement      NodeType = "BlockStatement"
	NodeIfStatement         NodeType = "IfStatement"
	NodeWhileStatement      NodeType = "WhileStatement"
	NodeDoWhileStatement    NodeType = "DoWhileStatement"
	NodeForStatement        NodeType = "ForStatement"
	NodeForInStatement      NodeType = "ForInStatement"
	NodeForOfStatement      NodeType = "ForOfStatement"
	NodeLabeledStatement    NodeType = "LabeledStatement"
	NodeBreakStatement      NodeType = "BreakStatement"
	NodeContinueStatement   NodeType = "ContinueStatement"
	NodeReturnStatement     NodeType = "ReturnStatement"
	NodeThrowStatement      NodeType = "ThrowStatement"
	NodeTryStatement        NodeType = "TryStatement"
	NodeCatchClause         NodeType = "CatchClause"
	NodeSwitchStatement     NodeType = "SwitchStatement"
	NodeSwitchCase          NodeType = "SwitchCase"
	NodeExpressionStatement NodeType = "ExpressionStatement"
	NodeVariableDeclaration NodeType = "VariableDeclaration"
	NodeVariableDeclarator  NodeType = "VariableDeclarator"
	NodeEmptyStatement      NodeType = "EmptyStatement"

	// Expressions
	NodeCallExpression       NodeType = "CallExpression"
	NodeAwaitExpression      NodeType = "AwaitExpression"
	NodeAssignmentExpression NodeType = "AssignmentExpression"
	NodeMemberExpression     NodeType = "MemberExpression"
	NodeIdentifier           NodeType = "Identifier"
	NodeLiteral              NodeType = "Literal"
	NodeExpression           NodeType = "Expression" // any other expression, kept opaque
)

// Location represents the position of a node in the source code
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// String formats the location as file:line:col
func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.StartLine, l.StartCol+1)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.StartLine, l.StartCol+1)
}

// Node represents an AST node
type Node struct {
	Type     NodeType
	Value    interface{} // literal value for Literal nodes
	Raw      string      // source text of the node
	Children []*Node     // operands of opaque expressions
	Location Location
	Parent   *Node

	// Additional fields for specific node types
	Name         string  // function/class/identifier/catch parameter name
	Label        string  // labeled statement label, break/continue label
	Kind         string  // declaration kind (var, let, const) or assignment operator
	Body         []*Node // block, program, function, loop, labeled and try bodies
	Test         *Node   // if/while/do/for condition, switch discriminant
	Consequent   *Node   // if branch
	Alternate    *Node   // else branch
	Init         *Node   // for initializer, declarator initializer
	Update       *Node   // for update expression
	Handler      *Node   // try catch clause
	Finalizer    *Node   // try finally block
	Argument     *Node   // return/throw/await operand
	Expression   *Node   // expression statement payload
	Callee       *Node   // call target
	Arguments    []*Node // call arguments
	Left         *Node   // assignment target, for-in/of left side
	Right        *Node   // assignment value, for-in/of right side
	Declarations []*Node // variable declarators
	Cases        []*Node // switch cases
	Params       []*Node // function parameters
	Async        bool
	Generator    bool

	// Suspend marks a call or await expression that may suspend the
	// enclosing function. It is set by the suspend marker, never by the
	// builder.
	Suspend bool
}

// NewNode creates a new AST node
func NewNode(nodeType NodeType) *Node {
	return &Node{
		Type: nodeType,
	}
}

// AddChild adds a child node
func (n *Node) AddChild(child *Node) {
	if child != nil {
		child.Parent = n
		n.Children = append(n.Children, child)
	}
}

// AddToBody adds a node to the body
func (n *Node) AddToBody(node *Node) {
	if node != nil {
		node.Parent = n
		n.Body = append(n.Body, node)
	}
}

// GetChildren returns all child nodes in source order
func (n *Node) GetChildren() []*Node {
	var all []*Node
	add := func(nodes ...*Node) {
		for _, c := range nodes {
			if c != nil {
				all = append(all, c)
			}
		}
	}

	add(n.Params...)
	add(n.Init, n.Test, n.Update, n.Left, n.Right, n.Callee)
	add(n.Arguments...)
	add(n.Argument, n.Expression)
	add(n.Declarations...)
	add(n.Children...)
	add(n.Body...)
	add(n.Consequent, n.Alternate)
	add(n.Cases...)
	add(n.Handler, n.Finalizer)
	return all
}

// IsFunction reports whether the node introduces a new function scope
func (n *Node) IsFunction() bool {
	switch n.Type {
	case NodeFunction, NodeFunctionExpression, NodeArrowFunction, NodeMethodDefinition:
		return true
	default:
		return false
	}
}

// IsLoop reports whether the node is a loop statement
func (n *Node) IsLoop() bool {
	switch n.Type {
	case NodeWhileStatement, NodeDoWhileStatement, NodeForStatement,
		NodeForInStatement, NodeForOfStatement:
		return true
	default:
		return false
	}
}

// IsStatement returns true if the node is a statement
func (n *Node) IsStatement() bool {
	switch n.Type {
	case NodeBlockStatement, NodeIfStatement, NodeWhileStatement, NodeDoWhileStatement,
		NodeForStatement, NodeForInStatement, NodeForOfStatement, NodeLabeledStatement,
		NodeBreakStatement, NodeContinueStatement, NodeReturnStatement, NodeThrowStatement,
		NodeTryStatement, NodeSwitchStatement, NodeExpressionStatement,
		NodeVariableDeclaration, NodeEmptyStatement, NodeFunction, NodeClass:
		return true
	default:
		return false
	}
}

// IsLiteralTrue reports whether the node is the literal true
func (n *Node) IsLiteralTrue() bool {
	if n == nil || n.Type != NodeLiteral {
		return false
	}
	b, ok := n.Value.(bool)
	return ok && b
}

// CalleeName returns the dotted callee of a call expression, without
// whitespace, or "" when the callee is not a plain name or member chain.
func (n *Node) CalleeName() string {
	if n == nil || n.Type != NodeCallExpression || n.Callee == nil {
		return ""
	}
	switch n.Callee.Type {
	case NodeIdentifier:
		return n.Callee.Name
	case NodeMemberExpression:
		return strings.Join(strings.Fields(n.Callee.Raw), "")
	default:
		return ""
	}
}

// String returns a string representation of the node
func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s(%s)", n.Type, n.Name)
	}
	if n.Value != nil {
		return fmt.Sprintf("%s(%v)", n.Type, n.Value)
	}
	return string(n.Type)
}

// Walk traverses the AST using depth-first search
func (n *Node) Walk(visitor func(*Node) bool) {
	if !visitor(n) {
		return
	}

	for _, child := range n.GetChildren() {
		child.Walk(visitor)
	}
}

// WalkScope traverses the AST like Walk but does not descend into nested
// functions or classes. The root itself is always visited.
func (n *Node) WalkScope(visitor func(*Node) bool) {
	if !visitor(n) {
		return
	}
	for _, child := range n.GetChildren() {
		if child.IsFunction() || child.Type == NodeClass {
			continue
		}
		child.WalkScope(visitor)
	}
}

// Find finds all nodes matching a predicate
func (n *Node) Find(predicate func(*Node) bool) []*Node {
	var results []*Node
	n.Walk(func(node *Node) bool {
		if predicate(node) {
			results = append(results, node)
		}
		return true
	})
	return results
}

// FindByType finds all nodes of a specific type
func (n *Node) FindByType(nodeType NodeType) []*Node {
	return n.Find(func(node *Node) bool {
		return node.Type == nodeType
	})
}

// GetParentOfType finds the nearest parent of a specific type
func (n *Node) GetParentOfType(nodeType NodeType) *Node {
	current := n.Parent
	for current != nil {
		if current.Type == nodeType {
			return current
		}
		current = current.Parent
	}
	return nil
}
