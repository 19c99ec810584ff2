package parser

// Visitor defines the interface for visiting AST nodes
type Visitor interface {
	// Visit is called for each node in the AST
	// Return false to skip the node's children
	Visit(node *Node) bool
}

// Accept implements the visitor pattern for AST nodes
func (n *Node) Accept(visitor Visitor) {
	if n == nil {
		return
	}

	if !visitor.Visit(n) {
		return
	}

	for _, child := range n.GetChildren() {
		child.Accept(visitor)
	}
}

// FuncVisitor is a visitor that uses a function
type FuncVisitor struct {
	fn func(*Node) bool
}

// NewFuncVisitor creates a visitor from a function
func NewFuncVisitor(fn func(*Node) bool) *FuncVisitor {
	return &FuncVisitor{fn: fn}
}

// Visit implements the Visitor interface
func (v *FuncVisitor) Visit(node *Node) bool {
	return v.fn(node)
}

// CollectorVisitor collects nodes matching a predicate
type CollectorVisitor struct {
	predicate func(*Node) bool
	nodes     []*Node
}

// NewCollectorVisitor creates a visitor that collects matching nodes
func NewCollectorVisitor(predicate func(*Node) bool) *CollectorVisitor {
	return &CollectorVisitor{
		predicate: predicate,
		nodes:     []*Node{},
	}
}

// Visit implements the Visitor interface
func (v *CollectorVisitor) Visit(node *Node) bool {
	if v.predicate(node) {
		v.nodes = append(v.nodes, node)
	}
	return true
}

// GetNodes returns the collected nodes
func (v *CollectorVisitor) GetNodes() []*Node {
	return v.nodes
}

// PathVisitor tracks the path to each visited node
type PathVisitor struct {
	path    []*Node
	visitor func(node *Node, path []*Node) bool
}

// NewPathVisitor creates a visitor that tracks the path to each node.
// The path passed to the callback ends with the node itself and is only
// valid for the duration of the call.
func NewPathVisitor(visitor func(node *Node, path []*Node) bool) *PathVisitor {
	return &PathVisitor{
		path:    []*Node{},
		visitor: visitor,
	}
}

// Visit implements the Visitor interface
func (v *PathVisitor) Visit(node *Node) bool {
	v.path = append(v.path, node)

	if v.visitor(node, v.path) {
		for _, child := range node.GetChildren() {
			child.Accept(v)
		}
	}

	v.path = v.path[:len(v.path)-1]

	return false // We handle children manually
}
