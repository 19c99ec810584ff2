package parser

import "fmt"

// Function is a function found in a program together with a display name
type Function struct {
	Name string
	Node *Node
}

// CollectFunctions returns every function in the program in source order,
// nested functions included. Anonymous functions are named after the
// variable or property they are assigned to when possible, otherwise after
// their position.
func CollectFunctions(root *Node) []Function {
	collector := NewCollectorVisitor(func(n *Node) bool {
		return n.IsFunction()
	})
	root.Accept(collector)

	var functions []Function
	for _, fn := range collector.GetNodes() {
		functions = append(functions, Function{Name: functionName(fn), Node: fn})
	}
	return functions
}

func functionName(fn *Node) string {
	if fn.Name != "" {
		if class := fn.GetParentOfType(NodeClass); class != nil && fn.Type == NodeMethodDefinition && class.Name != "" {
			return class.Name + "." + fn.Name
		}
		return fn.Name
	}
	if p := fn.Parent; p != nil {
		switch p.Type {
		case NodeVariableDeclarator:
			if p.Name != "" {
				return p.Name
			}
		case NodeAssignmentExpression:
			if p.Left != nil && p.Right == fn {
				return p.Left.Raw
			}
		}
	}
	return fmt.Sprintf("<anonymous@%d:%d>", fn.Location.StartLine, fn.Location.StartCol+1)
}
