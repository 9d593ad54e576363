package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Position is a 1-based line and column
type Position struct {
	Line   int
	Column int
}

// StartOf returns the 1-based start position of n
func StartOf(n *sitter.Node) Position {
	p := n.StartPoint()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// EndOf returns the 1-based end position of n
func EndOf(n *sitter.Node) Position {
	p := n.EndPoint()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// Walk visits n and its named descendants depth-first. Returning false from
// visit skips the children of that node.
func Walk(n *sitter.Node, visit func(n *sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		Walk(n.NamedChild(i), visit)
	}
}

// ChildByField returns the child of n stored under field name
func ChildByField(n *sitter.Node, field string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && n.FieldNameForChild(i) == field {
			return child
		}
	}
	return nil
}

// FunctionKind classifies a function-like node
type FunctionKind string

const (
	FunctionDeclaration FunctionKind = "function"
	FunctionExpression  FunctionKind = "function_expression"
	ArrowFunction       FunctionKind = "arrow_function"
	Method              FunctionKind = "method"
)

var functionKinds = map[string]FunctionKind{
	"function_declaration":           FunctionDeclaration,
	"generator_function_declaration": FunctionDeclaration,
	"function":                       FunctionExpression,
	"function_expression":            FunctionExpression,
	"generator_function":             FunctionExpression,
	"arrow_function":                 ArrowFunction,
	"method_definition":              Method,
}

// Function is a function-like declaration
type Function struct {
	Name  string
	Kind  FunctionKind
	Node  *sitter.Node
	Start Position
	End   Position
}

// Lines returns the number of source lines the function spans
func (f Function) Lines() int {
	return f.End.Line - f.Start.Line + 1
}

// Body returns the function body node
func (f Function) Body() *sitter.Node {
	return ChildByField(f.Node, "body")
}

// IsFunction reports whether n is a function-like node
func IsFunction(n *sitter.Node) bool {
	_, ok := functionKinds[n.Type()]
	return ok
}

// Functions returns every function in the tree in source order. Anonymous
// functions bound to a variable, property or assignment take that name.
func (t *Tree) Functions() []Function {
	var out []Function
	Walk(t.root, func(n *sitter.Node) bool {
		kind, ok := functionKinds[n.Type()]
		if !ok {
			return true
		}
		out = append(out, Function{
			Name:  t.functionName(n),
			Kind:  kind,
			Node:  n,
			Start: StartOf(n),
			End:   EndOf(n),
		})
		return true
	})
	return out
}

func (t *Tree) functionName(n *sitter.Node) string {
	if name := ChildByField(n, "name"); name != nil {
		return t.Text(name)
	}
	parent := n.Parent()
	if parent == nil {
		return ""
	}
	switch parent.Type() {
	case "variable_declarator":
		return t.Text(ChildByField(parent, "name"))
	case "pair":
		return t.Text(ChildByField(parent, "key"))
	case "assignment_expression":
		left := ChildByField(parent, "left")
		if left != nil && left.Type() == "member_expression" {
			return t.Text(ChildByField(left, "property"))
		}
		return t.Text(left)
	}
	return ""
}

// Class is a class declaration. Start is the position of its name.
type Class struct {
	Name  string
	Node  *sitter.Node
	Start Position
}

// Methods returns the method definitions declared directly in the class body
func (c Class) Methods() []*sitter.Node {
	body := ChildByField(c.Node, "body")
	if body == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if m := body.NamedChild(i); m.Type() == "method_definition" {
			out = append(out, m)
		}
	}
	return out
}

// Classes returns every named class in the tree in source order
func (t *Tree) Classes() []Class {
	var out []Class
	Walk(t.root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "class_declaration", "class", "abstract_class_declaration":
			name := ChildByField(n, "name")
			if name == nil {
				return true
			}
			out = append(out, Class{Name: t.Text(name), Node: n, Start: StartOf(name)})
		}
		return true
	})
	return out
}
