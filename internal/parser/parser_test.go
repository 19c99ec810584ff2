package parser

import (
	"context"
	"strings"
	"testing"
)

func parseSource(t *testing.T, source string) *Node {
	t.Helper()
	root, err := New().ParseProgram(context.Background(), "test.js", []byte(source))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	return root
}

func TestNew(t *testing.T) {
	parser := New()
	if parser == nil {
		t.Fatal("New() returned nil")
	}
	if parser.parser == nil {
		t.Fatal("parser field is nil")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{
			name:   "simple function",
			source: `function hello() { console.log("Hello, World!"); }`,
		},
		{
			name: "async function with control flow",
			source: `async function run(items) {
  for (let i = 0; i < items.length; i++) {
    try {
      await items[i].save();
    } catch (e) {
      log(e);
    } finally {
      done();
    }
  }
}`,
		},
		{
			name:   "empty source",
			source: "",
		},
		{
			name:    "syntax error",
			source:  "function broken( {",
			wantErr: true,
		},
		{
			name:    "unterminated block",
			source:  "while (x) {\n  step();\n",
			wantErr: true,
		},
	}

	parser := New()
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parser.Parse(ctx, []byte(tt.source))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && result.RootNode == nil {
				t.Error("Parse() returned nil root node")
			}
			if err != nil && !strings.Contains(err.Error(), "syntax errors") {
				t.Errorf("unexpected error message: %v", err)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	result, err := New().ParseFile(context.Background(), strings.NewReader("let x = 1;"))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if result.RootNode.Type() != "program" {
		t.Errorf("root type = %q, want program", result.RootNode.Type())
	}
}

func TestBuildStatements(t *testing.T) {
	root := parseSource(t, `async function f(a, b) {
  const x = await load(a);
  if (x) { step(); } else { other(); }
  outer: while (true) {
    do { tick(); } while (more());
    for (let i = 0; i < 3; i++) { continue outer; }
    break;
  }
  try { risky(); } catch (err) { handle(err); } finally { cleanup(); }
  return x;
}`)

	if root.Type != NodeProgram {
		t.Fatalf("root type = %s, want Program", root.Type)
	}
	if len(root.Body) != 1 {
		t.Fatalf("program has %d statements, want 1", len(root.Body))
	}

	fn := root.Body[0]
	if fn.Type != NodeFunction || fn.Name != "f" || !fn.Async {
		t.Fatalf("unexpected function node: %s async=%v", fn, fn.Async)
	}
	if len(fn.Params) != 2 {
		t.Errorf("function has %d params, want 2", len(fn.Params))
	}
	if fn.Location.File != "test.js" || fn.Location.StartLine != 1 {
		t.Errorf("unexpected location %s", fn.Location)
	}

	wantTypes := []NodeType{
		NodeVariableDeclaration,
		NodeIfStatement,
		NodeLabeledStatement,
		NodeTryStatement,
		NodeReturnStatement,
	}
	if len(fn.Body) != len(wantTypes) {
		t.Fatalf("function has %d statements, want %d", len(fn.Body), len(wantTypes))
	}
	for i, want := range wantTypes {
		if fn.Body[i].Type != want {
			t.Errorf("statement %d type = %s, want %s", i, fn.Body[i].Type, want)
		}
		if fn.Body[i].Parent != fn {
			t.Errorf("statement %d has wrong parent", i)
		}
	}

	t.Run("Declaration", func(t *testing.T) {
		decl := fn.Body[0]
		if decl.Kind != "const" || len(decl.Declarations) != 1 {
			t.Fatalf("unexpected declaration %q kind=%q", decl.Raw, decl.Kind)
		}
		init := decl.Declarations[0].Init
		if decl.Declarations[0].Name != "x" || init == nil || init.Type != NodeAwaitExpression {
			t.Fatalf("unexpected declarator %s", decl.Declarations[0])
		}
		if init.Argument == nil || init.Argument.CalleeName() != "load" {
			t.Errorf("await operand = %v, want call to load", init.Argument)
		}
	})

	t.Run("If", func(t *testing.T) {
		ifNode := fn.Body[1]
		if ifNode.Test == nil || ifNode.Test.Raw != "x" {
			t.Errorf("if condition = %v, want x", ifNode.Test)
		}
		if ifNode.Consequent == nil || ifNode.Consequent.Type != NodeBlockStatement {
			t.Error("missing then block")
		}
		if ifNode.Alternate == nil || ifNode.Alternate.Type != NodeBlockStatement {
			t.Error("missing else block")
		}
	})

	t.Run("Loops", func(t *testing.T) {
		label := fn.Body[2]
		if label.Label != "outer" || len(label.Body) != 1 {
			t.Fatalf("unexpected labeled statement %q", label.Raw)
		}
		loop := label.Body[0]
		if loop.Type != NodeWhileStatement || !loop.Test.IsLiteralTrue() {
			t.Fatalf("expected while (true), got %s", loop)
		}
		if len(loop.Body) != 3 {
			t.Fatalf("loop body has %d statements, want 3", len(loop.Body))
		}

		doLoop := loop.Body[0]
		if doLoop.Type != NodeDoWhileStatement || doLoop.Test == nil || doLoop.Test.CalleeName() != "more" {
			t.Errorf("unexpected do-while %q", doLoop.Raw)
		}

		forLoop := loop.Body[1]
		if forLoop.Type != NodeForStatement {
			t.Fatalf("expected for statement, got %s", forLoop)
		}
		if forLoop.Init == nil || forLoop.Init.Type != NodeVariableDeclaration {
			t.Error("for loop init not parsed as declaration")
		}
		if forLoop.Test == nil || forLoop.Test.Raw != "i < 3" {
			t.Errorf("for loop condition = %v", forLoop.Test)
		}
		if forLoop.Update == nil || forLoop.Update.Raw != "i++" {
			t.Errorf("for loop update = %v", forLoop.Update)
		}
		if len(forLoop.Body) != 1 || forLoop.Body[0].Type != NodeContinueStatement || forLoop.Body[0].Label != "outer" {
			t.Error("expected continue outer in for body")
		}

		if brk := loop.Body[2]; brk.Type != NodeBreakStatement || brk.Label != "" {
			t.Errorf("expected unlabeled break, got %s", brk)
		}
	})

	t.Run("Try", func(t *testing.T) {
		try := fn.Body[3]
		if len(try.Body) != 1 {
			t.Errorf("try body has %d statements, want 1", len(try.Body))
		}
		if try.Handler == nil || try.Handler.Name != "err" || len(try.Handler.Body) != 1 {
			t.Fatal("catch clause not parsed")
		}
		if try.Finalizer == nil || len(try.Finalizer.Body) != 1 {
			t.Fatal("finally clause not parsed")
		}
		if got := try.Finalizer.Body[0].Expression.CalleeName(); got != "cleanup" {
			t.Errorf("finally calls %q, want cleanup", got)
		}
	})

	t.Run("Return", func(t *testing.T) {
		ret := fn.Body[4]
		if ret.Argument == nil || ret.Argument.Name != "x" {
			t.Errorf("return argument = %v, want x", ret.Argument)
		}
	})
}

func TestBuildExpressions(t *testing.T) {
	root := parseSource(t, `
a.b.c(1, 2);
total += await fetch(url);
const f = () => step();
`)

	if len(root.Body) != 3 {
		t.Fatalf("program has %d statements, want 3", len(root.Body))
	}

	callNode := root.Body[0].Expression
	if callNode.Type != NodeCallExpression || callNode.CalleeName() != "a.b.c" {
		t.Errorf("unexpected call %q", callNode.Raw)
	}
	if len(callNode.Arguments) != 2 {
		t.Errorf("call has %d arguments, want 2", len(callNode.Arguments))
	}

	assign := root.Body[1].Expression
	if assign.Type != NodeAssignmentExpression || assign.Kind != "+=" {
		t.Fatalf("unexpected assignment %q kind=%q", assign.Raw, assign.Kind)
	}
	if assign.Left.Raw != "total" || assign.Right.Type != NodeAwaitExpression {
		t.Errorf("unexpected assignment operands %q", assign.Raw)
	}

	arrow := root.Body[2].Declarations[0].Init
	if arrow.Type != NodeArrowFunction || len(arrow.Body) != 1 || arrow.Body[0].Type != NodeReturnStatement {
		t.Fatalf("concise arrow body not modeled as return: %s", arrow)
	}
	if arrow.Body[0].Argument.CalleeName() != "step" {
		t.Errorf("arrow returns %q", arrow.Body[0].Argument.Raw)
	}
}

func TestSwitchCases(t *testing.T) {
	root := parseSource(t, `switch (k) {
case 1:
  one();
  break;
default:
  other();
}`)

	sw := root.Body[0]
	if sw.Type != NodeSwitchStatement || sw.Test == nil || sw.Test.Raw != "k" {
		t.Fatalf("unexpected switch %s", sw)
	}
	if len(sw.Cases) != 2 {
		t.Fatalf("switch has %d cases, want 2", len(sw.Cases))
	}
	if sw.Cases[0].Test == nil || len(sw.Cases[0].Body) != 2 {
		t.Errorf("first case: test=%v body=%d", sw.Cases[0].Test, len(sw.Cases[0].Body))
	}
	if sw.Cases[1].Test != nil || len(sw.Cases[1].Body) != 1 {
		t.Errorf("default case: test=%v body=%d", sw.Cases[1].Test, len(sw.Cases[1].Body))
	}
}

func TestWalkScope(t *testing.T) {
	root := parseSource(t, `function outer() {
  a();
  function inner() { b(); }
  const c = () => d();
  e();
}`)

	var calls []string
	root.Body[0].WalkScope(func(n *Node) bool {
		if n.Type == NodeCallExpression {
			calls = append(calls, n.CalleeName())
		}
		return true
	})

	if strings.Join(calls, ",") != "a,e" {
		t.Errorf("WalkScope visited calls %v, want [a e]", calls)
	}

	all := root.FindByType(NodeCallExpression)
	if len(all) != 4 {
		t.Errorf("FindByType found %d calls, want 4", len(all))
	}
}

func TestCollectFunctions(t *testing.T) {
	root := parseSource(t, `function top() {}
const arrow = async () => {};
obj.handler = function () {};
class Service {
  async run() {}
}
[1].map(function () {});
`)

	functions := CollectFunctions(root)
	var names []string
	for _, fn := range functions {
		names = append(names, fn.Name)
	}

	want := []string{"top", "arrow", "obj.handler", "Service.run", "<anonymous@7:9>"}
	if strings.Join(names, "|") != strings.Join(want, "|") {
		t.Errorf("CollectFunctions() = %v, want %v", names, want)
	}
}

func TestPathVisitor(t *testing.T) {
	root := parseSource(t, `while (x) { if (y) { break; } }`)

	var depth int
	visitor := NewPathVisitor(func(n *Node, path []*Node) bool {
		if n.Type == NodeBreakStatement {
			depth = len(path)
			if path[len(path)-1] != n {
				t.Error("path does not end with the visited node")
			}
		}
		return true
	})
	root.Accept(visitor)

	// Program, while, if, block, break
	if depth != 5 {
		t.Errorf("break path length = %d, want 5", depth)
	}
}
