package rules

import (
	"context"
	"fmt"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"strings"

	"github.com/ludo-technologies/ccheck/domain"
	"github.com/ludo-technologies/ccheck/internal/registry"
	"golang.org/x/tools/go/ast/inspector"
)

// GoNamingName is the registered name of the Go naming rule
const GoNamingName = "go_naming"

// testPrefixes name functions the go test tool discovers by prefix
var testPrefixes = []string{"Test", "Benchmark", "Example", "Fuzz"}

func init() {
	registry.Register(GoNamingName, NewGoNaming)
}

// GoNaming checks Go naming idioms: exported identifiers carry no
// underscores, error variables start with err or Err, and receivers are not
// named this or self.
type GoNaming struct {
	Base
	checkErrorVars bool
}

// NewGoNaming is the factory of the Go naming rule
func NewGoNaming(cfg domain.RuleConfig) (domain.Rule, error) {
	meta := domain.RuleMetadata{
		Name:                GoNamingName,
		Version:             "1.0.0",
		Description:         "Go identifiers follow the standard naming idioms",
		Category:            "naming",
		Tags:                []string{"go"},
		SupportsIncremental: true,
		SupportsParallel:    true,
		ConfigSchema: withSchema(map[string]domain.ParamSpec{
			"check_error_vars": {Type: "bool", Default: true, Description: "Require the err/Err prefix on package-level error variables"},
		}),
		EstimatedRuntime: "fast",
		MemoryUsage:      "low",
	}
	return &GoNaming{
		Base:           NewBase(meta, cfg, []string{"**/*.go"}),
		checkErrorVars: cfg.Bool("check_error_vars", true),
	}, nil
}

// Check implements domain.Rule
func (r *GoNaming) Check(ctx context.Context, req domain.CheckRequest) (*domain.CheckResult, error) {
	return r.Run(ctx, req, r.checkFile)
}

func (r *GoNaming) checkFile(_ context.Context, f *File) ([]domain.Violation, error) {
	fset := token.NewFileSet()
	file, err := goparser.ParseFile(fset, f.Rel, f.Content, goparser.SkipObjectResolution)
	if err != nil {
		return nil, domain.NewParseError(f.Rel, err)
	}
	isTest := strings.HasSuffix(f.Rel, "_test.go")

	var out []domain.Violation
	report := func(pos token.Pos, msg, fix string) {
		p := fset.Position(pos)
		v := r.Violation(f.Rel, p.Line, msg, domain.SeverityWarning)
		v.Column = p.Column
		v.SuggestedFix = fix
		out = append(out, v)
	}

	pector := inspector.New([]*ast.File{file})
	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
		(*ast.GenDecl)(nil),
	}
	pector.Preorder(nodeFilter, func(node ast.Node) {
		switch n := node.(type) {
		case *ast.FuncDecl:
			r.checkFunc(n, isTest, report)
		case *ast.GenDecl:
			r.checkGenDecl(n, file, report)
		}
	})
	return out, nil
}

func (r *GoNaming) checkFunc(fn *ast.FuncDecl, isTest bool, report func(token.Pos, string, string)) {
	if fn.Recv != nil {
		for _, field := range fn.Recv.List {
			for _, name := range field.Names {
				if name.Name == "this" || name.Name == "self" {
					report(name.Pos(), fmt.Sprintf("Receiver of '%s' should not be named '%s'", fn.Name.Name, name.Name), "")
				}
			}
		}
	}
	if isTest && fn.Recv == nil && hasTestPrefix(fn.Name.Name) {
		return
	}
	r.checkExported(fn.Name, report)
}

func (r *GoNaming) checkGenDecl(decl *ast.GenDecl, file *ast.File, report func(token.Pos, string, string)) {
	topLevel := false
	for _, d := range file.Decls {
		if d == decl {
			topLevel = true
			break
		}
	}
	for _, spec := range decl.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			r.checkExported(s.Name, report)
		case *ast.ValueSpec:
			for i, name := range s.Names {
				r.checkExported(name, report)
				if topLevel && decl.Tok == token.VAR && r.checkErrorVars && i < len(s.Values) && isErrorConstructor(s.Values[i]) {
					if !strings.HasPrefix(name.Name, "err") && !strings.HasPrefix(name.Name, "Err") && name.Name != "_" {
						fix := "err" + capitalize(name.Name)
						if name.IsExported() {
							fix = "Err" + capitalize(name.Name)
						}
						report(name.Pos(), fmt.Sprintf("Error variable '%s' should be prefixed with err or Err", name.Name), fix)
					}
				}
			}
		}
	}
}

func (r *GoNaming) checkExported(id *ast.Ident, report func(token.Pos, string, string)) {
	if !id.IsExported() || !strings.Contains(id.Name, "_") {
		return
	}
	if strings.ToUpper(id.Name) == id.Name {
		// ALL_CAPS constants are tolerated
		return
	}
	report(id.Pos(), fmt.Sprintf("Exported identifier '%s' should not contain underscores", id.Name), strings.ReplaceAll(id.Name, "_", ""))
}

// isErrorConstructor reports whether e is a call to errors.New or fmt.Errorf
func isErrorConstructor(e ast.Expr) bool {
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	return (pkg.Name == "errors" && sel.Sel.Name == "New") || (pkg.Name == "fmt" && sel.Sel.Name == "Errorf")
}

func hasTestPrefix(name string) bool {
	for _, p := range testPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
