// Package parser wraps tree-sitter for the JavaScript and TypeScript rules.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
)

// Language identifies a grammar
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
)

// extensions maps file extensions to grammars
var extensions = map[string]Language{
	".js":  LanguageJavaScript,
	".jsx": LanguageJavaScript,
	".mjs": LanguageJavaScript,
	".cjs": LanguageJavaScript,
	".ts":  LanguageTypeScript,
	".tsx": LanguageTypeScript,
	".mts": LanguageTypeScript,
	".cts": LanguageTypeScript,
}

// LanguageFor returns the grammar for path based on its extension
func LanguageFor(path string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Parser wraps a tree-sitter parser for one language
type Parser struct {
	parser   *sitter.Parser
	language Language
}

// NewParser creates a parser for lang. TypeScript uses the TSX grammar so
// .ts and .tsx files share one parser.
func NewParser(lang Language) *Parser {
	p := sitter.NewParser()
	switch lang {
	case LanguageTypeScript:
		p.SetLanguage(tsx.GetLanguage())
	default:
		lang = LanguageJavaScript
		p.SetLanguage(javascript.GetLanguage())
	}
	return &Parser{parser: p, language: lang}
}

// Language returns the grammar the parser was created for
func (p *Parser) Language() Language {
	return p.language
}

// Parse parses source into a syntax tree. The caller must Close the tree.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse file %s: %v", path, err)
	}
	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("no root node in parse tree for %s", path)
	}
	return &Tree{tree: tree, root: root, Path: path, Source: source}, nil
}

// Close releases the parser
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// ParseFile selects the grammar from the file extension and parses source
func ParseFile(ctx context.Context, path string, source []byte) (*Tree, error) {
	lang, ok := LanguageFor(path)
	if !ok {
		return nil, fmt.Errorf("no grammar for %s", path)
	}
	p := NewParser(lang)
	defer p.Close()
	return p.Parse(ctx, path, source)
}

// Tree is a parsed file
type Tree struct {
	tree   *sitter.Tree
	root   *sitter.Node
	Path   string
	Source []byte
}

// Root returns the program node
func (t *Tree) Root() *sitter.Node {
	return t.root
}

// HasErrors reports whether the parse produced error nodes
func (t *Tree) HasErrors() bool {
	return t.root.HasError()
}

// Text returns the source text of n
func (t *Tree) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(t.Source)
}

// Close releases the tree
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}
