// Package source reads repository files tolerantly.
package source

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ludo-technologies/ccheck/domain"
	"golang.org/x/text/encoding/charmap"
)

// DefaultContextLines is the number of lines captured on each side of a finding
const DefaultContextLines = 3

// Read returns the content of path decoded as UTF-8, falling back to
// Latin-1 when the bytes are not valid UTF-8. ok is false when the file
// cannot be read at all.
func Read(path string) (content string, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return Decode(data)
}

// Decode converts raw bytes to a string using the same fallback as Read
func Decode(data []byte) (string, bool) {
	if utf8.Valid(data) {
		return string(data), true
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// Lines splits content into lines without their terminators
func Lines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

// Context returns the 1-based line of path plus n lines on either side.
// Unreadable files and out-of-range lines yield empty fields.
func Context(path string, line, n int) domain.CodeContext {
	content, ok := Read(path)
	if !ok {
		return domain.CodeContext{}
	}
	return ContextFromLines(Lines(content), line, n)
}

// ContextFromLines is Context over already split content
func ContextFromLines(lines []string, line, n int) domain.CodeContext {
	if line < 1 || line > len(lines) {
		return domain.CodeContext{}
	}
	ctx := domain.CodeContext{Snippet: lines[line-1]}
	if start := max(0, line-n-1); start < line-1 {
		ctx.Before = append([]string(nil), lines[start:line-1]...)
	}
	if end := min(len(lines), line+n); line < end {
		ctx.After = append([]string(nil), lines[line:end]...)
	}
	return ctx
}
