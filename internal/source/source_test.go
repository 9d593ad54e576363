package source

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestRead_UTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "u.txt", []byte("héllo\n"))
	got, ok := Read(path)
	if !ok || got != "héllo\n" {
		t.Errorf("Read() = %q, %v", got, ok)
	}
}

func TestRead_Latin1Fallback(t *testing.T) {
	// 0xE9 is 'é' in Latin-1 and invalid as a lone UTF-8 byte
	path := writeFile(t, t.TempDir(), "l.txt", []byte{'c', 'a', 'f', 0xE9})
	got, ok := Read(path)
	if !ok {
		t.Fatal("Latin-1 content should be readable")
	}
	if got != "café" {
		t.Errorf("Expected café, got %q", got)
	}
}

func TestRead_Missing(t *testing.T) {
	if _, ok := Read(filepath.Join(t.TempDir(), "missing")); ok {
		t.Error("missing file should report ok=false")
	}
}

func TestLines(t *testing.T) {
	if got := Lines("a\r\nb\nc\n"); len(got) != 3 || got[1] != "b" {
		t.Errorf("unexpected lines %q", got)
	}
	if Lines("") != nil {
		t.Error("empty content has no lines")
	}
}

func TestContext(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.txt", []byte("1\n2\n3\n4\n5\n6\n7\n8\n9\n"))

	tests := []struct {
		name       string
		line       int
		snippet    string
		before     int
		after      int
		firstAfter string
	}{
		{"middle", 5, "5", 3, 3, "6"},
		{"first line", 1, "1", 0, 3, "2"},
		{"last line", 9, "9", 3, 0, ""},
		{"one past end", 10, "", 0, 0, ""},
		{"past end", 20, "", 0, 0, ""},
		{"zero", 0, "", 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := Context(path, tt.line, DefaultContextLines)
			if ctx.Snippet != tt.snippet {
				t.Errorf("snippet = %q, want %q", ctx.Snippet, tt.snippet)
			}
			if len(ctx.Before) != tt.before {
				t.Errorf("before = %q, want %d lines", ctx.Before, tt.before)
			}
			if len(ctx.After) != tt.after {
				t.Errorf("after = %q, want %d lines", ctx.After, tt.after)
			}
			if tt.after > 0 && ctx.After[0] != tt.firstAfter {
				t.Errorf("after[0] = %q, want %q", ctx.After[0], tt.firstAfter)
			}
		})
	}
}

func TestContext_Unreadable(t *testing.T) {
	ctx := Context(filepath.Join(t.TempDir(), "nope"), 3, 3)
	if ctx.Snippet != "" || ctx.Before != nil || ctx.After != nil {
		t.Errorf("unreadable file should give empty context, got %+v", ctx)
	}
}
