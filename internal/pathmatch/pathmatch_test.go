package pathmatch

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"a.py", "a.py", true},
		{"a.py", "b.py", false},
		{"generated/*.py", "generated/x.py", true},
		{"generated/*.py", "generated/deep/x.py", true},
		{"generated/*.py", "src/generated/x.py", false},
		{"*.min.js", "dist/app.min.js", true},
		{"src/?.js", "src/a.js", true},
		{"src/?.js", "src/ab.js", false},
		{"file[0-9].txt", "file7.txt", true},
		{"file[!0-9].txt", "file7.txt", false},
		{"file[!0-9].txt", "fileA.txt", true},
		{"**/*.js", "src/app.js", true},
		{"**/*.js", "app.js", true},
		{"**/*.js", "app.ts", false},
		{"src/(x).js", "src/(x).js", true},
		{"src/*.{js,ts}", "src/a.ts", true},
		{"", "anything", false},
		{"src/*.js", `src\win.js`, true},
		{"gen/[z-a]*.py", "gen/x.py", false},
		{"broken[", "broken[", false},
	}
	for _, tt := range tests {
		if got := Match(tt.pattern, tt.name); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		pattern string
		wantErr bool
	}{
		{"**/*.go", false},
		{"gen/*", false},
		{"gen/[z-a]*.py", true},
		{"broken[", true},
		{"", true},
	}
	for _, tt := range tests {
		err := Validate(tt.pattern)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.pattern, err, tt.wantErr)
		}
	}
}

func TestCompile(t *testing.T) {
	p, err := Compile("**/gen/*.py")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Match("gen/a.py") || !p.Match("x/gen/a.py") || p.Match("gen/a.go") {
		t.Errorf("unexpected matches for %s", p)
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"*.go", "docs/*"}
	if !MatchAny(patterns, "docs/readme.md") {
		t.Error("docs/readme.md should match")
	}
	if MatchAny(patterns, "main.py") {
		t.Error("main.py should not match")
	}
	if MatchAny(nil, "x") {
		t.Error("no patterns never match")
	}
}
