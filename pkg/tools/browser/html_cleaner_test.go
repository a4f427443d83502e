package browser

import (
	"strings"
	"testing"
)

func TestSanitizeHTML(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		want      []string // substrings that should be present
		wantNot   []string // substrings that should NOT be present
		truncated bool
	}{
		{
			name: "drops script and style",
			input: `<html><head><title>T</title><script>alert('evil');</script>
				<style>body { color: red; }</style></head>
				<body><h1 id="main-title">Hello World</h1><p class="intro">This is a test.</p></body></html>`,
			maxLength: 10000,
			want:      []string{`<h1 id="main-title">Hello World</h1>`, `<p class="intro">This is a test.</p>`},
			wantNot:   []string{"<script>", "alert", "<style>", "color: red", "<title>"},
		},
		{
			name:      "drops event handlers and javascript urls",
			input:     `<body><a href="javascript:void(0)" onclick="steal()" data-test="x">Go</a></body>`,
			maxLength: 10000,
			want:      []string{`data-test="x"`, ">Go</a>"},
			wantNot:   []string{"onclick", "javascript:"},
		},
		{
			name: "keeps targeting attributes",
			input: `<body><form action="/submit" method="post">
				<input type="text" name="username" placeholder="Enter name" style="width:10px">
				<button type="submit" aria-label="send">Submit</button></form></body>`,
			maxLength: 10000,
			want:      []string{`action="/submit"`, `name="username"`, `placeholder="Enter name"`, `aria-label="send"`},
			wantNot:   []string{"style=", "</input>"},
		},
		{
			name:      "truncates at budget",
			input:     "<body><p>" + strings.Repeat("word ", 200) + "</p></body>",
			maxLength: 50,
			want:      []string{"...", "</p>"},
			truncated: true,
		},
		{
			name:      "collapses whitespace",
			input:     "<body><p>a\n\n   b\t c</p></body>",
			maxLength: 10000,
			want:      []string{"<p>a b c</p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated, err := sanitizeHTML(tt.input, tt.maxLength)
			if err != nil {
				t.Fatalf("sanitizeHTML() error = %v", err)
			}
			if truncated != tt.truncated {
				t.Errorf("truncated = %v, want %v", truncated, tt.truncated)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q\ngot: %s", want, got)
				}
			}
			for _, notWant := range tt.wantNot {
				if strings.Contains(got, notWant) {
					t.Errorf("output should not contain %q\ngot: %s", notWant, got)
				}
			}
		})
	}
}
