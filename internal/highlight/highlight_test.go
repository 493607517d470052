package highlight

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/autodoc/internal/markdown"
)

var spanTag = regexp.MustCompile(`</?span[^>]*>`)

func TestHighlight_Go(t *testing.T) {
	t.Parallel()
	code := []byte("package main\n\n// hi\nfunc main() { x := \"a<b\" + 42 }\n")

	out, ok := New().Highlight("go", code)
	require.True(t, ok)
	assert.Contains(t, out, `<span class="tok-keyword">func</span>`)
	assert.Contains(t, out, `<span class="tok-function">main</span>`)
	assert.Contains(t, out, `<span class="tok-comment">// hi</span>`)
	assert.Contains(t, out, `<span class="tok-string">&quot;a&lt;b&quot;</span>`)
	assert.Contains(t, out, `<span class="tok-number">42</span>`)

	// Removing the spans leaves exactly the escaped source.
	assert.Equal(t, markdown.Escape(string(code)), spanTag.ReplaceAllString(out, ""))
}

func TestHighlight_Aliases(t *testing.T) {
	t.Parallel()
	for _, lang := range []string{"golang", "GO", "py", "rs", "c++", "js"} {
		name, ok := Canonical(lang)
		assert.True(t, ok, lang)
		_, ok = Grammar(name)
		assert.True(t, ok, lang)
	}
	_, ok := Canonical("zig")
	assert.False(t, ok)
}

func TestHighlight_Unsupported(t *testing.T) {
	t.Parallel()
	_, ok := New().Highlight("zig", []byte("const x = 1;"))
	assert.False(t, ok)

	_, ok = New().Highlight("", []byte("#!/usr/bin/env python\nprint(1)\n"))
	assert.False(t, ok, "detection is off by default")
}

func TestHighlight_Detection(t *testing.T) {
	t.Parallel()
	code := []byte("#!/usr/bin/env python\nprint(1)\n")
	assert.Equal(t, "python", Detect(code))
	assert.Equal(t, "", Detect(nil))

	out, ok := New(WithDetection(true)).Highlight("", code)
	require.True(t, ok)
	assert.Equal(t, markdown.Escape(string(code)), spanTag.ReplaceAllString(out, ""))
}

func TestHighlight_ThroughRenderer(t *testing.T) {
	t.Parallel()
	r := markdown.Renderer{Highlighter: New()}
	html := r.Render(markdown.Parse("```go\nvar x = 1\n```"))
	assert.Contains(t, html, `<pre><code class="language-go"><span class="tok-keyword">var</span>`)
	assert.Contains(t, html, "</code></pre>\n")
}
