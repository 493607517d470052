package highlight

import (
	"strings"
	"sync"

	"github.com/go-enry/go-enry/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// aliases maps fence info strings to canonical language names.
var aliases = map[string]string{
	"go":         "go",
	"golang":     "go",
	"ts":         "typescript",
	"typescript": "typescript",
	"js":         "javascript",
	"javascript": "javascript",
	"py":         "python",
	"python":     "python",
	"rs":         "rust",
	"rust":       "rust",
	"c":          "c",
	"h":          "c",
	"cpp":        "cpp",
	"c++":        "cpp",
	"cc":         "cpp",
	"java":       "java",
	"php":        "php",
	"rb":         "ruby",
	"ruby":       "ruby",
}

// enryNames maps go-enry language names to canonical names.
var enryNames = map[string]string{
	"Go":         "go",
	"TypeScript": "typescript",
	"JavaScript": "javascript",
	"Python":     "python",
	"Rust":       "rust",
	"C":          "c",
	"C++":        "cpp",
	"Java":       "java",
	"PHP":        "php",
	"Ruby":       "ruby",
}

var candidates = []string{"Go", "TypeScript", "JavaScript", "Python", "Rust", "C", "C++", "Java", "PHP", "Ruby"}

// grammars is lazily initialized on first use via sync.Once.
var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"go":         golang.GetLanguage(),
			"typescript": ts.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"python":     python.GetLanguage(),
			"rust":       rust.GetLanguage(),
			"c":          c.GetLanguage(),
			"cpp":        cpp.GetLanguage(),
			"java":       java.GetLanguage(),
			"php":        php.GetLanguage(),
			"ruby":       ruby.GetLanguage(),
		}
	})
}

// Canonical returns the canonical language name for a fence info string.
// Returns ("", false) if the language is not supported.
func Canonical(lang string) (string, bool) {
	name, ok := aliases[strings.ToLower(lang)]
	return name, ok
}

// Grammar returns the tree-sitter grammar for a canonical language name.
func Grammar(lang string) (*sitter.Language, bool) {
	initGrammars()
	g, ok := grammars[lang]
	return g, ok
}

// Detect guesses the canonical language of an untagged code snippet. It
// returns "" unless go-enry is confident and a grammar exists for the result.
func Detect(code []byte) string {
	if len(code) == 0 {
		return ""
	}
	if lang, safe := enry.GetLanguageByShebang(code); safe {
		return enryNames[lang]
	}
	if lang, safe := enry.GetLanguageByClassifier(code, candidates); safe {
		return enryNames[lang]
	}
	return ""
}
