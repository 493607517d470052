package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// CLIModule is a JSON-friendly indexed module.
type CLIModule struct {
	ID        int64  `json:"id"`
	Root      string `json:"root"`
	Hash      string `json:"hash"`
	Files     int    `json:"files"`
	Decls     int    `json:"decls"`
	IndexedAt string `json:"indexed_at,omitempty"`
	Cached    bool   `json:"cached,omitempty"`
}

// CLIDecl is a JSON-friendly declaration.
type CLIDecl struct {
	Index    int64  `json:"index"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
	File     string `json:"file,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// CLIDoc is rendered documentation for one declaration.
type CLIDoc struct {
	Index int64  `json:"index"`
	Path  string `json:"path"`
	HTML  string `json:"html"`
}

// CLISource is the content of one stored file.
type CLISource struct {
	Index  int    `json:"index"`
	Path   string `json:"path"`
	Source string `json:"source"`
}

// CLIHTML is rendered markdown.
type CLIHTML struct {
	HTML string `json:"html"`
}
