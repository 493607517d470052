// Package scripts embeds the Risor reports shipped with autodoc. Each
// top-level script runs against one module; walk.risor is a helper imported
// by the others.
package scripts

import "embed"

//go:embed *.risor
var FS embed.FS
