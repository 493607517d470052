// Package autodoc extracts API documentation from Zig source archives.
//
// A module is built from an archive (tar, zip and the compressed variants
// that mholt/archives understands) and a root file path. Building parses
// every .zig file in the archive, root first, resolves @import edges between
// them and records each public declaration in a declaration graph. Doc comments are
// rendered to HTML by a small markdown engine on demand.
//
// # Usage
//
//	s := autodoc.NewSession(autodoc.WithConfig(cfg))
//
//	m, err := s.CreateModule(ctx, "std/std.zig", tarBytes)
//	if err != nil { ... }
//	defer s.CloseModule(m)
//
//	f, _ := s.RootFile(m)
//	root, _ := s.RootDecl(m, f)
//	children, _ := s.DeclChildren(m, root)
//	for _, c := range children {
//		fmt.Println(c.Name, c.Kind, c.Summary)
//	}
//
// # Handles
//
// [File] and [Decl] carry the [ModuleID] they were issued for. Passing a
// handle to another module, or to a closed one, fails with
// [ErrInvalidHandle]. [Session.DeclChild] returns [NoDecl] when no child
// has the requested name.
//
// # Errors
//
// Errors returned by a Session for the conditions in the closed [Code] set
// wrap one of the sentinel errors in this package. Anything else, such as a
// cancelled context, is reported as CodeInternal.
// [CodeOf] maps an error to its Code for the HTTP transport and the CLI.
//
// # Lifetimes
//
// The slice returned by [Session.DeclChildren] is reused by the next call.
// Copy it to keep it. A Session is not safe for concurrent use; callers
// that share one across goroutines hold their own lock, as internal/server
// does.
package autodoc
