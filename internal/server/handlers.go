package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jward/autodoc"
	"github.com/jward/autodoc/internal/graph"
	"github.com/jward/autodoc/internal/logging"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// ModuleResponse identifies a module.
type ModuleResponse struct {
	Module autodoc.ModuleID `json:"module"`
	Root   string           `json:"root,omitempty"`
}

// RootResponse names the root file and root declaration of a module.
type RootResponse struct {
	File graph.FileIndex `json:"file"`
	Decl graph.DeclIndex `json:"decl"`
}

// ChildResponse describes one child declaration.
type ChildResponse struct {
	Index   graph.DeclIndex `json:"index"`
	Kind    string          `json:"kind"`
	Name    string          `json:"name"`
	Summary string          `json:"summary"`
}

// DeclResponse names a declaration.
type DeclResponse struct {
	Decl graph.DeclIndex `json:"decl"`
}

// DocResponse carries rendered documentation.
type DocResponse struct {
	HTML string `json:"html"`
}

// InfoResponse describes a declaration.
type InfoResponse struct {
	Decl     graph.DeclIndex `json:"decl"`
	File     graph.FileIndex `json:"file"`
	Parent   graph.DeclIndex `json:"parent"`
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	Kind     string          `json:"kind"`
	Category string          `json:"category"`
	Public   bool            `json:"public"`
}

// statusOf maps an error code to its HTTP status.
func statusOf(code autodoc.Code) int {
	switch code {
	case autodoc.CodeOK:
		return http.StatusOK
	case autodoc.CodeInvalidArchive:
		return http.StatusBadRequest
	case autodoc.CodeInvalidRootPath, autodoc.CodeInvalidFile:
		return http.StatusUnprocessableEntity
	case autodoc.CodeOutOfMemory:
		return http.StatusRequestEntityTooLarge
	case autodoc.CodeInvalidHandle, autodoc.CodeNotFound:
		return http.StatusNotFound
	case autodoc.CodeInternal:
		return http.StatusInternalServerError
	}
	panic(fmt.Sprintf("server: unknown code %d", code))
}

func abortWithError(c *gin.Context, err error) {
	code := autodoc.CodeOf(err)
	c.AbortWithStatusJSON(statusOf(code), ErrorResponse{Code: code.String(), Error: err.Error()})
}

func (s *Server) moduleParam(c *gin.Context) (autodoc.ModuleID, bool) {
	v, err := strconv.ParseUint(c.Param("module"), 10, 32)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: module %q", autodoc.ErrInvalidHandle, c.Param("module")))
		return 0, false
	}
	return autodoc.ModuleID(v), true
}

func (s *Server) declParams(c *gin.Context) (autodoc.ModuleID, autodoc.Decl, bool) {
	m, ok := s.moduleParam(c)
	if !ok {
		return 0, autodoc.Decl{}, false
	}
	v, err := strconv.ParseUint(c.Param("decl"), 10, 32)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: decl %q", autodoc.ErrInvalidHandle, c.Param("decl")))
		return 0, autodoc.Decl{}, false
	}
	return m, autodoc.Decl{Module: m, Index: graph.DeclIndex(v)}, true
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCreateModule handles POST /v1/modules?root=<path>. The body is the
// archive.
func (s *Server) handleCreateModule(c *gin.Context) {
	root := c.Query("root")
	if root == "" {
		abortWithError(c, fmt.Errorf("%w: root query parameter is required", autodoc.ErrInvalidRootPath))
		return
	}
	body := c.Request.Body
	if s.maxBody > 0 {
		body = http.MaxBytesReader(c.Writer, body, s.maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, fmt.Errorf("%w: archive exceeds %d bytes", autodoc.ErrOutOfMemory, tooLarge.Limit))
			return
		}
		abortWithError(c, fmt.Errorf("server: reading body: %w", err))
		return
	}

	ctx := logging.WithLogger(c.Request.Context(), s.logger)
	start := time.Now()
	s.mu.Lock()
	m, err := s.session.CreateModule(ctx, root, data)
	s.mu.Unlock()
	s.metrics.buildSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.metrics.modulesLive.Inc()
	s.logger.Info("module created", logging.FieldModule, m, logging.FieldRoot, root, logging.FieldBytes, len(data))
	c.JSON(http.StatusCreated, ModuleResponse{Module: m})
}

// handleListModules handles GET /v1/modules.
func (s *Server) handleListModules(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ModuleResponse{}
	for _, m := range s.session.Modules() {
		root, err := s.session.Root(m)
		if err != nil {
			abortWithError(c, err)
			return
		}
		out = append(out, ModuleResponse{Module: m, Root: root})
	}
	c.JSON(http.StatusOK, out)
}

// handleCloseModule handles DELETE /v1/modules/:module.
func (s *Server) handleCloseModule(c *gin.Context) {
	m, ok := s.moduleParam(c)
	if !ok {
		return
	}
	s.mu.Lock()
	err := s.session.CloseModule(m)
	s.mu.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.metrics.modulesLive.Dec()
	c.Status(http.StatusNoContent)
}

// handleRoot handles GET /v1/modules/:module/root.
func (s *Server) handleRoot(c *gin.Context) {
	m, ok := s.moduleParam(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.session.RootFile(m)
	if err != nil {
		abortWithError(c, err)
		return
	}
	d, err := s.session.RootDecl(m, f)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, RootResponse{File: f.Index, Decl: d.Index})
}

// handleFileSource handles GET /v1/modules/:module/files/:file/source.
func (s *Server) handleFileSource(c *gin.Context) {
	m, ok := s.moduleParam(c)
	if !ok {
		return
	}
	v, err := strconv.ParseUint(c.Param("file"), 10, 32)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: file %q", autodoc.ErrInvalidFile, c.Param("file")))
		return
	}
	s.mu.Lock()
	src, err := s.session.FileSource(m, autodoc.File{Module: m, Index: graph.FileIndex(v)})
	s.mu.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", src)
}

// handleChildren handles GET /v1/modules/:module/decls/:decl/children.
func (s *Server) handleChildren(c *gin.Context) {
	m, d, ok := s.declParams(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kids, err := s.session.DeclChildren(m, d)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]ChildResponse, 0, len(kids))
	for _, k := range kids {
		out = append(out, ChildResponse{
			Index:   k.Decl.Index,
			Kind:    k.Kind.String(),
			Name:    k.Name,
			Summary: k.Summary,
		})
	}
	c.JSON(http.StatusOK, out)
}

// handleChild handles GET /v1/modules/:module/decls/:decl/child?name=.
func (s *Server) handleChild(c *gin.Context) {
	m, d, ok := s.declParams(c)
	if !ok {
		return
	}
	name := c.Query("name")
	s.mu.Lock()
	child, err := s.session.DeclChild(m, d, name)
	s.mu.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !child.Found() {
		abortWithError(c, fmt.Errorf("%w: no child %q", autodoc.ErrNotFound, name))
		return
	}
	c.JSON(http.StatusOK, DeclResponse{Decl: child.Index})
}

// handleDoc handles GET /v1/modules/:module/decls/:decl/doc.
func (s *Server) handleDoc(c *gin.Context) {
	m, d, ok := s.declParams(c)
	if !ok {
		return
	}
	s.mu.Lock()
	html, err := s.session.DeclDoc(m, d)
	s.mu.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DocResponse{HTML: html})
}

// handleInfo handles GET /v1/modules/:module/decls/:decl/info.
func (s *Server) handleInfo(c *gin.Context) {
	m, d, ok := s.declParams(c)
	if !ok {
		return
	}
	s.mu.Lock()
	info, err := s.session.DeclInfo(m, d)
	s.mu.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, InfoResponse{
		Decl:     info.Decl.Index,
		File:     info.File.Index,
		Parent:   info.Parent.Index,
		Name:     info.Name,
		Path:     info.Path,
		Kind:     info.Kind.String(),
		Category: info.Category.String(),
		Public:   info.Public,
	})
}
