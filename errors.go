package autodoc

import (
	"errors"
	"fmt"

	"github.com/jward/autodoc/internal/store"
)

var (
	ErrInvalidArchive  = errors.New("autodoc: invalid archive")
	ErrInvalidRootPath = errors.New("autodoc: invalid root path")
	ErrOutOfMemory     = errors.New("autodoc: out of memory")
	ErrInvalidFile     = errors.New("autodoc: invalid file")
	ErrInvalidHandle   = errors.New("autodoc: invalid handle")
	ErrNotFound        = errors.New("autodoc: not found")
)

// Code is the closed set of outcomes reported at the API boundary.
type Code uint8

const (
	CodeOK Code = iota
	CodeInvalidArchive
	CodeInvalidRootPath
	CodeOutOfMemory
	CodeInvalidFile
	CodeInvalidHandle
	CodeNotFound
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidArchive:
		return "invalid_archive"
	case CodeInvalidRootPath:
		return "invalid_root_path"
	case CodeOutOfMemory:
		return "out_of_memory"
	case CodeInvalidFile:
		return "invalid_file"
	case CodeInvalidHandle:
		return "invalid_handle"
	case CodeNotFound:
		return "not_found"
	case CodeInternal:
		return "internal"
	}
	return fmt.Sprintf("Code(%d)", c)
}

// CodeOf maps err to its Code. Errors outside the sentinel set are
// CodeInternal.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidArchive):
		return CodeInvalidArchive
	case errors.Is(err, ErrInvalidRootPath):
		return CodeInvalidRootPath
	case errors.Is(err, ErrOutOfMemory):
		return CodeOutOfMemory
	case errors.Is(err, ErrInvalidFile):
		return CodeInvalidFile
	case errors.Is(err, ErrInvalidHandle):
		return CodeInvalidHandle
	case errors.Is(err, ErrNotFound), errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	}
	return CodeInternal
}
