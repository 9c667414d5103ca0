// Package shader compiles programs from source files and reloads them when
// the files change.
package shader

import (
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/richinsley/godeferred/gpu"
)

//go:embed glsl
var embedded embed.FS

// Builtin returns the sources shipped with the binary.
func Builtin() fs.FS {
	sub, err := fs.Sub(embedded, "glsl")
	if err != nil {
		panic(err)
	}
	return sub
}

// Translator rewrites a fragment source for the device and reports how
// declared names were renamed.
type Translator interface {
	Translate(fragment string) (string, map[string]string, error)
}

// CompileError is a failed load, translation, compile or link.
type CompileError struct {
	Vertex, Fragment string
	Err              error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("program %s+%s: %v", e.Vertex, e.Fragment, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Program is a linked program that can be rebuilt in place. Its identity is
// stable across reloads so passes keep referring to it.
type Program struct {
	lib              *Library
	vertex, fragment string

	handle  *gpu.Handle
	names   map[string]string
	locs    map[string]int32
	modTime time.Time
}

func (p *Program) ID() uint32 { return p.handle.ID() }

// Location returns the uniform location of a declared name, or -1.
func (p *Program) Location(name string) int32 {
	if loc, ok := p.locs[name]; ok {
		return loc
	}
	mapped := name
	if m, ok := p.names[name]; ok {
		mapped = m
	}
	loc := p.lib.dev.UniformLocation(p.handle.ID(), mapped)
	p.locs[name] = loc
	return loc
}

// Paths returns the vertex and fragment source paths.
func (p *Program) Paths() (vertex, fragment string) { return p.vertex, p.fragment }

func (p *Program) sourceTime() (time.Time, error) {
	var latest time.Time
	for _, path := range []string{p.vertex, p.fragment} {
		info, err := fs.Stat(p.lib.fsys, path)
		if err != nil {
			return time.Time{}, err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

// build compiles the current sources. The previous program is only
// replaced when everything succeeds.
func (p *Program) build() error {
	fail := func(err error) error {
		return &CompileError{Vertex: p.vertex, Fragment: p.fragment, Err: err}
	}
	modTime, err := p.sourceTime()
	if err != nil {
		return fail(err)
	}
	vs, err := fs.ReadFile(p.lib.fsys, p.vertex)
	if err != nil {
		return fail(err)
	}
	fsrc, err := fs.ReadFile(p.lib.fsys, p.fragment)
	if err != nil {
		return fail(err)
	}

	fragment := string(fsrc)
	names := map[string]string{}
	if p.lib.tr != nil {
		fragment, names, err = p.lib.tr.Translate(fragment)
		if err != nil {
			return fail(err)
		}
	}
	id, err := p.lib.dev.CompileProgram(string(vs), fragment)
	if err != nil {
		return fail(err)
	}

	p.handle.Assign(id)
	p.names = names
	p.locs = map[string]int32{}
	p.modTime = modTime
	return nil
}

func (p *Program) Release() {
	p.handle.Release()
}
