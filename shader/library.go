package shader

import (
	"errors"
	"io/fs"

	"go.uber.org/zap"

	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/logger"
)

// Library owns every program built from one source tree.
type Library struct {
	dev      gpu.Device
	fsys     fs.FS
	tr       Translator
	programs []*Program
}

// NewLibrary reads sources from fsys. A nil translator passes fragment
// sources to the device unchanged.
func NewLibrary(dev gpu.Device, fsys fs.FS, tr Translator) *Library {
	return &Library{dev: dev, fsys: fsys, tr: tr}
}

// Compile builds a program from a vertex and fragment path. A failure here
// leaves no usable program and is returned as a *CompileError.
func (l *Library) Compile(vertex, fragment string) (*Program, error) {
	p := &Program{
		lib:      l,
		vertex:   vertex,
		fragment: fragment,
		handle:   gpu.NewHandle(l.dev, gpu.KindProgram),
		locs:     map[string]int32{},
	}
	if err := p.build(); err != nil {
		return nil, err
	}
	l.programs = append(l.programs, p)
	logger.Log.Debug("compiled program", zap.String("vertex", vertex), zap.String("fragment", fragment), zap.Uint32("id", p.ID()))
	return p, nil
}

// ReloadChanged rebuilds programs whose sources are newer than their last
// build. Programs that fail keep running their previous build.
func (l *Library) ReloadChanged() (int, error) {
	return l.reload(false)
}

// ReloadAll rebuilds every program regardless of modification times.
func (l *Library) ReloadAll() (int, error) {
	return l.reload(true)
}

func (l *Library) reload(force bool) (int, error) {
	var errs []error
	reloaded := 0
	for _, p := range l.programs {
		if !force {
			t, err := p.sourceTime()
			if err != nil {
				errs = append(errs, &CompileError{Vertex: p.vertex, Fragment: p.fragment, Err: err})
				continue
			}
			if !t.After(p.modTime) {
				continue
			}
		}
		if err := p.build(); err != nil {
			logger.Log.Error("shader reload failed, keeping previous program",
				zap.String("fragment", p.fragment), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		reloaded++
		logger.Log.Info("reloaded program", zap.String("vertex", p.vertex), zap.String("fragment", p.fragment))
	}
	return reloaded, errors.Join(errs...)
}

func (l *Library) Release() {
	for _, p := range l.programs {
		p.Release()
	}
	l.programs = nil
}
