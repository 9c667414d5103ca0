// Package translator converts WebGL2 fragment shaders to desktop GLSL.
package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

var (
	translator *gst.ShaderTranslator
	initOnce   sync.Once
	initErr    error
)

func get(ctx context.Context) (*gst.ShaderTranslator, error) {
	initOnce.Do(func() {
		translator, initErr = gst.NewShaderTranslator(ctx)
	})
	return translator, initErr
}

// GLSL410 translates GLSL ES 3.00 fragment shaders to GLSL 410 core.
type GLSL410 struct {
	t *gst.ShaderTranslator
}

// New returns a translator sharing the process-wide translator instance.
func New(ctx context.Context) (*GLSL410, error) {
	t, err := get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start shader translator: %w", err)
	}
	return &GLSL410{t: t}, nil
}

// Translate returns the translated source and the mapping from each
// declared name to the name the output uses.
func (g *GLSL410) Translate(fragment string) (string, map[string]string, error) {
	out, err := g.t.TranslateShader(fragment, "fragment", gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return "", nil, fmt.Errorf("fragment shader translation failed: %w", err)
	}
	names := make(map[string]string, len(out.Variables))
	for name, v := range out.Variables {
		names[name] = v.MappedName
	}
	return out.Code, names, nil
}
