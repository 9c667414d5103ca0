package renderer

import (
	"fmt"

	"github.com/richinsley/godeferred/gpu"
	"github.com/richinsley/godeferred/shader"
)

// programSources lists the vertex and fragment path of every program.
var programSources = []struct {
	vertex, fragment string
	dst              func(*Programs) *gpu.Program
}{
	{"geometry.vert", "geometry.frag", func(p *Programs) *gpu.Program { return &p.Geometry }},
	{"volume.vert", "volume.frag", func(p *Programs) *gpu.Program { return &p.Mark }},
	{"quad.vert", "lightpass.frag", func(p *Programs) *gpu.Program { return &p.Light }},
	{"quad.vert", "ssao.frag", func(p *Programs) *gpu.Program { return &p.SSAO }},
	{"quad.vert", "blur.frag", func(p *Programs) *gpu.Program { return &p.Blur }},
	{"quad.vert", "ssr.frag", func(p *Programs) *gpu.Program { return &p.SSR }},
	{"quad.vert", "combine.frag", func(p *Programs) *gpu.Program { return &p.Combine }},
	{"quad.vert", "present.frag", func(p *Programs) *gpu.Program { return &p.Present }},
	{"geometry.vert", "forward.frag", func(p *Programs) *gpu.Program { return &p.Forward }},
}

// LoadPrograms compiles every pipeline program from lib. There is no
// fallback for a program that fails its first compile.
func LoadPrograms(lib *shader.Library) (Programs, error) {
	var progs Programs
	for _, src := range programSources {
		p, err := lib.Compile(src.vertex, src.fragment)
		if err != nil {
			return Programs{}, fmt.Errorf("load programs: %w", err)
		}
		*src.dst(&progs) = p
	}
	return progs, nil
}
