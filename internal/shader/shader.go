// Package shader compiles GLSL programs and exposes the attribute and uniform
// locations geometry buffers draw with.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/gpu"
	"github.com/Faultbox/glshape/internal/logger"
)

// MaxTextureUnits is the number of sampler uniforms (tex0, tex1, ...) looked up.
const MaxTextureUnits = 3

// Standard input and uniform names every toolkit shader declares.
const (
	AttrVertex   = "vertex"
	AttrNormal   = "normal"
	AttrTexCoord = "texcoord"
	UniformUnib  = "unib"
	UniformModel = "modelviewmatrix"
	UniformProj  = "projection"
)

// StandardAttribs are the locations the bundled vertex shader pins its inputs
// to. A linker may drop an input the fragment stage never consumes; the
// pinned location is still used for it.
var StandardAttribs = gpu.AttribLocations{Vertex: 0, Normal: 1, TexCoord: 2}

// Program is a linked shader program with resolved locations.
type Program struct {
	name     string
	id       uint32
	attribs  gpu.AttribLocations
	unib     int32
	model    int32
	proj     int32
	samplers [MaxTextureUnits]int32
}

// Load compiles and links a program and resolves its standard locations.
func Load(tok gpu.Token, name, vertexSrc, fragmentSrc string) (*Program, error) {
	if err := tok.Check("load shader"); err != nil {
		return nil, err
	}

	id, err := CompileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}

	p := &Program{name: name, id: id}
	p.attribs = gpu.AttribLocations{
		Vertex:   attrib(id, name, AttrVertex, StandardAttribs.Vertex),
		Normal:   attrib(id, name, AttrNormal, StandardAttribs.Normal),
		TexCoord: attrib(id, name, AttrTexCoord, StandardAttribs.TexCoord),
	}
	p.unib = GetUniform(id, UniformUnib)
	p.model = GetUniform(id, UniformModel)
	p.proj = GetUniform(id, UniformProj)
	for i := range p.samplers {
		p.samplers[i] = GetUniform(id, fmt.Sprintf("tex%d", i))
	}

	logger.Named("shader").Debug("program linked",
		zap.String("name", name),
		zap.Uint32("program", id),
		zap.Int32("unib", p.unib),
	)
	return p, nil
}

// SetProjection uploads the camera projection used by every draw with this program.
func (p *Program) SetProjection(tok gpu.Token, m mgl32.Mat4) error {
	if err := tok.Check("set projection"); err != nil {
		return err
	}
	dev := tok.Device()
	dev.UseProgram(p.id)
	dev.UniformMatrix4fv(p.proj, m)
	return nil
}

// Delete frees the GL program.
func (p *Program) Delete(tok gpu.Token) error {
	if err := tok.Check("delete shader"); err != nil {
		return err
	}
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
	return nil
}

func (p *Program) Name() string                 { return p.name }
func (p *Program) Handle() uint32               { return p.id }
func (p *Program) Attribs() gpu.AttribLocations { return p.attribs }
func (p *Program) UnibLocation() int32          { return p.unib }
func (p *Program) ModelMatrixLocation() int32   { return p.model }

// SamplerLocation returns -1 for units past MaxTextureUnits; GL ignores
// uniform writes to location -1.
func (p *Program) SamplerLocation(unit int) int32 {
	if unit < 0 || unit >= MaxTextureUnits {
		return -1
	}
	return p.samplers[unit]
}

// CompileProgram compiles vertex and fragment shaders and links them into a program.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", string(log))
	}

	return program, nil
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, string(log))
	}

	return shader, nil
}

// GetUniform returns the uniform location for the given name, or -1 if the
// program does not use it.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func attrib(program uint32, shaderName, name string, pinned uint32) uint32 {
	loc := gl.GetAttribLocation(program, gl.Str(name+"\x00"))
	if loc < 0 {
		logger.Named("shader").Debug("attribute inactive, using pinned location",
			zap.String("name", shaderName),
			zap.String("attribute", name),
			zap.Uint32("location", pinned),
		)
	}
	return resolveAttrib(loc, pinned)
}

// resolveAttrib prefers the linker's location and falls back to the pinned
// one for inputs the linker reports inactive (-1).
func resolveAttrib(queried int32, pinned uint32) uint32 {
	if queried < 0 {
		return pinned
	}
	return uint32(queried)
}

var _ gpu.Program = (*Program)(nil)
