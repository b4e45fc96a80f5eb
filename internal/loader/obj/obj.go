// Package obj reads Wavefront OBJ geometry into per-material meshes.
//
// Supported statements are v, vt, vn, f, usemtl and mtllib. Polygons are fan
// triangulated and negative (relative) indices are resolved. Object and group
// statements are ignored; geometry is split only by material.
package obj

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/glshape/internal/geometry"
	"github.com/Faultbox/glshape/internal/logger"
)

// ErrMalformed is returned for statements that cannot be parsed.
var ErrMalformed = errors.New("malformed obj")

// DefaultMaterial names faces that precede any usemtl.
const DefaultMaterial = "default"

// Group is the geometry drawn with one material.
type Group struct {
	Material string
	// Mesh has no normals unless every face in the group supplied them.
	Mesh geometry.Mesh
}

// File is a parsed OBJ file.
type File struct {
	Groups       []Group
	MaterialLibs []string
	Materials    map[string]Material
}

// Group returns the group for a material name.
func (f *File) Group(material string) (Group, bool) {
	for _, g := range f.Groups {
		if g.Material == material {
			return g, true
		}
	}
	return Group{}, false
}

// corner is one face vertex as 0-based indices, -1 when absent.
type corner struct{ v, vt, vn int }

type groupBuilder struct {
	name      string
	mesh      geometry.Mesh
	lookup    map[corner]int
	missingVN bool
}

func (b *groupBuilder) vertex(c corner, pos []mgl32.Vec3, uv []mgl32.Vec2, nrm []mgl32.Vec3) int {
	if i, ok := b.lookup[c]; ok {
		return i
	}
	i := len(b.mesh.Vertices)
	b.mesh.Vertices = append(b.mesh.Vertices, pos[c.v])
	var t mgl32.Vec2
	if c.vt >= 0 {
		// OBJ puts v=0 at the bottom; images start at the top row.
		t = mgl32.Vec2{uv[c.vt].X(), 1 - uv[c.vt].Y()}
	}
	b.mesh.TexCoords = append(b.mesh.TexCoords, t)
	var n mgl32.Vec3
	if c.vn >= 0 {
		n = nrm[c.vn]
	} else {
		b.missingVN = true
	}
	b.mesh.Normals = append(b.mesh.Normals, n)
	b.lookup[c] = i
	return i
}

// Parse reads OBJ statements from r. Material libraries are recorded but not
// loaded; use Load for that.
func Parse(r io.Reader) (*File, error) {
	var (
		positions []mgl32.Vec3
		texcoords []mgl32.Vec2
		normals   []mgl32.Vec3
		file      = &File{Materials: map[string]Material{}}
		groups    = map[string]*groupBuilder{}
		order     []string
		current   = DefaultMaterial
	)

	group := func(name string) *groupBuilder {
		g, ok := groups[name]
		if !ok {
			g = &groupBuilder{name: name, lookup: map[corner]int{}}
			groups[name] = g
			order = append(order, name)
		}
		return g
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex: %w", lineNo, err)
			}
			positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: texcoord: %w", lineNo, err)
			}
			texcoords = append(texcoords, mgl32.Vec2{v[0], v[1]})
		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: normal: %w", lineNo, err)
			}
			normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face with %d vertices: %w", lineNo, len(fields)-1, ErrMalformed)
			}
			corners := make([]corner, 0, len(fields)-1)
			for _, f := range fields[1:] {
				c, err := parseCorner(f, len(positions), len(texcoords), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: face: %w", lineNo, err)
				}
				corners = append(corners, c)
			}
			g := group(current)
			first := g.vertex(corners[0], positions, texcoords, normals)
			for i := 1; i+1 < len(corners); i++ {
				g.mesh.Faces = append(g.mesh.Faces, geometry.Face{
					first,
					g.vertex(corners[i], positions, texcoords, normals),
					g.vertex(corners[i+1], positions, texcoords, normals),
				})
			}
		case "usemtl":
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: usemtl without name: %w", lineNo, ErrMalformed)
			}
			current = fields[1]
		case "mtllib":
			file.MaterialLibs = append(file.MaterialLibs, fields[1:]...)
		case "o", "g", "s":
		default:
			logger.Named("obj").Debug("statement ignored", zap.String("keyword", fields[0]), zap.Int("line", lineNo))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for _, name := range order {
		g := groups[name]
		if g.missingVN {
			g.mesh.Normals = nil
		}
		file.Groups = append(file.Groups, Group{Material: name, Mesh: g.mesh})
	}
	return file, nil
}

// Load parses the OBJ file at path and the material libraries it names,
// resolved relative to the file. A missing library is logged and skipped.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	file, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log := logger.Named("obj")
	for _, lib := range file.MaterialLibs {
		libPath := filepath.Join(filepath.Dir(path), lib)
		mats, err := LoadMaterials(libPath)
		if err != nil {
			log.Warn("material library skipped", zap.String("path", libPath), zap.Error(err))
			continue
		}
		for name, m := range mats {
			file.Materials[name] = m
		}
	}

	log.Info("model loaded",
		zap.String("path", path),
		zap.Int("groups", len(file.Groups)),
		zap.Int("materials", len(file.Materials)),
	)
	return file, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d values, got %d: %w", n, len(fields), ErrMalformed)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", fields[i], ErrMalformed)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseCorner reads v, v/vt, v//vn or v/vt/vn.
func parseCorner(s string, nv, nvt, nvn int) (corner, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return corner{}, fmt.Errorf("%q: %w", s, ErrMalformed)
	}
	c := corner{v: -1, vt: -1, vn: -1}
	counts := [3]int{nv, nvt, nvn}
	dst := [3]*int{&c.v, &c.vt, &c.vn}
	for i, p := range parts {
		if p == "" {
			if i == 0 {
				return corner{}, fmt.Errorf("%q: missing vertex index: %w", s, ErrMalformed)
			}
			continue
		}
		idx, err := resolveIndex(p, counts[i])
		if err != nil {
			return corner{}, fmt.Errorf("%q: %w", s, err)
		}
		*dst[i] = idx
	}
	return c, nil
}

// resolveIndex turns a 1-based or negative OBJ index into a 0-based one.
func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrMalformed
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	}
	return 0, fmt.Errorf("index %d of %d: %w", i, count, ErrMalformed)
}
