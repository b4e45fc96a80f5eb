package obj

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Material is the subset of an MTL material the toolkit draws with.
type Material struct {
	Name      string
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Shininess float32
	Alpha     float32
	// DiffuseMap is the texture path as written in the library.
	DiffuseMap string
}

// ParseMaterials reads newmtl blocks from r.
func ParseMaterials(r io.Reader) (map[string]Material, error) {
	mats := map[string]Material{}
	var cur *Material
	flush := func() {
		if cur != nil {
			mats[cur.Name] = *cur
		}
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: newmtl without name: %w", lineNo, ErrMalformed)
			}
			flush()
			cur = &Material{Name: fields[1], Alpha: 1}
			continue
		}
		if cur == nil {
			continue
		}

		var err error
		switch fields[0] {
		case "Kd":
			cur.Diffuse, err = parseColor(fields[1:])
		case "Ks":
			cur.Specular, err = parseColor(fields[1:])
		case "Ns":
			cur.Shininess, err = parseScalar(fields[1:])
		case "d":
			cur.Alpha, err = parseScalar(fields[1:])
		case "map_Kd":
			if len(fields) > 1 {
				// options such as -s precede the file name
				cur.DiffuseMap = fields[len(fields)-1]
			}
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", lineNo, fields[0], err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return mats, nil
}

// LoadMaterials parses the MTL file at path.
func LoadMaterials(path string) (map[string]Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMaterials(f)
}

func parseColor(fields []string) (mgl32.Vec3, error) {
	v, err := parseFloats(fields, 3)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{v[0], v[1], v[2]}, nil
}

func parseScalar(fields []string) (float32, error) {
	v, err := parseFloats(fields, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// ShininessFactor maps the MTL specular exponent (0..1000) to the 0..1 range
// the shaders use.
func (m Material) ShininessFactor() float32 {
	return mgl32.Clamp(m.Shininess/1000, 0, 1)
}
