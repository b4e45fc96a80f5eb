package geometry

import "github.com/go-gl/mathgl/mgl32"

// StubNormal is assigned to vertices no face touches, and to vertices whose
// face normals cancel out. It is deliberately not unit length.
var StubNormal = mgl32.Vec3{0, 0, 0.01}

// ComputeNormals derives one normal per vertex from the faces. Each face
// contributes normalize((v0-v1) x (v0-v2)) to its three vertices. With smooth
// set the contributions are summed and normalized; otherwise only the first
// contribution is used, which is cheaper on large meshes.
func ComputeNormals(vertices []mgl32.Vec3, faces []Face, smooth bool) ([]mgl32.Vec3, error) {
	if err := validateFaces(faces, len(vertices)); err != nil {
		return nil, err
	}

	sums := make([]mgl32.Vec3, len(vertices))
	counts := make([]int, len(vertices))

	for _, f := range faces {
		a, b, c := f[0], f[1], f[2]
		ab := vertices[a].Sub(vertices[b])
		bc := vertices[a].Sub(vertices[c])
		n := normalize(ab.Cross(bc))

		for _, idx := range [3]int{a, b, c} {
			if smooth || counts[idx] == 0 {
				sums[idx] = sums[idx].Add(n)
			}
			counts[idx]++
		}
	}

	normals := make([]mgl32.Vec3, len(vertices))
	for i := range normals {
		if counts[i] == 0 {
			normals[i] = StubNormal
			continue
		}
		n := normalize(sums[i])
		if n == (mgl32.Vec3{}) {
			n = StubNormal
		}
		normals[i] = n
	}
	return normals, nil
}

// normalize returns v scaled to unit length, or the zero vector when v has
// no length (degenerate triangles).
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}
