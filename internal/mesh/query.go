package mesh

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Triangle returns the corner positions of face i.
func (m *Mesh) Triangle(i int) [3]v3.Vec {
	f := m.Faces[i]
	return [3]v3.Vec{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}

// Normal returns the unit normal of face i, or the zero vector for a
// degenerate face.
func (m *Mesh) Normal(i int) v3.Vec {
	t := m.Triangle(i)
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	if n.Length() == 0 {
		return v3.Vec{}
	}
	return n.Normalize()
}

// Bounds returns the axis-aligned box around all vertices.
func (m *Mesh) Bounds() sdf.Box3 {
	if len(m.Vertices) == 0 {
		return sdf.Box3{}
	}
	b := sdf.Box3{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		b = b.Include(v)
	}
	return b
}

// OpenEdges counts undirected edges whose two directions are not used equally
// often. A closed, consistently wound surface has none.
func (m *Mesh) OpenEdges() int {
	balance := make(map[[2]int]int, len(m.Faces)*3/2)
	for _, f := range m.Faces {
		for e := 0; e < 3; e++ {
			a, b := f[e], f[(e+1)%3]
			if a < b {
				balance[[2]int{a, b}]++
			} else {
				balance[[2]int{b, a}]--
			}
		}
	}
	open := 0
	for _, n := range balance {
		if n != 0 {
			open++
		}
	}
	return open
}

// IsClosed reports whether the mesh is watertight.
func (m *Mesh) IsClosed() bool {
	return len(m.Faces) > 0 && m.OpenEdges() == 0
}

// Volume returns the enclosed volume; positive for outward-facing normals.
func (m *Mesh) Volume() float64 {
	var vol float64
	for i := range m.Faces {
		t := m.Triangle(i)
		vol += t[0].Dot(t[1].Cross(t[2]))
	}
	return vol / 6
}
