package kernel

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a preview triangle mesh of a fitted primitive. Arrays are flat:
// three floats per vertex for positions and normals, three indices per
// triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Label    string    `json:"label"` // item and face the mesh previews
}

func (m *Mesh) VertexCount() int   { return len(m.Vertices) / 3 }
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }
func (m *Mesh) IsEmpty() bool      { return len(m.Vertices) == 0 }

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{X: float64(m.Vertices[3*i]), Y: float64(m.Vertices[3*i+1]), Z: float64(m.Vertices[3*i+2])}
}

// Centroid is the mean vertex position; zero for an empty mesh.
func (m *Mesh) Centroid() v3.Vec {
	n := m.VertexCount()
	if n == 0 {
		return v3.Vec{}
	}
	var sum v3.Vec
	for i := 0; i < n; i++ {
		sum = sum.Add(m.Vertex(i))
	}
	return sum.DivScalar(float64(n))
}

// Bounds returns the axis-aligned box around the vertices. An empty mesh
// has a zero box.
func (m *Mesh) Bounds() sdf.Box3 {
	if m.IsEmpty() {
		return sdf.Box3{}
	}
	b := sdf.Box3{Min: m.Vertex(0), Max: m.Vertex(0)}
	for i := 1; i < m.VertexCount(); i++ {
		p := m.Vertex(i)
		b = sdf.Box3{Min: b.Min.Min(p), Max: b.Max.Max(p)}
	}
	return b
}
