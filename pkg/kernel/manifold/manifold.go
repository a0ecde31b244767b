//go:build manifold

// Package manifold implements kernel.Modeler on the Manifold mesh library
// (https://github.com/elalish/manifold) through its C bindings. Previews
// come out as exact polygonal meshes instead of marching-cubes surfaces.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/chazu/grain/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var _ kernel.Modeler = (*Modeler)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// segments is the number of facets around circular primitives.
const segments = 64

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newSolid wraps a C pointer; a finalizer frees it.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func unwrap(s kernel.Solid) (*manifoldSolid, error) {
	ms, ok := s.(*manifoldSolid)
	if !ok || ms == nil {
		return nil, ErrForeignSolid
	}
	return ms, nil
}

// Modeler builds preview solids with Manifold.
type Modeler struct{}

// New returns a Manifold-backed modeler.
func New() (kernel.Modeler, error) {
	return &Modeler{}, nil
}

// Sphere creates a sphere centered on the origin.
func (m *Modeler) Sphere(radius float64) (kernel.Solid, error) {
	if !(radius > 0) {
		return nil, fmt.Errorf("manifold: sphere radius must be positive, got %g", radius)
	}
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_sphere(alloc, C.double(radius), C.int(segments))), nil
}

// Cylinder creates a cylinder about Z spanning z in [0, height].
func (m *Modeler) Cylinder(height, radius float64) (kernel.Solid, error) {
	if !(height > 0) || !(radius > 0) {
		return nil, fmt.Errorf("manifold: cylinder needs positive height and radius, got %g/%g", height, radius)
	}
	return m.frustum(height, radius, radius), nil
}

// Cone creates a cone with its apex at the origin and its base circle at
// z = height.
func (m *Modeler) Cone(height, radius float64) (kernel.Solid, error) {
	if !(height > 0) || !(radius > 0) {
		return nil, fmt.Errorf("manifold: cone needs positive height and radius, got %g/%g", height, radius)
	}
	return m.frustum(height, 0, radius), nil
}

func (m *Modeler) frustum(height, low, high float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cylinder(alloc,
		C.double(height),
		C.double(low),  // radius at z = 0
		C.double(high), // radius at z = height
		C.int(segments),
		C.int(0), // center=false
	)
	return newSolid(ptr)
}

// Torus is not offered by the Manifold C API.
func (m *Modeler) Torus(major, minor float64) (kernel.Solid, error) {
	return nil, ErrUnsupported
}

// Transform applies mat to a solid. Solids from another modeler are
// returned unchanged.
func (m *Modeler) Transform(s kernel.Solid, mat sdf.M44) kernel.Solid {
	ms, err := unwrap(s)
	if err != nil {
		return s
	}
	// Manifold takes the affine part column by column.
	t := mat.MulPosition(v3.Vec{})
	x := mat.MulPosition(v3.Vec{X: 1}).Sub(t)
	y := mat.MulPosition(v3.Vec{Y: 1}).Sub(t)
	z := mat.MulPosition(v3.Vec{Z: 1}).Sub(t)

	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_transform(alloc, ms.ptr,
		C.double(x.X), C.double(x.Y), C.double(x.Z),
		C.double(y.X), C.double(y.Y), C.double(y.Z),
		C.double(z.X), C.double(z.Y), C.double(z.Z),
		C.double(t.X), C.double(t.Y), C.double(t.Z),
	)
	return newSolid(ptr)
}

// ToMesh extracts a triangle mesh from the solid using Manifold's MeshGL
// format. Vertex positions and normals are interleaved in MeshGL; this
// method separates them into the kernel.Mesh flat-array layout.
func (m *Modeler) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ms, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_get_meshgl(meshAlloc, ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	// The first 3 properties are the position; normals follow at 3..5
	// when present.
	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	vertices := make([]float32, numVert*3)
	var normals []float32
	hasNormals := numProp >= 6
	if hasNormals {
		normals = make([]float32, numVert*3)
	}
	for i := 0; i < numVert; i++ {
		base := i * numProp
		copy(vertices[i*3:i*3+3], propData[base:base+3])
		if hasNormals {
			copy(normals[i*3:i*3+3], propData[base+3:base+6])
		}
	}
	if !hasNormals {
		normals = vertexNormals(vertices, indices)
	}

	mesh := &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}
	if mesh.VertexCount() != numVert {
		return nil, fmt.Errorf("manifold: vertex count mismatch: got %d, expected %d",
			mesh.VertexCount(), numVert)
	}
	return mesh, nil
}

// vertexNormals averages the face normals of the triangles around each
// vertex.
func vertexNormals(vertices []float32, indices []uint32) []float32 {
	at := func(i uint32) v3.Vec {
		return v3.Vec{X: float64(vertices[i*3]), Y: float64(vertices[i*3+1]), Z: float64(vertices[i*3+2])}
	}
	acc := make([]v3.Vec, len(vertices)/3)
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		a := at(i0)
		n := at(i1).Sub(a).Cross(at(i2).Sub(a))
		for _, idx := range []uint32{i0, i1, i2} {
			acc[idx] = acc[idx].Add(n)
		}
	}

	normals := make([]float32, len(vertices))
	for i, n := range acc {
		if l := n.Length(); l > 1e-12 && !math.IsNaN(l) {
			n = n.Normalize()
		}
		normals[i*3+0] = float32(n.X)
		normals[i*3+1] = float32(n.Y)
		normals[i*3+2] = float32(n.Z)
	}
	return normals
}
