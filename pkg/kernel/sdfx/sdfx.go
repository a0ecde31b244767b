// Package sdfx implements kernel.Modeler with the github.com/deadsy/sdfx
// SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"

	"github.com/chazu/grain/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Modeler = (*Modeler)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 64

// ErrForeignSolid is returned when a solid from another modeler is passed in.
var ErrForeignSolid = errors.New("sdfx: solid was not created by this modeler")

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Modeler builds preview solids with sdfx.
type Modeler struct {
	cells int
}

// Option configures a Modeler.
type Option func(*Modeler)

// WithMeshCells sets the marching cubes resolution along the longest
// bounding box axis.
func WithMeshCells(n int) Option {
	return func(m *Modeler) {
		if n > 0 {
			m.cells = n
		}
	}
}

// New returns a new Modeler.
func New(opts ...Option) *Modeler {
	m := &Modeler{cells: defaultMeshCells}
	for _, o := range opts {
		o(m)
	}
	return m
}

func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	w, ok := s.(*sdfxSolid)
	if !ok || w == nil {
		return nil, ErrForeignSolid
	}
	return w.s, nil
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Sphere creates a sphere centered on the origin.
func (m *Modeler) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	return wrap(s), nil
}

// Cylinder creates a cylinder about Z spanning z in [0, height].
// sdf.Cylinder3D centers the cylinder on the origin, so it is shifted up
// by half the height.
func (m *Modeler) Cylinder(height, radius float64) (kernel.Solid, error) {
	if height <= 0 {
		return nil, fmt.Errorf("sdfx: cylinder height must be positive, got %g", height)
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cylinder3D: %w", err)
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))), nil
}

// Cone creates a cone with its apex at the origin and its base circle of
// the given radius at z = height.
func (m *Modeler) Cone(height, radius float64) (kernel.Solid, error) {
	if height <= 0 {
		return nil, fmt.Errorf("sdfx: cone height must be positive, got %g", height)
	}
	s, err := sdf.Cone3D(height, 0, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Cone3D: %w", err)
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))), nil
}

// Torus creates a ring torus about Z by revolving the minor circle.
func (m *Modeler) Torus(major, minor float64) (kernel.Solid, error) {
	if minor <= 0 || major <= minor {
		return nil, fmt.Errorf("sdfx: torus needs 0 < minor < major, got %g/%g", minor, major)
	}
	c, err := sdf.Circle2D(minor)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Circle2D: %w", err)
	}
	profile := sdf.Transform2D(c, sdf.Translate2d(v2.Vec{X: major}))
	s, err := sdf.Revolve3D(profile)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Revolve3D: %w", err)
	}
	return wrap(s), nil
}

// Transform applies m to a solid. Solids from another modeler are
// returned unchanged.
func (m *Modeler) Transform(s kernel.Solid, mat sdf.M44) kernel.Solid {
	inner, err := unwrap(s)
	if err != nil {
		return s
	}
	return wrap(sdf.Transform3D(inner, mat))
}

// Distance returns the signed distance from p to the solid's surface,
// negative inside.
func (m *Modeler) Distance(s kernel.Solid, p v3.Vec) (float64, error) {
	inner, err := unwrap(s)
	if err != nil {
		return 0, err
	}
	return inner.Evaluate(p), nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (m *Modeler) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	renderer := render.NewMarchingCubesUniform(m.cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Flat shading: every corner carries the face normal.
		n := tri.Normal()
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
