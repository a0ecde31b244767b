// Package tessellate turns a primitive decomposition into preview meshes
// using a kernel.Modeler. One mesh is produced per bounded fitted face.
package tessellate

import (
	"fmt"

	"github.com/chazu/grain/pkg/kernel"
	"github.com/chazu/grain/pkg/primitive"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Tessellate builds one mesh per fit whose primitive is a bounded solid
// (cylinder, sphere, cone, torus). Planes, extrusions and unknown fits have
// no closed preview and are skipped. The fits are never mutated.
func Tessellate(fits []primitive.Fit, m kernel.Modeler) ([]*kernel.Mesh, error) {
	if m == nil {
		return nil, fmt.Errorf("tessellate: nil modeler")
	}

	var meshes []*kernel.Mesh
	for _, fit := range fits {
		solid, err := build(m, fit)
		if err != nil {
			return nil, fmt.Errorf("tessellate: face %d (%s): %w", fit.Face, fit.Primitive.Kind, err)
		}
		if solid == nil {
			continue
		}

		mesh, err := m.ToMesh(solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for face %d: %w", fit.Face, err)
		}
		mesh.Label = fmt.Sprintf("face %d %s", fit.Face, fit.Primitive.Kind)
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// build creates the solid in its canonical frame and moves it onto the
// fitted frame. A nil solid means the kind has no preview.
func build(m kernel.Modeler, fit primitive.Fit) (kernel.Solid, error) {
	p := fit.Primitive
	place := p.Frame.Transform()

	var solid kernel.Solid
	var err error
	switch p.Kind {
	case primitive.Sphere:
		r, _ := p.Radius()
		solid, err = m.Sphere(r)

	case primitive.Cylinder:
		r, _ := p.Radius()
		h, _ := p.Height()
		solid, err = m.Cylinder(h, r)
		// Curvature fits place the frame on the axis beside the sampled
		// point, so the preview is centred there.
		if fit.Source == primitive.Curvature {
			place = place.Mul(sdf.Translate3d(v3.Vec{Z: -h / 2}))
		}

	case primitive.Cone:
		r, _ := p.Radius()
		h, _ := p.Height()
		solid, err = m.Cone(h, r)

	case primitive.Torus:
		major, _ := p.MajorRadius()
		minor, _ := p.MinorRadius()
		solid, err = m.Torus(major, minor)

	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.Transform(solid, place), nil
}
