package manifold

import "errors"

var (
	// ErrUnavailable is returned by New when the package was built without
	// the manifold tag.
	ErrUnavailable = errors.New("manifold modeler not available: build with -tags=manifold")
	// ErrForeignSolid is returned when a solid from another modeler is passed in.
	ErrForeignSolid = errors.New("manifold: solid was not created by this modeler")
	// ErrUnsupported is returned for primitives Manifold cannot build.
	ErrUnsupported = errors.New("manifold: primitive not supported")
)
