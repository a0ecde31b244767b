package kernel

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// planarityRatio is the smallest accepted ratio between the middle and the
// largest covariance eigenvalue. Below it the points are treated as collinear.
const planarityRatio = 1e-10

// Compile-time interface check.
var _ PlaneFitter = LeastSquaresPlane{}

// LeastSquaresPlane fits the total least squares plane through a point set
// from the eigen decomposition of its covariance matrix.
type LeastSquaresPlane struct{}

// FitPlane returns a frame at the centroid whose Z axis is the plane normal
// and whose X axis is the direction of largest spread.
func (LeastSquaresPlane) FitPlane(points []v3.Vec) (Frame, bool) {
	if len(points) < 3 {
		return Frame{}, false
	}

	data := mat.NewDense(len(points), 3, nil)
	for i, p := range points {
		data.SetRow(i, []float64{p.X, p.Y, p.Z})
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return Frame{}, false
	}
	// Values are in ascending order.
	vals := eig.Values(nil)
	if vals[2] <= 0 || vals[1] <= planarityRatio*vals[2] {
		return Frame{}, false
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	normal := v3.Vec{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	major := v3.Vec{X: vecs.At(0, 2), Y: vecs.At(1, 2), Z: vecs.At(2, 2)}

	return NewFrameZX(Centroid(points), normal, major), true
}

// Centroid returns the arithmetic mean of the points.
func Centroid(points []v3.Vec) v3.Vec {
	var sum v3.Vec
	if len(points) == 0 {
		return sum
	}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.DivScalar(float64(len(points)))
}
