// Package smooth runs a constant-velocity Kalman filter over an aligned
// track to suppress GNSS measurement noise in the local frame. The state is
// [e, n, u, ve, vn, vu]; each track point is a direct observation of the
// position block. Position sentences carry no usable timestamps, so the
// filter steps with a unit dt per point.
package smooth

import (
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/trackframe/internal/frame"
)

const stateDim = 6

// Config holds the filter noise model and the outlier gate.
type Config struct {
	ProcessNoisePos  float64 // Process noise for position (σ²)
	ProcessNoiseVel  float64 // Process noise for velocity (σ²)
	MeasurementNoise float64 // Measurement noise (σ²)

	// GatingDistanceSquared is the squared Mahalanobis distance between a
	// measurement and the predicted position above which the measurement is
	// treated as an outlier and the prediction kept.
	GatingDistanceSquared float64
}

// DefaultConfig returns filter defaults tuned for consumer GNSS tracks
// sampled around 1 Hz.
func DefaultConfig() Config {
	return Config{
		ProcessNoisePos:       0.1,
		ProcessNoiseVel:       0.5,
		MeasurementNoise:      0.2,
		GatingDistanceSquared: 25.0,
	}
}

// Smoother filters one track at a time. It is stateless between Smooth
// calls; the model matrices are built once.
type Smoother struct {
	cfg    Config
	motion *mat.Dense // 6x6 state transition F, constant velocity
	obs    *mat.Dense // 3x6 observation H, extracts the position block
}

// New builds a Smoother for the given configuration.
func New(cfg Config) *Smoother {
	motion := eye(stateDim)
	for i := 0; i < 3; i++ {
		motion.Set(i, 3+i, 1) // unit dt
	}
	obs := mat.NewDense(3, stateDim, nil)
	for i := 0; i < 3; i++ {
		obs.Set(i, i, 1)
	}
	return &Smoother{cfg: cfg, motion: motion, obs: obs}
}

// Smooth filters a track in order and returns the filtered positions. The
// output has the same length and order as the input; a gated measurement
// contributes nothing and its output point is the prediction.
func (s *Smoother) Smooth(points []frame.AlignedPoint) []frame.AlignedPoint {
	if len(points) == 0 {
		return nil
	}

	out := make([]frame.AlignedPoint, len(points))
	out[0] = points[0]

	mean, cov := s.initiate(points[0])
	for i := 1; i < len(points); i++ {
		mean, cov = s.predict(mean, cov)
		if m, c, ok := s.update(mean, cov, points[i]); ok {
			mean, cov = m, c
		}
		out[i] = frame.AlignedPoint{X: mean.AtVec(0), Y: mean.AtVec(1), Z: mean.AtVec(2)}
	}
	return out
}

// initiate seeds the state from the first measurement: position observed,
// velocity zero with higher position than velocity uncertainty.
func (s *Smoother) initiate(p frame.AlignedPoint) (*mat.VecDense, *mat.Dense) {
	mean := mat.NewVecDense(stateDim, []float64{p.X, p.Y, p.Z, 0, 0, 0})
	cov := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < 3; i++ {
		cov.Set(i, i, 10)
		cov.Set(3+i, 3+i, 1)
	}
	return mean, cov
}

// predict applies the constant-velocity step: x' = F·x, P' = F·P·Fᵀ + Q.
func (s *Smoother) predict(mean *mat.VecDense, cov *mat.Dense) (*mat.VecDense, *mat.Dense) {
	next := mat.NewVecDense(stateDim, nil)
	next.MulVec(s.motion, mean)

	var fp mat.Dense
	fp.Mul(s.motion, cov)
	var nextCov mat.Dense
	nextCov.Mul(&fp, s.motion.T())
	for i := 0; i < 3; i++ {
		nextCov.Set(i, i, nextCov.At(i, i)+s.cfg.ProcessNoisePos)
		nextCov.Set(3+i, 3+i, nextCov.At(3+i, 3+i)+s.cfg.ProcessNoiseVel)
	}
	return next, &nextCov
}

// update applies the correction step for one measurement. ok is false when
// the measurement fails the gate or the innovation covariance is singular;
// the caller keeps the prediction in that case.
func (s *Smoother) update(mean *mat.VecDense, cov *mat.Dense, p frame.AlignedPoint) (*mat.VecDense, *mat.Dense, bool) {
	var pht mat.Dense
	pht.Mul(cov, s.obs.T()) // P·Hᵀ, 6x3

	// Innovation covariance S = H·P·Hᵀ + R
	var innovCov mat.Dense
	innovCov.Mul(s.obs, &pht)
	for i := 0; i < 3; i++ {
		innovCov.Set(i, i, innovCov.At(i, i)+s.cfg.MeasurementNoise)
	}
	var invS mat.Dense
	if err := invS.Inverse(&innovCov); err != nil {
		return nil, nil, false
	}

	innov := mat.NewVecDense(3, []float64{
		p.X - mean.AtVec(0),
		p.Y - mean.AtVec(1),
		p.Z - mean.AtVec(2),
	})

	// Gate on the squared Mahalanobis distance yᵀ·S⁻¹·y.
	var sy mat.VecDense
	sy.MulVec(&invS, innov)
	if mat.Dot(innov, &sy) > s.cfg.GatingDistanceSquared {
		return nil, nil, false
	}

	// Kalman gain K = P·Hᵀ·S⁻¹
	var gain mat.Dense
	gain.Mul(&pht, &invS)

	// x' = x + K·y
	newMean := mat.NewVecDense(stateDim, nil)
	newMean.MulVec(&gain, innov)
	newMean.AddVec(mean, newMean)

	// P' = (I − K·H)·P
	var kh mat.Dense
	kh.Mul(&gain, s.obs)
	ikh := eye(stateDim)
	ikh.Sub(ikh, &kh)
	var newCov mat.Dense
	newCov.Mul(ikh, cov)

	return newMean, &newCov, true
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
