package drivepath

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

// Similarity computation errors.
var (
	// ErrEmptyTrajectory indicates a zero-length trajectory was passed
	// to the similarity computation.
	ErrEmptyTrajectory = errors.New("drivepath: trajectory is empty")

	// ErrEmptySet indicates an empty trajectory set.
	ErrEmptySet = errors.New("drivepath: trajectory set is empty")

	// ErrTooManyDrives indicates the set exceeds the configured matrix
	// bound. The matrix is O(n²) in drives, so the bound is enforced
	// up front rather than discovered as a slow request.
	ErrTooManyDrives = errors.New("drivepath: trajectory set exceeds configured drive limit")
)

// SimilarityConfig bounds the pairwise similarity matrix computation.
type SimilarityConfig struct {
	// MaxDrives caps how many trajectories one matrix may cover. The
	// matrix costs O(n²) pairwise comparisons; zero means no limit.
	MaxDrives int `json:"max_drives"`
}

// DefaultSimilarityConfig returns the standard matrix bound.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{MaxDrives: 64}
}

// CalculateSimilarity scores the geometric similarity of two
// trajectories in [0,1], where 1 means geometrically identical.
//
// Both trajectories are translated to start at their own origin, then
// resampled to the longer trajectory's point count by linear
// interpolation over a normalized [0,1] index parameter. The score is
// one minus the mean point-wise distance normalized by the diagonal
// extent of path1's bounding box, clipped to [0,1].
//
// The normalization scale comes from path1 only, so this function is
// not guaranteed commutative for paths of very different extents; the
// matrix builder enforces symmetry by mirroring the upper triangle.
// When path1 has zero extent (a drive with no net displacement) the
// score is defined as 1 for an identical degenerate path2 and 0
// otherwise.
func CalculateSimilarity(path1, path2 Trajectory) (float64, error) {
	if len(path1) == 0 || len(path2) == 0 {
		return 0, ErrEmptyTrajectory
	}

	n := len(path1)
	if len(path2) > n {
		n = len(path2)
	}

	x1, y1, err := resampleAligned(path1, n)
	if err != nil {
		return 0, err
	}
	x2, y2, err := resampleAligned(path2, n)
	if err != nil {
		return 0, err
	}

	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Hypot(x1[i]-x2[i], y1[i]-y2[i])
	}
	meanDist := stat.Mean(dist, nil)

	scale := math.Hypot(floats.Max(x1)-floats.Min(x1), floats.Max(y1)-floats.Min(y1))
	if scale == 0 {
		if meanDist == 0 {
			return 1, nil
		}
		return 0, nil
	}

	ratio := meanDist / scale
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio, nil
}

// CalculateSimilarityMatrix computes the full pairwise similarity
// matrix for a named trajectory set. Names are ordered
// lexicographically so repeated runs over the same set produce
// identical matrices. Each unordered pair is scored once and mirrored;
// the diagonal is pinned to exactly 1.
func CalculateSimilarityMatrix(set NamedTrajectorySet, cfg SimilarityConfig) (*SimilarityMatrix, error) {
	if len(set) == 0 {
		return nil, ErrEmptySet
	}
	if cfg.MaxDrives > 0 && len(set) > cfg.MaxDrives {
		return nil, fmt.Errorf("%w: %d drives, limit %d", ErrTooManyDrives, len(set), cfg.MaxDrives)
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([][]float64, len(names))
	for i := range values {
		values[i] = make([]float64, len(names))
		values[i][i] = 1
	}

	for i := range names {
		for j := i + 1; j < len(names); j++ {
			sim, err := CalculateSimilarity(set[names[i]], set[names[j]])
			if err != nil {
				return nil, fmt.Errorf("drivepath: comparing %q and %q: %w", names[i], names[j], err)
			}
			values[i][j] = sim
			values[j][i] = sim
		}
	}

	return &SimilarityMatrix{Names: names, Values: values}, nil
}

// resampleAligned translates a trajectory to start at the origin and
// resamples it to n points, returning separate x and y slices. Points
// are treated as uniformly spaced over the trajectory's own index
// range (not arc length) and linearly interpolated onto n evenly
// spaced parameter values in [0,1].
func resampleAligned(p Trajectory, n int) (xs, ys []float64, err error) {
	px := make([]float64, len(p))
	py := make([]float64, len(p))
	for i, pt := range p {
		px[i] = pt.X - p[0].X
		py[i] = pt.Y - p[0].Y
	}

	if len(p) == 1 {
		// Single point: the resampled trajectory is that point repeated.
		return make([]float64, n), make([]float64, n), nil
	}
	if len(p) == n {
		return px, py, nil
	}

	ts := make([]float64, len(p))
	for i := range ts {
		ts[i] = float64(i) / float64(len(p)-1)
	}

	var lx, ly interp.PiecewiseLinear
	if err := lx.Fit(ts, px); err != nil {
		return nil, nil, fmt.Errorf("drivepath: resample x: %w", err)
	}
	if err := ly.Fit(ts, py); err != nil {
		return nil, nil, fmt.Errorf("drivepath: resample y: %w", err)
	}

	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := range xs {
		t := float64(i) / float64(n-1)
		xs[i] = lx.Predict(t)
		ys[i] = ly.Predict(t)
	}
	return xs, ys, nil
}
