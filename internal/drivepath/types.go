// Package drivepath reconstructs 2D driving paths from recorded
// steering-angle and speed channels and scores how alike the resulting
// trajectories are.
//
// Path reconstruction uses a kinematic bicycle model stepped with
// forward Euler integration: the only inputs are a synchronized pair of
// (steering angle, speed) series and the sampling rate. Similarity is a
// normalized [0,1] score over origin-aligned, resampled trajectories.
// Resampling is parameterized by sample index rather than arc length,
// which biases comparisons between drives with very different speed
// profiles; that approximation is deliberate and kept stable so scores
// stay comparable across runs.
package drivepath

// Point is a 2D position in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trajectory is an ordered sequence of positions. The first point is
// always the origin; each subsequent point depends on the full prefix
// of the input series, so points are cumulative rather than
// independently computable.
type Trajectory []Point

// NamedTrajectorySet maps a drive identifier (file name or source URL)
// to its reconstructed trajectory.
type NamedTrajectorySet map[string]Trajectory

// SimilarityMatrix is a symmetric pairwise similarity table over a set
// of named drives. Names holds the axis labels; Values[i][j] is the
// similarity between Names[i] and Names[j]. The diagonal is exactly 1.
type SimilarityMatrix struct {
	Names  []string    `json:"names"`
	Values [][]float64 `json:"values"`
}

// At returns the similarity between two named drives. The second
// return is false when either name is not in the matrix.
func (m *SimilarityMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, n := range m.Names {
		if n == a {
			ia = i
		}
		if n == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}
