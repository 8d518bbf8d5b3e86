package signal

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Preprocessing parameter errors.
var (
	// ErrBadWindow indicates a non-positive smoothing window.
	ErrBadWindow = errors.New("signal: smoothing window must be positive")

	// ErrBadBand indicates band-pass cutoffs that are not ordered as
	// 0 < low < high < fs/2.
	ErrBadBand = errors.New("signal: band-pass cutoffs must satisfy 0 < low < high < fs/2")
)

// Method names the preprocessing transforms a caller may request.
type Method string

const (
	MethodNone       Method = "none"
	MethodDerivative Method = "derivative"
	MethodZScore     Method = "zscore"
	MethodSmoothing  Method = "smoothing"
	MethodBandPass   Method = "bandpass"
)

// Derivative returns the first difference of the series. The leading
// sample, which has no predecessor, is zero.
func Derivative(s Series) Series {
	out := make(Series, len(s))
	for i := 1; i < len(s); i++ {
		out[i] = s[i] - s[i-1]
	}
	return out
}

// ZScore standardizes the series to zero mean and unit variance. A
// constant series (zero variance) maps to all zeros.
func ZScore(s Series) Series {
	if len(s) == 0 {
		return Series{}
	}
	mean := stat.Mean(s, nil)
	std := stat.StdDev(s, nil)
	out := make(Series, len(s))
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, v := range s {
		out[i] = (v - mean) / std
	}
	return out
}

// Smooth applies a trailing moving average over the given window. The
// first window-1 samples have no full window; they are backfilled with
// the first complete average so the output has no leading gap.
func Smooth(s Series, window int) (Series, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBadWindow, window)
	}
	out := make(Series, len(s))
	if len(s) == 0 {
		return out, nil
	}
	if window > len(s) {
		// No full window exists; fall back to the mean of what there is.
		mean := stat.Mean(s, nil)
		for i := range out {
			out[i] = mean
		}
		return out, nil
	}

	sum := 0.0
	for i, v := range s {
		sum += v
		if i >= window {
			sum -= s[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	for i := 0; i < window-1; i++ {
		out[i] = out[window-1]
	}
	return out, nil
}

// BandPass applies a second-order Butterworth band-pass filter between
// lowCut and highCut Hz, forward and backward so the result is
// zero-phase. samplingFrequency is the series sample rate in Hz.
func BandPass(s Series, lowCut, highCut, samplingFrequency float64) (Series, error) {
	if lowCut <= 0 || highCut <= lowCut || highCut >= samplingFrequency/2 {
		return nil, fmt.Errorf("%w: low %v Hz, high %v Hz at %v Hz", ErrBadBand, lowCut, highCut, samplingFrequency)
	}

	b, a := bandPassCoefficients(lowCut, highCut, samplingFrequency)

	// Zero-phase: filter forward, then filter the reversed result and
	// reverse again.
	out := applyBiquad(s, b, a)
	reverse(out)
	out = applyBiquad(out, b, a)
	reverse(out)
	return out, nil
}

// bandPassCoefficients designs a band-pass biquad by bilinear transform
// of the analog Butterworth prototype, centered on the geometric mean
// of the cutoffs with Q set by the bandwidth. Returns numerator b and
// denominator a, a[0] normalized to 1.
func bandPassCoefficients(lowCut, highCut, fs float64) (b, a [3]float64) {
	f0 := math.Sqrt(lowCut * highCut)
	q := f0 / (highCut - lowCut)
	w0 := 2 * math.Pi * f0 / fs
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	b = [3]float64{alpha / a0, 0, -alpha / a0}
	a = [3]float64{1, -2 * math.Cos(w0) / a0, (1 - alpha) / a0}
	return b, a
}

// applyBiquad runs a direct-form-I second-order filter over the series.
func applyBiquad(s Series, b, a [3]float64) Series {
	out := make(Series, len(s))
	var x1, x2, y1, y2 float64
	for i, x := range s {
		y := b[0]*x + b[1]*x1 + b[2]*x2 - a[1]*y1 - a[2]*y2
		out[i] = y
		x2, x1 = x1, x
		y2, y1 = y1, y
	}
	return out
}

func reverse(s Series) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Preprocess applies the named method to the series. Options not used
// by the method are ignored.
func Preprocess(s Series, method Method, window int, lowCut, highCut, samplingFrequency float64) (Series, error) {
	switch method {
	case MethodNone, "":
		return s.Clone(), nil
	case MethodDerivative:
		return Derivative(s), nil
	case MethodZScore:
		return ZScore(s), nil
	case MethodSmoothing:
		return Smooth(s, window)
	case MethodBandPass:
		return BandPass(s, lowCut, highCut, samplingFrequency)
	default:
		return nil, fmt.Errorf("signal: unknown preprocessing method %q", method)
	}
}
