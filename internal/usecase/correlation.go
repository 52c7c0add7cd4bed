package usecase

import (
	"errors"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/coverage-stats/internal/domain"
)

// minCorrelationPoints is the smallest sample with at least one degree of freedom.
const minCorrelationPoints = 3

var (
	errTooFewPoints   = errors.New("too few points for correlation")
	errLengthMismatch = errors.New("x and y sequences differ in length")

	errUndefinedCorrelation = errors.New("correlation is undefined for this sample")
)

// Correlate computes Pearson's r over xs and ys together with its two-tailed
// p-value under Student's t distribution with n-2 degrees of freedom. A series
// where every value is equal has no correlation.
func Correlate(xs, ys []float64) (*domain.Correlation, error) {
	n := len(xs)
	if n != len(ys) {
		return nil, errLengthMismatch
	}
	if n < minCorrelationPoints {
		return nil, errTooFewPoints
	}
	// stats.Pearson reports 0 for a constant series; r is undefined there.
	if !hasDistinct(xs) || !hasDistinct(ys) {
		return nil, errUndefinedCorrelation
	}
	r, err := stats.Pearson(xs, ys)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(r) {
		return nil, errUndefinedCorrelation
	}
	return &domain.Correlation{R: r, PValue: pearsonPValue(r, n), N: n}, nil
}

func pearsonPValue(r float64, n int) float64 {
	df := float64(n - 2)
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(df/(1-r*r))
	return studentTwoTailed(t, df)
}

// studentTwoTailed is P(|T| >= |t|) for T ~ Student(df).
func studentTwoTailed(t, df float64) float64 {
	if math.IsInf(t, 0) {
		return 0
	}
	return regIncBeta(df/2, 0.5, df/(df+t*t))
}

// regIncBeta is the regularized incomplete beta function I_x(a, b).
func regIncBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	front := math.Exp(lab - la - lb + a*math.Log(x) + b*math.Log1p(-x))
	// The continued fraction converges fastest on this side of the mean.
	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

// betaContinuedFraction evaluates the incomplete beta continued fraction with
// the modified Lentz method.
func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIter = 300
		eps     = 1e-15
		tiny    = 1e-300
	)
	clamp := func(v float64) float64 {
		if math.Abs(v) < tiny {
			return tiny
		}
		return v
	}

	c := 1.0
	d := 1 / clamp(1-(a+b)*x/(a+1))
	h := d
	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm

		num := fm * (b - fm) * x / ((a - 1 + m2) * (a + m2))
		d = 1 / clamp(1+num*d)
		c = clamp(1 + num/c)
		h *= d * c

		num = -(a + fm) * (a + b + fm) * x / ((a + m2) * (a + 1 + m2))
		d = 1 / clamp(1+num*d)
		c = clamp(1 + num/c)
		delta := d * c
		h *= delta
		if math.Abs(delta-1) < eps {
			break
		}
	}
	return h
}

// trendLine fits y = a + b*x by least squares and returns the fitted points
// sorted by x. It returns nil when fewer than two distinct x values exist.
func trendLine(xs, ys []float64) []domain.Point {
	if len(xs) < 2 || !hasDistinct(xs) {
		return nil
	}
	series := make(stats.Series, len(xs))
	for i := range xs {
		series[i] = stats.Coordinate{X: xs[i], Y: ys[i]}
	}
	fitted, err := stats.LinearRegression(series)
	if err != nil {
		return nil
	}
	points := make([]domain.Point, 0, len(fitted))
	for _, c := range fitted {
		if math.IsNaN(c.Y) || math.IsInf(c.Y, 0) {
			return nil
		}
		points = append(points, domain.Point{X: c.X, Y: c.Y})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].X < points[j].X
	})
	return points
}

func hasDistinct(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return true
		}
	}
	return false
}
