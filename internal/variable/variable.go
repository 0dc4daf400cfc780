// Package variable implements the random-variable algebra described in
// spec.md section 4.1: construction of Bernoulli, discrete, and
// (optionally discretised) continuous variables, and the arithmetic and
// comparison operators the expression evaluator drives.
//
// The original implementation's inheritance chain (Common / Fixed / Discrete / Uniform /
// Normal / Beta / Pareto / op_result) is replaced by a single tagged
// union, per spec.md section 9's explicit design note; the common header
// (name, expectation, variance, bounds, probability, lazy inner points)
// is the Variable struct itself rather than a base class.
package variable

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/exp/rand"
)

// Class tags the distribution family (or arithmetic provenance) a
// Variable was produced from.
type Class int

const (
	ClassFixed Class = iota
	ClassBernoulli
	ClassDiscreteQualitative
	ClassDiscreteNumeric
	ClassUniform
	ClassNormal
	ClassBeta
	ClassPareto
	ClassOpResult
)

func (c Class) String() string {
	switch c {
	case ClassFixed:
		return "fixed"
	case ClassBernoulli:
		return "bernoulli"
	case ClassDiscreteQualitative:
		return "discrete_qualitative"
	case ClassDiscreteNumeric:
		return "discrete_numeric"
	case ClassUniform:
		return "uniform"
	case ClassNormal:
		return "normal"
	case ClassBeta:
		return "beta"
	case ClassPareto:
		return "pareto"
	case ClassOpResult:
		return "op_result"
	default:
		return "unknown"
	}
}

// Value is either a number or a qualitative string, matching the
// "expectation / lower_bound / upper_bound... either a number or a
// string" contract in spec.md section 3.1.
type Value struct {
	str   string
	num   float64
	isStr bool
}

// Num builds a numeric Value.
func Num(f float64) Value { return Value{num: f} }

// Str builds a qualitative (string) Value.
func Str(s string) Value { return Value{str: s, isStr: true} }

// IsString reports whether this Value carries a qualitative string.
func (v Value) IsString() bool { return v.isStr }

// Number returns the numeric payload (zero if this is a string Value).
func (v Value) Number() float64 { return v.num }

// String returns the string payload (empty if this is a numeric Value).
func (v Value) String() string {
	if v.isStr {
		return v.str
	}
	return fmt.Sprintf("%v", v.num)
}

func (v Value) equal(o Value) bool {
	if v.isStr != o.isStr {
		return false
	}
	if v.isStr {
		return v.str == o.str
	}
	return v.num == o.num
}

// less compares two Values the way the source's interval-overlap code
// does: numerically for numbers, lexicographically for qualitative
// strings (spec.md section 9, "Floating-point comparison of qualitative
// variables").
func (v Value) less(o Value) bool {
	if v.isStr {
		return v.str < o.str
	}
	return v.num < o.num
}

func (v Value) lessEq(o Value) bool { return v.less(o) || v.equal(o) }

// Variable is a single random-variable instance: one outcome of a
// distribution, carrying its own expectation, variance, support, and
// probability mass (spec.md section 3.1).
type Variable struct {
	Name        string
	Class       Class
	Expectation Value
	Variance    float64
	Lower       Value
	Upper       Value
	Probability float64

	// Continuous-interval variables lazily derive inner points (spec.md
	// section 4.1, "Inner points") via rejection sampling against a pdf;
	// pdf/rng are nil for fixed, Bernoulli, and discrete variables, whose
	// inner points are just N copies of the single value.
	pdf         func(x float64) float64
	rng         *rand.Rand
	pointsOnce  sync.Once
	points      []float64
}

// innerPointCount is N in spec.md section 3.1 ("a length-N (N=50) sample
// of representative values").
const innerPointCount = 50

// IsTruthy implements spec.md section 3.1's logical bridge: "a Variable
// is logically TRUE iff its expectation is neither 0 nor the empty
// string".
func (v *Variable) IsTruthy() bool {
	if v.Expectation.IsString() {
		return v.Expectation.String() != ""
	}
	return v.Expectation.Number() != 0
}

// Fixed constructs a fixed-value Variable (the TRUE/FALSE convention and
// plain literal values all funnel through here).
func Fixed(name string, val Value) *Variable {
	return &Variable{Name: name, Class: ClassFixed, Expectation: val, Variance: 0, Lower: val, Upper: val, Probability: 1}
}

// FixedBool constructs the canonical TRUE/FALSE fixed variable
// (expectation 1/0 respectively, per spec.md section 3.1).
func FixedBool(name string, b bool) *Variable {
	if b {
		return Fixed(name, Num(1))
	}
	return Fixed(name, Num(0))
}

// Bernoulli implements the Bernoulli(name, p) construction contract:
// returns [V_false(exp=0, prob=1-p), V_true(exp=1, prob=p)].
func Bernoulli(name string, p float64) ([2]*Variable, error) {
	if p < 0 || p > 1 {
		return [2]*Variable{}, fmt.Errorf("variable: Bernoulli(%q): probability %v outside [0,1]", name, p)
	}
	vFalse := &Variable{Name: name, Class: ClassBernoulli, Expectation: Num(0), Variance: p * (1 - p), Lower: Num(0), Upper: Num(0), Probability: 1 - p}
	vTrue := &Variable{Name: name, Class: ClassBernoulli, Expectation: Num(1), Variance: p * (1 - p), Lower: Num(1), Upper: Num(1), Probability: p}
	return [2]*Variable{vFalse, vTrue}, nil
}

// DiscreteKind distinguishes qualitative (string-valued) from numeric
// discrete distributions.
type DiscreteKind int

const (
	DiscreteQualitative DiscreteKind = iota
	DiscreteNumeric
)

// Discrete implements the Discrete(kind, name, values, odds) construction
// contract: one Variable per value, probability = odds[i] / sum(odds).
func Discrete(kind DiscreteKind, name string, values []Value, odds []float64) ([]*Variable, error) {
	if len(values) != len(odds) {
		return nil, fmt.Errorf("variable: Discrete(%q): %d values but %d odds", name, len(values), len(odds))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("variable: Discrete(%q): no values supplied", name)
	}
	sum := 0.0
	for _, o := range odds {
		if o < 0 {
			return nil, fmt.Errorf("variable: Discrete(%q): negative odds %v", name, o)
		}
		sum += o
	}
	if sum == 0 {
		return nil, fmt.Errorf("variable: Discrete(%q): all odds are zero", name)
	}
	class := ClassDiscreteQualitative
	if kind == DiscreteNumeric {
		class = ClassDiscreteNumeric
	}
	out := make([]*Variable, len(values))
	for i, v := range values {
		if kind == DiscreteQualitative && !v.IsString() {
			return nil, fmt.Errorf("variable: Discrete(%q): qualitative value %d is not a string", name, i)
		}
		if kind == DiscreteNumeric && v.IsString() {
			return nil, fmt.Errorf("variable: Discrete(%q): numeric value %d is not a number", name, i)
		}
		out[i] = &Variable{
			Name: name, Class: class, Expectation: v, Variance: 0,
			Lower: v, Upper: v, Probability: odds[i] / sum,
		}
	}
	return out, nil
}

// --- inner points ---

// InnerPoints returns the lazily-computed N representative sample values
// for this variable (spec.md section 4.1's "Inner points").
func (v *Variable) InnerPoints() []float64 {
	v.pointsOnce.Do(func() {
		if v.pdf == nil {
			val := 0.0
			if !v.Expectation.IsString() {
				val = v.Expectation.Number()
			}
			pts := make([]float64, innerPointCount)
			for i := range pts {
				pts[i] = val
			}
			v.points = pts
			return
		}
		v.points = rejectionSampleInnerPoints(v.pdf, v.Lower.Number(), v.Upper.Number(), v.rng)
	})
	return v.points
}

func rejectionSampleInnerPoints(pdf func(float64) float64, lo, hi float64, rng *rand.Rand) []float64 {
	const gridSize = 256
	maxPDF := 0.0
	if hi > lo {
		step := (hi - lo) / gridSize
		for i := 0; i <= gridSize; i++ {
			x := lo + float64(i)*step
			if p := pdf(x); p > maxPDF {
				maxPDF = p
			}
		}
	} else {
		maxPDF = pdf(lo)
	}
	if maxPDF <= 0 {
		maxPDF = 1
	}
	pts := make([]float64, 0, innerPointCount)
	const maxAttempts = 200000
	attempts := 0
	for len(pts) < innerPointCount && attempts < maxAttempts {
		attempts++
		x := lo + rng.Float64()*(hi-lo)
		y := rng.Float64() * maxPDF
		if y <= pdf(x) {
			pts = append(pts, x)
		}
	}
	for len(pts) < innerPointCount {
		// Fallback for pathological densities: fill with a uniform grid so
		// downstream arithmetic never sees a short slice.
		frac := float64(len(pts)) / float64(innerPointCount)
		pts = append(pts, lo+frac*(hi-lo))
	}
	return pts
}

// --- comparisons (spec.md section 4.1, "Comparisons") ---

// contains reports whether x lands inside the closed interval
// [iv.Lower, iv.Upper].
func contains(iv *Variable, x Value) bool {
	return iv.Lower.lessEq(x) && x.lessEq(iv.Upper)
}

// overlap implements the source's asymmetric-by-construction-but-applied-
// symmetrically overlap test: true iff either A's endpoints land inside
// B's interval, or B's endpoints land inside A's.
func overlap(a, b *Variable) bool {
	return contains(b, a.Lower) || contains(b, a.Upper) || contains(a, b.Lower) || contains(a, b.Upper)
}

// lessCore implements `A < B` ≡ `u_A < l_B ∧ ¬overlap(A,B)`.
func lessCore(a, b *Variable) bool {
	return a.Upper.less(b.Lower) && !overlap(a, b)
}

// greaterCore implements `A > B`, the mirror image of lessCore.
func greaterCore(a, b *Variable) bool {
	return b.Upper.less(a.Lower) && !overlap(a, b)
}

// Less implements `A < B`.
func Less(a, b *Variable) *Variable {
	return FixedBool(fmt.Sprintf("(%s<%s)", a.Name, b.Name), lessCore(a, b))
}

// Greater implements `A > B`.
func Greater(a, b *Variable) *Variable {
	return FixedBool(fmt.Sprintf("(%s>%s)", a.Name, b.Name), greaterCore(a, b))
}

// Equal implements `A = B` ≡ overlap(A,B).
func Equal(a, b *Variable) *Variable {
	return FixedBool(fmt.Sprintf("(%s=%s)", a.Name, b.Name), overlap(a, b))
}

// LessEq implements `A <= B` ≡ (A<B) ∨ overlap(A,B).
func LessEq(a, b *Variable) *Variable {
	return FixedBool(fmt.Sprintf("(%s<=%s)", a.Name, b.Name), lessCore(a, b) || overlap(a, b))
}

// GreaterEq implements `A >= B` ≡ (A>B) ∨ overlap(A,B).
func GreaterEq(a, b *Variable) *Variable {
	return FixedBool(fmt.Sprintf("(%s>=%s)", a.Name, b.Name), greaterCore(a, b) || overlap(a, b))
}

// NotEqual implements `A != B` (the evaluator's not_equal_operation).
func NotEqual(a, b *Variable) *Variable {
	return FixedBool(fmt.Sprintf("(%s!=%s)", a.Name, b.Name), !overlap(a, b))
}

// --- arithmetic (spec.md section 4.1, "Operators") ---

func sampleVariance(xs []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= n
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return sumSq / n
}

func mean(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// Add implements `A + B`.
func Add(a, b *Variable) *Variable {
	ap, bp := a.InnerPoints(), b.InnerPoints()
	pts := make([]float64, len(ap))
	for i := range pts {
		pts[i] = ap[i] + bp[i]
	}
	return &Variable{
		Name: fmt.Sprintf("(%s+%s)", a.Name, b.Name), Class: ClassOpResult,
		Expectation: Num(a.Expectation.Number() + b.Expectation.Number()),
		Variance:    sampleVariance(pts),
		Lower:       Num(a.Lower.Number() + b.Lower.Number()),
		Upper:       Num(a.Upper.Number() + b.Upper.Number()),
		Probability: 1,
		points:      pts,
	}
}

// Sub implements `A - B`. The upper bound is `u_A + l_B`, not
// `u_A - l_B` — preserved verbatim from the source per spec.md section 9
// ("The subtraction support bound is asymmetric; the right endpoint
// appears to be a typo in the source but is tested as-is").
// NOTE: do not "fix" this asymmetry; it is flagged, not a bug to resolve.
func Sub(a, b *Variable) *Variable {
	ap, bp := a.InnerPoints(), b.InnerPoints()
	pts := make([]float64, len(ap))
	for i := range pts {
		pts[i] = ap[i] - bp[i]
	}
	return &Variable{
		Name: fmt.Sprintf("(%s-%s)", a.Name, b.Name), Class: ClassOpResult,
		Expectation: Num(a.Expectation.Number() - b.Expectation.Number()),
		Variance:    sampleVariance(pts),
		Lower:       Num(a.Lower.Number() - b.Upper.Number()),
		Upper:       Num(a.Upper.Number() + b.Lower.Number()),
		Probability: 1,
		points:      pts,
	}
}

// Mul implements `A * B`.
func Mul(a, b *Variable) *Variable {
	ap, bp := a.InnerPoints(), b.InnerPoints()
	pts := make([]float64, len(ap))
	for i := range pts {
		pts[i] = ap[i] * bp[i]
	}
	corners := []float64{
		a.Lower.Number() * b.Lower.Number(), a.Lower.Number() * b.Upper.Number(),
		a.Upper.Number() * b.Lower.Number(), a.Upper.Number() * b.Upper.Number(),
	}
	lo, hi := minMax(corners)
	return &Variable{
		Name: fmt.Sprintf("(%s*%s)", a.Name, b.Name), Class: ClassOpResult,
		Expectation: Num(mean(pts)),
		Variance:    sampleVariance(pts),
		Lower:       Num(lo),
		Upper:       Num(hi),
		Probability: 1,
		points:      pts,
	}
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

func intervalContainsZero(v *Variable) bool {
	return v.Lower.Number() <= 0 && v.Upper.Number() >= 0
}

func divideOne(x, y float64) float64 {
	if y == 0 {
		if x == 0 {
			return 0
		}
		if x > 0 {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	return x / y
}

// Div implements `A / B`.
func Div(a, b *Variable) *Variable {
	ap, bp := a.InnerPoints(), b.InnerPoints()
	pts := make([]float64, len(ap))
	for i := range pts {
		pts[i] = divideOne(ap[i], bp[i])
	}
	var lo, hi float64
	if intervalContainsZero(b) {
		lo, hi = math.Inf(-1), math.Inf(1)
	} else {
		corners := []float64{
			divideOne(a.Lower.Number(), b.Lower.Number()), divideOne(a.Lower.Number(), b.Upper.Number()),
			divideOne(a.Upper.Number(), b.Lower.Number()), divideOne(a.Upper.Number(), b.Upper.Number()),
		}
		lo, hi = minMax(corners)
	}
	return &Variable{
		Name: fmt.Sprintf("(%s/%s)", a.Name, b.Name), Class: ClassOpResult,
		Expectation: Num(mean(pts)),
		Variance:    sampleVariance(pts),
		Lower:       Num(lo),
		Upper:       Num(hi),
		Probability: 1,
		points:      pts,
	}
}

// Pow implements `A ^ B`. Raises an error if the base is negative and
// the exponent is non-integer, per spec.md section 4.1.
func Pow(a, b *Variable) (*Variable, error) {
	ap, bp := a.InnerPoints(), b.InnerPoints()
	pts := make([]float64, len(ap))
	for i := range pts {
		if ap[i] < 0 && bp[i] != math.Trunc(bp[i]) {
			return nil, fmt.Errorf("variable: Pow(%q, %q): negative base %v to non-integer exponent %v", a.Name, b.Name, ap[i], bp[i])
		}
		pts[i] = math.Pow(ap[i], bp[i])
	}
	corners := []float64{
		math.Pow(a.Lower.Number(), b.Lower.Number()), math.Pow(a.Lower.Number(), b.Upper.Number()),
		math.Pow(a.Upper.Number(), b.Lower.Number()), math.Pow(a.Upper.Number(), b.Upper.Number()),
	}
	lo, hi := minMax(corners)
	return &Variable{
		Name: fmt.Sprintf("(%s^%s)", a.Name, b.Name), Class: ClassOpResult,
		Expectation: Num(mean(pts)),
		Variance:    sampleVariance(pts),
		Lower:       Num(lo),
		Upper:       Num(hi),
		Probability: 1,
		points:      pts,
	}, nil
}

// sortedCopy returns a sorted copy of xs (used when computing split-point
// boundary lists in continuous.go).
func sortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}
