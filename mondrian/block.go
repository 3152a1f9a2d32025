package mondrian

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

/*
Block is the axis-aligned bounding box of every training point ever
routed through a node. A fresh block starts with min = +Inf and
max = -Inf so that the first extension sets exact coordinates.
*/
type Block struct {
	min         []float64
	max         []float64
	sumDimRange float64
}

// NewBlock returns an empty block of the given dimensionality.
func NewBlock(featureDim int) *Block {
	b := &Block{
		min: make([]float64, featureDim),
		max: make([]float64, featureDim),
	}
	for i := range b.min {
		b.min[i] = math.Inf(1)
		b.max[i] = math.Inf(-1)
	}
	return b
}

/*
NewBlockWithBounds returns a block with the given bounds. The slices
are copied.
*/
func NewBlockWithBounds(min, max []float64) *Block {
	b := &Block{
		min: append([]float64(nil), min...),
		max: append([]float64(nil), max...),
	}
	b.updateSumDimRange()
	return b
}

// FeatureDim returns the dimensionality of the block.
func (b *Block) FeatureDim() int {
	return len(b.min)
}

// Min returns the lower bounds of the block. The slice is shared.
func (b *Block) Min() []float64 {
	return b.min
}

// Max returns the upper bounds of the block. The slice is shared.
func (b *Block) Max() []float64 {
	return b.max
}

// SumDimRange returns the cached sum of the per-dimension ranges.
func (b *Block) SumDimRange() float64 {
	return b.sumDimRange
}

/*
RangeWith returns the componentwise minimum and maximum of the block
bounds and the given point, without mutating the block.
*/
func (b *Block) RangeWith(x []float64) (min, max []float64) {
	min = make([]float64, len(b.min))
	max = make([]float64, len(b.max))
	for i := range b.min {
		min[i] = math.Min(b.min[i], x[i])
		max[i] = math.Max(b.max[i], x[i])
	}
	return min, max
}

/*
SumDimRangeWith returns the sum of the per-dimension ranges of the
block once extended with the given point.
*/
func (b *Block) SumDimRangeWith(x []float64) float64 {
	min, max := b.RangeWith(x)
	diff := make([]float64, len(min))
	floats.SubTo(diff, max, min)
	return floats.Sum(diff)
}

// ExtendTo grows the block in place to include the given point.
func (b *Block) ExtendTo(x []float64) {
	for i := range b.min {
		b.min[i] = math.Min(b.min[i], x[i])
		b.max[i] = math.Max(b.max[i], x[i])
	}
	b.updateSumDimRange()
}

/*
ExtendBounds grows the block in place to include the given bounds.
*/
func (b *Block) ExtendBounds(min, max []float64) {
	for i := range b.min {
		b.min[i] = math.Min(b.min[i], min[i])
		b.max[i] = math.Max(b.max[i], max[i])
	}
	b.updateSumDimRange()
}

/*
EscapeComponents returns the componentwise distances by which the
point escapes the block below its min and above its max bounds:
eLower = max(0, min-x) and eUpper = max(0, x-max).
*/
func (b *Block) EscapeComponents(x []float64) (eLower, eUpper []float64) {
	eLower = make([]float64, len(b.min))
	eUpper = make([]float64, len(b.max))
	for i := range b.min {
		eLower[i] = math.Max(0, b.min[i]-x[i])
		eUpper[i] = math.Max(0, x[i]-b.max[i])
	}
	return eLower, eUpper
}

/*
Escape returns the total linear distance by which the point lies
outside the block. It is zero when the point is contained.
*/
func (b *Block) Escape(x []float64) float64 {
	eLower, eUpper := b.EscapeComponents(x)
	return floats.Sum(eLower) + floats.Sum(eUpper)
}

/*
EuclideanEscape returns the sum of the Euclidean norms of the lower
and upper escape components of the point.
*/
func (b *Block) EuclideanEscape(x []float64) float64 {
	eLower, eUpper := b.EscapeComponents(x)
	return floats.Norm(eLower, 2) + floats.Norm(eUpper, 2)
}

func (b *Block) updateSumDimRange() {
	var sum float64
	for i := range b.min {
		sum += b.max[i] - b.min[i]
	}
	b.sumDimRange = sum
}
