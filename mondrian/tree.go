package mondrian

import (
	"math"

	"github.com/JonathanWenger/streambasedal/dataset"
)

/*
Tree is a single Mondrian tree. It owns its root node, tracks the
number of classes discovered so far and keeps a non-owning pointer to
the leaf with the largest expected probability mass, which normalizes
the density term of confidence scores.

Trees are grown by NewForest and driven through their owning Forest;
they can also be used standalone in tests.
*/
type Tree struct {
	settings   *Settings
	rng        *RandomGenerator
	featureDim int

	root            *Node
	numClasses      int
	dataCounter     int
	maxProbMassLeaf *Node
}

/*
NewTree returns an empty tree. The root starts as a leaf with an
unbounded budget.
*/
func NewTree(settings *Settings, featureDim int, rng *RandomGenerator) *Tree {
	t := &Tree{
		settings:   settings,
		rng:        rng,
		featureDim: featureDim,
	}
	t.root = newNode(t, nil, math.Inf(1), 0)
	t.maxProbMassLeaf = t.root
	return t
}

/*
Update grows the tree with one training sample. A label beyond the
known class range lengthens every node's histogram first. After the
structural update the root pointer is refreshed, in case an extension
inserted a new ancestor above it, and the expected probability masses
are recomputed.
*/
func (t *Tree) Update(s dataset.Sample) {
	if s.Y+1 > t.numClasses {
		t.numClasses = s.Y + 1
		t.root.addNewClass()
	}
	t.dataCounter++
	t.root.update(s)
	t.root = t.root.rootNode()
	t.root.updateExpectedProbMass()
}

/*
Classify accumulates the tree's smoothed posterior for the sample into
predProb, which must have length NumClasses, fills conf with the
reached leaf's confidence quantities, and returns the predicted class.
It returns -2 when the posterior carries no decision (all components
equal) and -1 when no component is positive.
*/
func (t *Tree) Classify(s dataset.Sample, predProb []float64, conf *Confidence) int {
	t.root.classify(s.X, predProb, 1.0, conf)
	return decideClass(predProb)
}

// NumClasses returns the number of classes discovered so far.
func (t *Tree) NumClasses() int {
	return t.numClasses
}

// DataCounter returns the number of samples the tree was trained on.
func (t *Tree) DataCounter() int {
	return t.dataCounter
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node {
	return t.root
}

/*
decideClass returns the index of the largest component, ties broken
toward the lowest index. All components equal means no decision and
yields -2; no positive component yields -1.
*/
func decideClass(predProb []float64) int {
	if equalElements(predProb) {
		return -2
	}
	predClass := -1
	best := 0.0
	for i, p := range predProb {
		if p > best {
			best = p
			predClass = i
		}
	}
	return predClass
}

/*
equalElements reports whether all components of the vector are equal.
A vector with fewer than two components never counts as all-equal: a
single-class posterior is still a decision.
*/
func equalElements(v []float64) bool {
	if len(v) < 2 {
		return false
	}
	for _, e := range v[1:] {
		if e != v[0] {
			return false
		}
	}
	return true
}
