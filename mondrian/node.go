package mondrian

import (
	"fmt"
	"math"

	"github.com/JonathanWenger/streambasedal/dataset"
	"gonum.org/v1/gonum/floats"
)

/*
Node is one region of a Mondrian tree's partition. Children are owned
by their parent; the parent link is a non-owning back reference. A
node is a leaf until a split is sampled for it, after which left holds
the half with coordinates at or below the split location and right the
half above it.
*/
type Node struct {
	tree   *Tree
	parent *Node
	left   *Node
	right  *Node

	block       *Block
	counts      []int
	dataCounter int
	isLeaf      bool

	splitDim     int
	splitLoc     float64
	budget       float64
	maxSplitCost float64
	depth        int

	// Beta pseudo-counts of the decision distribution: alpha counts
	// routings to the right child, beta to the left.
	alpha float64
	beta  float64
	// Expected fraction of probability mass flowing through this
	// node given the decision distributions along its ancestry.
	expectedProbMass float64
	// Posterior computed at this node during the last
	// classification descent; children use it as their prior mean.
	predProb []float64
}

func newNode(t *Tree, parent *Node, budget float64, depth int) *Node {
	return &Node{
		tree:         t,
		parent:       parent,
		block:        NewBlock(t.featureDim),
		isLeaf:       true,
		budget:       budget,
		maxSplitCost: budget,
		depth:        depth,
		predProb:     make([]float64, t.numClasses),
	}
}

func newNodeWithBounds(t *Tree, parent *Node, budget float64, depth int, min, max []float64) *Node {
	n := newNode(t, parent, budget, depth)
	n.block = NewBlockWithBounds(min, max)
	return n
}

/*
update routes a training sample into the subtree below this node. The
root's very first sample initializes its block and split cost; every
later sample extends the Mondrian block structure.
*/
func (n *Node) update(s dataset.Sample) {
	if n.parent == nil && n.dataCounter < 1 {
		n.block.ExtendTo(s.X)
		n.sampleMondrianBlock(s, false)
		n.addTrainingPoint(s)
		return
	}
	n.extendMondrianBlock(s)
}

/*
classify descends from this node accumulating the smoothed posterior
for x into predProb. probNotSeparatedYet is the probability that x has
not branched off into its own node above this one. At the reached
leaf, conf is filled with the quantities confidence scoring needs.
*/
func (n *Node) classify(x []float64, predProb []float64, probNotSeparatedYet float64, conf *Confidence) {
	eta := n.block.Escape(x)
	if n.isLeaf {
		conf.Distance = n.block.EuclideanEscape(x)
		if n.parent != nil {
			conf.NumberOfPoints = n.parent.dataCounter
		} else {
			conf.NumberOfPoints = n.dataCounter
		}
		if maxLeaf := n.tree.maxProbMassLeaf; maxLeaf != nil && maxLeaf.expectedProbMass > 0 {
			conf.NormalizedDensity = n.expectedProbMass / maxLeaf.expectedProbMass
		}
	}

	// Probability that x branches off into its own node here: the
	// probability that a split exists in the node's budget window
	// outside the training block.
	probNotSeparatedNow := 1.0
	if eta > 0 {
		probNotSeparatedNow = math.Exp(-eta * n.maxSplitCost)
	}
	probSeparatedNow := 1 - probNotSeparatedNow

	// Expected discount of the interpolated Kneser-Ney smoothing,
	// averaging over the time of cut, which is a truncated
	// exponential with rate eta.
	gamma := n.tree.settings.DiscountParam
	var discount float64
	if eta > 0 && n.maxSplitCost > 0 {
		discount = (eta / (eta + gamma)) *
			(-math.Expm1(-(eta+gamma)*n.maxSplitCost)) /
			(-math.Expm1(-eta*n.maxSplitCost))
	} else if gamma == 0 {
		// 0 * Inf is NaN; a zero discount parameter means no
		// discounting at paused nodes either.
		discount = 1
	} else {
		discount = math.Exp(-gamma * n.maxSplitCost)
	}

	// Chinese-restaurant counts: customers at leaves, tables at
	// internal nodes.
	cnt := n.counts
	if !n.isLeaf {
		cnt = minOne(n.counts)
	}
	base := n.priorMean()
	pHere := posteriorMean(cnt, discount, base)
	n.storePredProb(pHere)

	for i := range predProb {
		predProb[i] += probSeparatedNow * probNotSeparatedYet * pHere[i]
	}
	probNotSeparatedYet *= probNotSeparatedNow

	if n.tree.settings.Debug {
		for i, p := range predProb {
			if math.IsNaN(p) {
				panic(fmt.Sprintf("mondrian: NaN posterior component %d at depth %d", i, n.depth))
			}
		}
	}

	if !n.isLeaf {
		if x[n.splitDim] <= n.splitLoc {
			n.left.classify(x, predProb, probNotSeparatedYet, conf)
		} else {
			n.right.classify(x, predProb, probNotSeparatedYet, conf)
		}
		return
	}
	if eta <= 0 {
		// The query lies inside the leaf's block; the remaining
		// mass stays here.
		for i := range predProb {
			predProb[i] += probNotSeparatedYet * pHere[i]
		}
	}
}

/*
priorMean returns the prior mean for this node's posterior: the
parent's last-computed posterior, or the uniform distribution at the
root.
*/
func (n *Node) priorMean() []float64 {
	k := n.tree.numClasses
	if n.parent == nil {
		base := make([]float64, k)
		for i := range base {
			base[i] = 1 / float64(k)
		}
		return base
	}
	return n.parent.predProb
}

/*
posteriorMean computes the smoothed class posterior from the given
counts, discount and prior mean. With no observations the posterior
collapses to the prior.
*/
func posteriorMean(cnt []int, discount float64, base []float64) []float64 {
	p := make([]float64, len(cnt))
	var numCustomers, numTables float64
	for _, c := range cnt {
		numCustomers += float64(c)
		if c > 0 {
			numTables++
		}
	}
	if numCustomers == 0 {
		copy(p, base)
		return p
	}
	for i, c := range cnt {
		tablesK := 0.0
		if c > 0 {
			tablesK = 1.0
		}
		p[i] = (float64(c) - discount*tablesK + discount*numTables*base[i]) / numCustomers
	}
	return p
}

func (n *Node) storePredProb(p []float64) {
	if len(n.predProb) != len(p) {
		n.predProb = make([]float64, len(p))
	}
	copy(n.predProb, p)
}

/*
sampleMondrianBlock draws a split cost for this node and, when the
budget allows it, turns the node into an internal node with two fresh
child leaves, recursing into the child that contains the sample. A
node whose routed samples all share a label, or whose extended block
has zero linear volume, pauses instead: its split cost is set to its
whole remaining budget.
*/
func (n *Node) sampleMondrianBlock(s dataset.Sample, createNewLeaf bool) {
	minBS, maxBS := n.block.RangeWith(s.X)
	diff := make([]float64, len(minBS))
	floats.SubTo(diff, maxBS, minBS)
	dimRange := floats.Sum(diff)

	var splitCost float64
	if n.checkSameLabelsWith(s) || dimRange == 0 {
		splitCost = math.Inf(1)
		n.maxSplitCost = n.budget
	} else {
		splitCost = n.tree.rng.Exponential(dimRange)
		n.maxSplitCost = splitCost
	}

	if n.block.SumDimRange() == 0 {
		createNewLeaf = true
	}

	newBudget := n.budget - splitCost
	if newBudget < 0 {
		newBudget = 0
	}

	if n.budget <= splitCost {
		n.isLeaf = true
		return
	}

	n.isLeaf = false
	n.splitDim = n.tree.rng.Discrete(diff)
	n.splitLoc = n.tree.rng.Uniform(minBS[n.splitDim], maxBS[n.splitDim])
	n.setDecisionDistrParams(minBS, maxBS)

	leftMin, leftMax := n.sideBounds(s.X, true)
	rightMin, rightMax := n.sideBounds(s.X, false)
	n.left = newNodeWithBounds(n.tree, n, newBudget, n.depth+1, leftMin, leftMax)
	n.right = newNodeWithBounds(n.tree, n, newBudget, n.depth+1, rightMin, rightMax)

	if s.X[n.splitDim] > n.splitLoc {
		n.left.initPosteriorFrom(n)
		if createNewLeaf {
			n.right.initPosteriorFrom(nil)
		} else {
			n.right.initPosteriorFrom(n)
		}
		n.right.sampleMondrianBlock(s, true)
		n.right.addTrainingPoint(s)
	} else {
		n.right.initPosteriorFrom(n)
		if createNewLeaf {
			n.left.initPosteriorFrom(nil)
		} else {
			n.left.initPosteriorFrom(n)
		}
		n.left.sampleMondrianBlock(s, true)
		n.left.addTrainingPoint(s)
	}
}

/*
sideBounds computes the bounds of the child block on one side of this
node's split from the sample and the current block corners that fall
on that side.
*/
func (n *Node) sideBounds(x []float64, left bool) (min, max []float64) {
	onSide := func(v float64) bool {
		if left {
			return v <= n.splitLoc
		}
		return v > n.splitLoc
	}
	var points [][]float64
	for _, p := range [][]float64{x, n.block.Min(), n.block.Max()} {
		if onSide(p[n.splitDim]) {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		panic("mondrian: no points on one side of a sampled split")
	}
	min = append([]float64(nil), points[0]...)
	max = append([]float64(nil), points[0]...)
	for _, p := range points[1:] {
		for i := range p {
			min[i] = math.Min(min[i], p[i])
			max[i] = math.Max(max[i], p[i])
		}
	}
	return min, max
}

/*
extendMondrianBlock grows the tree with a new training sample. When
the drawn outer split cost does not fit below this node's own split
cost, the sample is absorbed: the block is extended, the histogram
updated, and the sample routed further down (splitting a leaf whose
labels become mixed). Otherwise a new ancestor is inserted between
this node and its parent, with a fresh paused leaf sibling holding
the sample.
*/
func (n *Node) extendMondrianBlock(s dataset.Sample) {
	eLower, eUpper := n.block.EscapeComponents(s.X)
	expoParam := floats.Sum(eLower) + floats.Sum(eUpper)

	var splitCost float64
	if expoParam <= 0 {
		splitCost = math.Inf(1)
	} else {
		splitCost = n.tree.rng.Exponential(expoParam)
	}
	if n.pauseMondrian() {
		if n.tree.settings.Debug && !n.isLeaf {
			panic("mondrian: paused node is not a leaf")
		}
		splitCost = math.Inf(1)
	}

	if splitCost >= n.maxSplitCost {
		if !n.isLeaf {
			n.block.ExtendTo(s.X)
			n.addTrainingPoint(s)
			if s.X[n.splitDim] <= n.splitLoc {
				n.incrementDecisionDistrParams(true)
				n.left.extendMondrianBlock(s)
			} else {
				n.incrementDecisionDistrParams(false)
				n.right.extendMondrianBlock(s)
			}
			return
		}
		if !n.checkSameLabelsWith(s) {
			n.sampleMondrianBlock(s, false)
		}
		// Extend after sampling so fresh children keep the block
		// bounds they were created with.
		n.block.ExtendTo(s.X)
		n.addTrainingPoint(s)
		return
	}

	// The drawn cost fits the budget: insert a new ancestor above
	// this node with a split separating the sample from the block.
	minBlock, maxBlock := n.block.RangeWith(s.X)
	newParent := newNodeWithBounds(n.tree, n.parent, n.budget, n.depth, minBlock, maxBlock)
	newParent.initPosteriorFromWith(n, s)

	feat := make([]float64, len(eLower))
	floats.AddTo(feat, eLower, eUpper)
	splitDim := n.tree.rng.Discrete(feat)
	// A collapsed dimension cannot host a split; resample a bounded
	// number of times, falling back to a draw proportional to the
	// lower bounds.
	for i := 0; i < n.block.FeatureDim(); i++ {
		if minBlock[splitDim] != maxBlock[splitDim] {
			break
		}
		splitDim = n.tree.rng.Discrete(minBlock)
	}
	var splitLoc float64
	if s.X[splitDim] > n.block.Max()[splitDim] {
		splitLoc = n.tree.rng.Uniform(n.block.Max()[splitDim], s.X[splitDim])
	} else {
		splitLoc = n.tree.rng.Uniform(s.X[splitDim], n.block.Min()[splitDim])
	}

	newBudget := n.budget - splitCost
	childIsRight := s.X[splitDim] > splitLoc
	child := newNodeWithBounds(n.tree, newParent, newBudget, n.depth+1, s.X, s.X)
	if childIsRight {
		newParent.left = n
		newParent.right = child
	} else {
		newParent.left = child
		newParent.right = n
	}
	newParent.isLeaf = false
	if n.parent != nil {
		if n.parent.left == n {
			n.parent.left = newParent
		} else {
			n.parent.right = newParent
		}
	}
	n.parent = newParent

	child.initPosteriorFromWith(nil, s)
	child.sampleMondrianBlock(s, false)

	n.budget = newBudget
	newParent.maxSplitCost = splitCost
	newParent.splitDim = splitDim
	newParent.splitLoc = splitLoc
	n.maxSplitCost -= splitCost
	n.updateDepth()
	newParent.setDecisionDistrParams(minBlock, maxBlock)
}

/*
checkSameLabels reports whether all samples below this node share a
label. A node holding more than MaxSamplesInOneNode samples is never
considered same-labeled, so it becomes splittable again.
*/
func (n *Node) checkSameLabels() bool {
	nonZero := 0
	for _, c := range n.counts {
		if c > 0 {
			nonZero++
		}
	}
	same := nonZero == 1 || len(n.counts) <= 1
	if ms := n.tree.settings.MaxSamplesInOneNode; ms > 0 && n.dataCounter > ms {
		same = false
	}
	return same
}

/*
checkSameLabelsWith reports whether the node's samples and the given
sample all share one label.
*/
func (n *Node) checkSameLabelsWith(s dataset.Sample) bool {
	nonZero := 0
	for _, c := range n.counts {
		if c > 0 {
			nonZero++
		}
	}
	switch {
	case nonZero == 0:
		return true
	case nonZero == 1:
		if len(n.counts) > 1 {
			return n.counts[s.Y] > 0
		}
		return true
	default:
		return false
	}
}

// pauseMondrian reports whether the node should stop splitting.
func (n *Node) pauseMondrian() bool {
	return n.checkSameLabels()
}

// addTrainingPoint records the sample in the node's histogram.
func (n *Node) addTrainingPoint(s dataset.Sample) {
	if n.tree.settings.Debug && s.Y >= len(n.counts) {
		panic(fmt.Sprintf("mondrian: label %d outside histogram of length %d", s.Y, len(n.counts)))
	}
	n.dataCounter++
	n.counts[s.Y]++
}

/*
initPosteriorFrom initializes the node's histogram: zeroed at the
current class count when src is nil, otherwise copied from src.
*/
func (n *Node) initPosteriorFrom(src *Node) {
	if src == nil {
		n.counts = make([]int, n.tree.numClasses)
		n.dataCounter = 0
		return
	}
	n.counts = append([]int(nil), src.counts...)
	n.dataCounter = src.dataCounter
}

func (n *Node) initPosteriorFromWith(src *Node, s dataset.Sample) {
	n.initPosteriorFrom(src)
	n.addTrainingPoint(s)
}

/*
setDecisionDistrParams sets the Beta prior of the decision
distribution from the linear volumes of the two halves of the given
block under the node's split.
*/
func (n *Node) setDecisionDistrParams(minBlock, maxBlock []float64) {
	var volRight, volLeft float64
	for i := range minBlock {
		lo, hi := minBlock[i], maxBlock[i]
		if i == n.splitDim {
			volRight += hi - n.splitLoc
			volLeft += n.splitLoc - lo
			continue
		}
		volRight += hi - lo
		volLeft += hi - lo
	}
	h := n.tree.settings.DecisionPriorHyperparam
	scale := h * float64((n.depth+1)*(n.depth+1)) / (volLeft + volRight)
	n.alpha = scale * volRight
	n.beta = scale * volLeft
	if n.tree.settings.Debug {
		if !(n.alpha > 0 && n.alpha < math.Inf(1)) || !(n.beta > 0 && n.beta < math.Inf(1)) {
			panic(fmt.Sprintf("mondrian: invalid decision parameters alpha=%v beta=%v", n.alpha, n.beta))
		}
	}
}

func (n *Node) incrementDecisionDistrParams(left bool) {
	if left {
		n.beta++
		return
	}
	n.alpha++
}

/*
updateExpectedProbMass recomputes the expected probability mass of the
tree from this root node down. The root carries mass 1; every child
scales its parent's mass by its share of the parent's decision
distribution. The tree's pointer to the leaf with the largest mass is
rebuilt from scratch on every traversal: the comparison baseline is a
local best rather than the previous round's pointer, whose stored
mass is stale until its node is revisited.
*/
func (n *Node) updateExpectedProbMass() {
	n.expectedProbMass = 1
	if n.isLeaf {
		n.tree.maxProbMassLeaf = n
		return
	}
	var maxLeaf *Node
	n.left.updateExpectedProbMassBelow(true, &maxLeaf)
	n.right.updateExpectedProbMassBelow(false, &maxLeaf)
	n.tree.maxProbMassLeaf = maxLeaf
}

func (n *Node) updateExpectedProbMassBelow(isLeft bool, maxLeaf **Node) {
	alpha := n.parent.alpha
	beta := n.parent.beta
	if isLeft {
		n.expectedProbMass = n.parent.expectedProbMass * beta / (alpha + beta)
	} else {
		n.expectedProbMass = n.parent.expectedProbMass * alpha / (alpha + beta)
	}
	if n.isLeaf {
		if *maxLeaf == nil || n.expectedProbMass > (*maxLeaf).expectedProbMass {
			*maxLeaf = n
		}
		return
	}
	n.left.updateExpectedProbMassBelow(true, maxLeaf)
	n.right.updateExpectedProbMassBelow(false, maxLeaf)
}

// updateDepth pushes the subtree one level deeper.
func (n *Node) updateDepth() {
	n.depth++
	if n.left != nil {
		n.left.updateDepth()
	}
	if n.right != nil {
		n.right.updateDepth()
	}
}

/*
addNewClass lengthens the histograms of the subtree to the tree's
current class count, zero-filling the new entries.
*/
func (n *Node) addNewClass() {
	k := n.tree.numClasses
	for len(n.counts) < k {
		n.counts = append(n.counts, 0)
	}
	for len(n.predProb) < k {
		n.predProb = append(n.predProb, 0)
	}
	if n.left != nil {
		n.left.addNewClass()
	}
	if n.right != nil {
		n.right.addNewClass()
	}
}

// rootNode walks up the parent chain and returns the tree's root.
func (n *Node) rootNode() *Node {
	if n.parent != nil {
		return n.parent.rootNode()
	}
	return n
}

func minOne(counts []int) []int {
	out := make([]int, len(counts))
	for i, c := range counts {
		if c > 1 {
			out[i] = 1
		} else {
			out[i] = c
		}
	}
	return out
}
