package classifier

import (
	"gonum.org/v1/gonum/mat"

	"github.com/urbanrisk/crimeml/core/model"
	"github.com/urbanrisk/crimeml/pkg/errors"
)

// TreeNode is one node of a fitted decision tree. Leaf nodes carry the
// class distribution of the training samples that reached them.
//
// Fields are exported for gob encoding.
type TreeNode struct {
	Feature   int     // split feature, -1 for leaves
	Threshold float64 // go left when value <= threshold
	Left      *TreeNode
	Right     *TreeNode
	Counts    []int // per-class sample counts at this node
}

// IsLeaf reports whether the node is a leaf.
func (n *TreeNode) IsLeaf() bool { return n.Feature < 0 }

// DecisionTree is a CART classifier splitting on Gini impurity.
//
// Fields are exported for gob encoding.
type DecisionTree struct {
	State *model.StateManager

	MaxDepth int
	MinSplit int

	Root        *TreeNode
	ClassList   []int
	NFeatures   int
	Importances []float64
}

// NewDecisionTree creates a decision tree classifier from resolved
// options.
func NewDecisionTree(opts Options) *DecisionTree {
	return &DecisionTree{
		State:    model.NewStateManager(),
		MaxDepth: opts.MaxDepth,
		MinSplit: opts.MinSplit,
	}
}

func (dt *DecisionTree) Name() string { return DecisionTreeType.String() }

// Classes returns the sorted class labels seen during fitting.
func (dt *DecisionTree) Classes() []int { return dt.ClassList }

// GetParams returns the resolved hyperparameters.
func (dt *DecisionTree) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         dt.MaxDepth,
		"min_samples_split": dt.MinSplit,
	}
}

// Fit grows the tree top-down until depth, purity, or minimum split size
// stops a branch.
func (dt *DecisionTree) Fit(X, y mat.Matrix) error {
	if err := validateXY("DecisionTree.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	dt.ClassList = extractClasses(y)
	dt.NFeatures = nFeatures
	dt.Importances = make([]float64, nFeatures)

	classIndex := make(map[int]int, len(dt.ClassList))
	for i, c := range dt.ClassList {
		classIndex[c] = i
	}
	labels := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		labels[i] = classIndex[int(y.At(i, 0))]
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	dt.Root = dt.grow(X, labels, indices, 0, nSamples)

	// Normalize impurity decreases into importances.
	total := 0.0
	for _, imp := range dt.Importances {
		total += imp
	}
	if total > 0 {
		for j := range dt.Importances {
			dt.Importances[j] /= total
		}
	}

	dt.State.SetFitted()
	dt.State.SetDimensions(nFeatures, nSamples)
	return nil
}

func (dt *DecisionTree) grow(X mat.Matrix, labels, indices []int, depth, total int) *TreeNode {
	counts := make([]int, len(dt.ClassList))
	for _, i := range indices {
		counts[labels[i]]++
	}
	node := &TreeNode{Feature: -1, Counts: counts}

	if depth >= dt.MaxDepth || len(indices) < dt.MinSplit || gini(counts, len(indices)) == 0 {
		return node
	}

	feature, threshold, gain := dt.bestSplit(X, labels, indices, counts)
	if feature < 0 {
		return node
	}

	var left, right []int
	for _, i := range indices {
		if X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return node
	}

	dt.Importances[feature] += gain * float64(len(indices)) / float64(total)
	node.Feature = feature
	node.Threshold = threshold
	node.Left = dt.grow(X, labels, left, depth+1, total)
	node.Right = dt.grow(X, labels, right, depth+1, total)
	return node
}

// bestSplit scans every feature and candidate threshold for the largest
// Gini gain. Candidate thresholds are midpoints between consecutive
// distinct values.
func (dt *DecisionTree) bestSplit(X mat.Matrix, labels, indices []int, parentCounts []int) (int, float64, float64) {
	n := len(indices)
	parentGini := gini(parentCounts, n)

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	for j := 0; j < dt.NFeatures; j++ {
		ordered := append([]int(nil), indices...)
		sortByFeature(X, ordered, j)

		leftCounts := make([]int, len(dt.ClassList))
		rightCounts := append([]int(nil), parentCounts...)

		for k := 0; k < n-1; k++ {
			i := ordered[k]
			leftCounts[labels[i]]++
			rightCounts[labels[i]]--

			v, next := X.At(i, j), X.At(ordered[k+1], j)
			if v == next {
				continue
			}

			nLeft, nRight := k+1, n-k-1
			weighted := (float64(nLeft)*gini(leftCounts, nLeft) + float64(nRight)*gini(rightCounts, nRight)) / float64(n)
			if gain := parentGini - weighted; gain > bestGain {
				bestGain = gain
				bestFeature = j
				bestThreshold = (v + next) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func sortByFeature(X mat.Matrix, indices []int, feature int) {
	// Insertion sort keeps this allocation-free; split candidate sets are
	// small compared to the full dataset after the first few levels.
	for i := 1; i < len(indices); i++ {
		for k := i; k > 0 && X.At(indices[k], feature) < X.At(indices[k-1], feature); k-- {
			indices[k], indices[k-1] = indices[k-1], indices[k]
		}
	}
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		impurity -= p * p
	}
	return impurity
}

// leaf walks sample i down to its leaf node.
func (dt *DecisionTree) leaf(X mat.Matrix, i int) *TreeNode {
	node := dt.Root
	for !node.IsLeaf() {
		if X.At(i, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// Predict returns the majority class of each sample's leaf.
func (dt *DecisionTree) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !dt.State.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTree", "Predict")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.NFeatures {
		return nil, errors.NewDimensionError("DecisionTree.Predict", dt.NFeatures, nFeatures, 1)
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		counts := dt.leaf(X, i).Counts
		best := 0
		for c := 1; c < len(counts); c++ {
			if counts[c] > counts[best] {
				best = c
			}
		}
		predictions.Set(i, 0, float64(dt.ClassList[best]))
	}
	return predictions, nil
}

// PredictProba returns the class distribution of each sample's leaf.
func (dt *DecisionTree) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if !dt.State.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTree", "PredictProba")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.NFeatures {
		return nil, errors.NewDimensionError("DecisionTree.PredictProba", dt.NFeatures, nFeatures, 1)
	}

	probas := mat.NewDense(nSamples, len(dt.ClassList), nil)
	for i := 0; i < nSamples; i++ {
		counts := dt.leaf(X, i).Counts
		n := 0
		for _, c := range counts {
			n += c
		}
		for c := range counts {
			probas.Set(i, c, float64(counts[c])/float64(n))
		}
	}
	return probas, nil
}

// FeatureImportances returns normalized impurity-decrease importances.
func (dt *DecisionTree) FeatureImportances() []float64 {
	return dt.Importances
}
