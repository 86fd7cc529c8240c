// Package tree implements a CART decision-tree classifier with gini or
// entropy impurity, depth and leaf-size limits, class probabilities and
// impurity-based feature importances.
package tree

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

type Criterion string

const (
	Gini    Criterion = "gini"
	Entropy Criterion = "entropy"
)

// Params mirrors the usual CART hyperparameters. MaxDepth 0 grows the tree
// until leaves are pure or too small to split.
type Params struct {
	MaxDepth        int       `json:"max_depth"`
	MinSamplesSplit int       `json:"min_samples_split"`
	MinSamplesLeaf  int       `json:"min_samples_leaf"`
	Criterion       Criterion `json:"criterion"`
	RandomState     int64     `json:"random_state"`
}

func DefaultParams() Params {
	return Params{
		MaxDepth:        10,
		MinSamplesSplit: 20,
		MinSamplesLeaf:  10,
		Criterion:       Gini,
		RandomState:     42,
	}
}

func (p Params) validate() error {
	if p.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", p.MaxDepth)
	}
	if p.MinSamplesSplit < 2 {
		return fmt.Errorf("min_samples_split must be >= 2, got %d", p.MinSamplesSplit)
	}
	if p.MinSamplesLeaf < 1 {
		return fmt.Errorf("min_samples_leaf must be >= 1, got %d", p.MinSamplesLeaf)
	}
	if p.Criterion != Gini && p.Criterion != Entropy {
		return fmt.Errorf("criterion must be gini or entropy, got %q", p.Criterion)
	}
	return nil
}

// Node is either a split (Left and Right set) or a leaf.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      *Node     `json:"left,omitempty"`
	Right     *Node     `json:"right,omitempty"`
	Counts    []float64 `json:"counts"`
	Samples   int       `json:"samples"`
	Impurity  float64   `json:"impurity"`
}

func (n *Node) IsLeaf() bool { return n.Left == nil }

// Classifier is a fitted tree. It is immutable and safe for concurrent
// prediction.
type Classifier struct {
	Params      Params    `json:"params"`
	NFeatures   int       `json:"n_features"`
	NClasses    int       `json:"n_classes"`
	Root        *Node     `json:"root"`
	Importances []float64 `json:"feature_importances"`
}

var ErrEmptyDataset = errors.New("tree: empty training set")

// Fit grows a tree on X (rows of equal width) and labels y in [0, k).
func Fit(X [][]float64, y []int, params Params) (*Classifier, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("tree: %d rows but %d labels", len(X), len(y))
	}

	nFeatures := len(X[0])
	nClasses := 0
	for i, row := range X {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("tree: row %d has %d features, want %d", i, len(row), nFeatures)
		}
		if y[i] < 0 {
			return nil, fmt.Errorf("tree: negative label %d at row %d", y[i], i)
		}
		if y[i]+1 > nClasses {
			nClasses = y[i] + 1
		}
	}
	if nClasses < 2 {
		nClasses = 2
	}

	b := &builder{
		X:           X,
		y:           y,
		params:      params,
		nClasses:    nClasses,
		rng:         rand.New(rand.NewSource(params.RandomState)),
		importances: make([]float64, nFeatures),
		impurity:    impurityFunc(params.Criterion),
	}

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	root := b.grow(idx, 0)

	total := 0.0
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for i := range b.importances {
			b.importances[i] /= total
		}
	}

	return &Classifier{
		Params:      params,
		NFeatures:   nFeatures,
		NClasses:    nClasses,
		Root:        root,
		Importances: b.importances,
	}, nil
}

type builder struct {
	X           [][]float64
	y           []int
	params      Params
	nClasses    int
	rng         *rand.Rand
	importances []float64
	impurity    func(counts []float64, n float64) float64
}

func (b *builder) counts(idx []int) []float64 {
	c := make([]float64, b.nClasses)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func (b *builder) grow(idx []int, depth int) *Node {
	counts := b.counts(idx)
	n := float64(len(idx))
	node := &Node{
		Feature:  -1,
		Counts:   counts,
		Samples:  len(idx),
		Impurity: b.impurity(counts, n),
	}

	if node.Impurity <= 0 ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		len(idx) < b.params.MinSamplesSplit ||
		len(idx) < 2*b.params.MinSamplesLeaf {
		return node
	}

	s, ok := b.bestSplit(idx, counts, node.Impurity)
	if !ok {
		return node
	}

	left := make([]int, 0, s.nLeft)
	right := make([]int, 0, len(idx)-s.nLeft)
	for _, i := range idx {
		if b.X[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[s.feature] += s.decrease
	node.Feature = s.feature
	node.Threshold = s.threshold
	node.Left = b.grow(left, depth+1)
	node.Right = b.grow(right, depth+1)
	return node
}

type split struct {
	feature   int
	threshold float64
	nLeft     int
	decrease  float64
}

// bestSplit scans features in a seeded random order so ties between equally
// good features are broken reproducibly.
func (b *builder) bestSplit(idx []int, parent []float64, parentImpurity float64) (split, bool) {
	n := float64(len(idx))
	minLeaf := b.params.MinSamplesLeaf
	best := split{feature: -1}
	bestScore := math.Inf(1)

	sorted := make([]int, len(idx))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	for _, f := range b.rng.Perm(len(b.X[0])) {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		for k := range left {
			left[k] = 0
		}
		copy(right, parent)

		for pos := 0; pos < len(sorted)-1; pos++ {
			cls := b.y[sorted[pos]]
			left[cls]++
			right[cls]--

			nl := pos + 1
			nr := len(sorted) - nl
			v, next := b.X[sorted[pos]][f], b.X[sorted[pos+1]][f]
			if v == next || nl < minLeaf || nr < minLeaf {
				continue
			}

			score := float64(nl)*b.impurity(left, float64(nl)) + float64(nr)*b.impurity(right, float64(nr))
			if score < bestScore-1e-12 {
				bestScore = score
				thr := v + (next-v)/2
				if thr >= next {
					thr = v
				}
				best = split{feature: f, threshold: thr, nLeft: nl}
			}
		}
	}

	if best.feature < 0 {
		return best, false
	}
	best.decrease = n*parentImpurity - bestScore
	if best.decrease <= 1e-12 {
		return best, false
	}
	return best, true
}

func impurityFunc(c Criterion) func(counts []float64, n float64) float64 {
	if c == Entropy {
		return entropy
	}
	return gini
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}

func entropy(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / n
			h -= p * math.Log2(p)
		}
	}
	return h
}

func (c *Classifier) leaf(x []float64) *Node {
	node := c.Root
	for !node.IsLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// PredictProba returns per-class probabilities for each row.
func (c *Classifier) PredictProba(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, x := range X {
		if len(x) != c.NFeatures {
			return nil, fmt.Errorf("tree: row %d has %d features, want %d", i, len(x), c.NFeatures)
		}
		node := c.leaf(x)
		proba := make([]float64, len(node.Counts))
		total := float64(node.Samples)
		for k, cnt := range node.Counts {
			if total > 0 {
				proba[k] = cnt / total
			}
		}
		out[i] = proba
	}
	return out, nil
}

// Predict returns the majority class of each row's leaf. Ties go to the
// lower class index.
func (c *Classifier) Predict(X [][]float64) ([]int, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		best := 0
		for k := 1; k < len(p); k++ {
			if p[k] > p[best] {
				best = k
			}
		}
		out[i] = best
	}
	return out, nil
}

// FeatureImportances returns normalized impurity decreases per feature.
func (c *Classifier) FeatureImportances() []float64 {
	out := make([]float64, len(c.Importances))
	copy(out, c.Importances)
	return out
}

// Depth is the number of split levels below the root.
func (c *Classifier) Depth() int {
	var walk func(n *Node) int
	walk = func(n *Node) int {
		if n == nil || n.IsLeaf() {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(c.Root)
}

// Leaves counts terminal nodes.
func (c *Classifier) Leaves() int {
	var walk func(n *Node) int
	walk = func(n *Node) int {
		if n.IsLeaf() {
			return 1
		}
		return walk(n.Left) + walk(n.Right)
	}
	return walk(c.Root)
}

// Load decodes a classifier written with json.Marshal.
func Load(data []byte) (*Classifier, error) {
	var c Classifier
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("tree: decode model: %w", err)
	}
	if c.Root == nil || c.NFeatures == 0 {
		return nil, errors.New("tree: model has no nodes")
	}
	return &c, nil
}
