package tree

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ruleData labels rows by an axis-aligned rule on the first two columns;
// the third column is noise.
func ruleData(n int, seed int64) ([][]float64, []int) {
	r := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		a, b := r.Float64(), r.Float64()
		X[i] = []float64{a, b, r.Float64()}
		if a > 0.5 && b > 0.3 {
			y[i] = 1
		}
	}
	return X, y
}

func accuracy(pred, y []int) float64 {
	ok := 0
	for i := range y {
		if pred[i] == y[i] {
			ok++
		}
	}
	return float64(ok) / float64(len(y))
}

func TestFit_LearnsRule(t *testing.T) {
	X, y := ruleData(2000, 1)
	params := DefaultParams()

	clf, err := Fit(X, y, params)
	require.NoError(t, err)

	pred, err := clf.Predict(X)
	require.NoError(t, err)
	assert.Greater(t, accuracy(pred, y), 0.95)
	assert.LessOrEqual(t, clf.Depth(), params.MaxDepth)

	imp := clf.FeatureImportances()
	require.Len(t, imp, 3)
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
	assert.Less(t, imp[2], imp[0], "the noise column matters least")
	assert.Less(t, imp[2], imp[1])
}

func TestFit_Criteria(t *testing.T) {
	X, y := ruleData(800, 2)
	for _, c := range []Criterion{Gini, Entropy} {
		t.Run(string(c), func(t *testing.T) {
			p := DefaultParams()
			p.Criterion = c
			clf, err := Fit(X, y, p)
			require.NoError(t, err)
			pred, err := clf.Predict(X)
			require.NoError(t, err)
			assert.Greater(t, accuracy(pred, y), 0.9)
		})
	}
}

func TestFit_Deterministic(t *testing.T) {
	X, y := ruleData(500, 3)
	a, err := Fit(X, y, DefaultParams())
	require.NoError(t, err)
	b, err := Fit(X, y, DefaultParams())
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	assert.JSONEq(t, string(ja), string(jb))
}

func TestFit_RespectsLimits(t *testing.T) {
	X, y := ruleData(1000, 4)

	p := DefaultParams()
	p.MaxDepth = 2
	clf, err := Fit(X, y, p)
	require.NoError(t, err)
	assert.LessOrEqual(t, clf.Depth(), 2)
	assert.LessOrEqual(t, clf.Leaves(), 4)

	p = DefaultParams()
	p.MinSamplesLeaf = 100
	clf, err = Fit(X, y, p)
	require.NoError(t, err)
	var walk func(n *Node)
	walk = func(n *Node) {
		assert.GreaterOrEqual(t, n.Samples, 100)
		if !n.IsLeaf() {
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(clf.Root)

	p = DefaultParams()
	p.MinSamplesSplit = 2000
	clf, err = Fit(X, y, p)
	require.NoError(t, err)
	assert.True(t, clf.Root.IsLeaf(), "a node smaller than min_samples_split is not split")
}

func TestPredictProba(t *testing.T) {
	X := [][]float64{{0}, {0}, {0}, {1}, {1}, {1}}
	y := []int{0, 0, 1, 1, 1, 1}
	p := Params{MaxDepth: 3, MinSamplesSplit: 2, MinSamplesLeaf: 1, Criterion: Gini, RandomState: 0}

	clf, err := Fit(X, y, p)
	require.NoError(t, err)

	proba, err := clf.PredictProba([][]float64{{0}, {1}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, proba[0][1], 1e-9)
	assert.InDelta(t, 1.0, proba[1][1], 1e-9)
	for _, row := range proba {
		assert.InDelta(t, 1.0, row[0]+row[1], 1e-9)
	}

	pred, err := clf.Predict([][]float64{{0}, {1}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, pred)
}

func TestPureNodeIsLeaf(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	y := []int{1, 1, 1}
	clf, err := Fit(X, y, Params{MinSamplesSplit: 2, MinSamplesLeaf: 1, Criterion: Gini})
	require.NoError(t, err)

	assert.True(t, clf.Root.IsLeaf())
	assert.Equal(t, 2, clf.NClasses)
	assert.Equal(t, []float64{0, 0}, clf.FeatureImportances())
}

func TestFit_Errors(t *testing.T) {
	_, err := Fit(nil, nil, DefaultParams())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Fit([][]float64{{1}, {2, 3}}, []int{0, 1}, DefaultParams())
	assert.Error(t, err)

	_, err = Fit([][]float64{{1}}, []int{0, 1}, DefaultParams())
	assert.Error(t, err)

	bad := DefaultParams()
	bad.Criterion = "log_loss"
	_, err = Fit([][]float64{{1}}, []int{0}, bad)
	assert.Error(t, err)

	clf, err := Fit([][]float64{{1}, {2}}, []int{0, 1}, Params{MinSamplesSplit: 2, MinSamplesLeaf: 1, Criterion: Gini})
	require.NoError(t, err)
	_, err = clf.Predict([][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestLoadRoundTrip(t *testing.T) {
	X, y := ruleData(300, 5)
	clf, err := Fit(X, y, DefaultParams())
	require.NoError(t, err)

	data, err := json.Marshal(clf)
	require.NoError(t, err)
	loaded, err := Load(data)
	require.NoError(t, err)

	a, _ := clf.PredictProba(X)
	b, _ := loaded.PredictProba(X)
	assert.Equal(t, a, b)

	_, err = Load([]byte(`{}`))
	assert.Error(t, err)
}

func TestImpurity(t *testing.T) {
	assert.InDelta(t, 0.5, gini([]float64{5, 5}, 10), 1e-12)
	assert.InDelta(t, 1.0, entropy([]float64{5, 5}, 10), 1e-12)
	assert.Equal(t, 0.0, gini([]float64{10, 0}, 10))
	assert.Equal(t, 0.0, entropy(nil, 0))
	assert.False(t, math.IsNaN(entropy([]float64{0, 3}, 3)))
}
