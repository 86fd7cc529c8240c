package training

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StratifiedSplit shuffles each class separately and moves round(testSize·n_c)
// rows of every class into the test set, so both halves keep the label mix.
func StratifiedSplit(ds *Dataset, testSize float64, seed int64) (train, test *Dataset, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test_size must be in (0, 1), got %v", testSize)
	}

	byClass := map[int][]int{}
	var classes []int
	for i, label := range ds.Y {
		if _, ok := byClass[label]; !ok {
			classes = append(classes, label)
		}
		byClass[label] = append(byClass[label], i)
	}

	r := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for _, c := range sortedInts(classes) {
		idx := byClass[c]
		r.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testSize * float64(len(idx))))
		if nTest >= len(idx) && len(idx) > 1 {
			nTest = len(idx) - 1
		}
		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}
	r.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	r.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })

	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, nil, fmt.Errorf("dataset of %d rows is too small to split", ds.Len())
	}
	return ds.subset(trainIdx), ds.subset(testIdx), nil
}

func (d *Dataset) subset(idx []int) *Dataset {
	out := &Dataset{Features: d.Features, X: make([][]float64, len(idx)), Y: make([]int, len(idx))}
	for i, j := range idx {
		out.X[i] = d.X[j]
		out.Y[i] = d.Y[j]
	}
	return out
}

func sortedInts(v []int) []int {
	out := append([]int(nil), v...)
	sort.Ints(out)
	return out
}

// Scaler standardises columns to zero mean and unit population variance.
// Columns with zero variance are centred only.
type Scaler struct {
	Features []string  `json:"feature_names"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

// FitScaler computes column statistics on the training rows only.
func FitScaler(ds *Dataset) *Scaler {
	n := len(ds.Features)
	s := &Scaler{
		Features: append([]string(nil), ds.Features...),
		Mean:     make([]float64, n),
		Scale:    make([]float64, n),
	}

	col := make([]float64, ds.Len())
	for j := 0; j < n; j++ {
		for i, row := range ds.X {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		s.Mean[j] = mean
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

// Transform returns scaled copies of the rows.
func (s *Scaler) Transform(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("row %d has %d features, scaler expects %d", i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

func LoadScaler(data []byte) (*Scaler, error) {
	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return nil, fmt.Errorf("scaler has %d means and %d scales", len(s.Mean), len(s.Scale))
	}
	return &s, nil
}
