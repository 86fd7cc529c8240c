// Package training fits and evaluates the credit-default classifier and
// records every run in the tracking store.
package training

import (
	"encoding/json"
	"fmt"
	"strconv"

	"credit-scoring/internal/common/config"
	"credit-scoring/pkg/tree"
)

const ModelType = "DecisionTreeClassifier"

type Hyperparameters struct {
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	Criterion       string `json:"criterion"`
	RandomState     int64  `json:"random_state"`
}

func DefaultHyperparameters() Hyperparameters {
	p := tree.DefaultParams()
	return Hyperparameters{
		MaxDepth:        p.MaxDepth,
		MinSamplesSplit: p.MinSamplesSplit,
		MinSamplesLeaf:  p.MinSamplesLeaf,
		Criterion:       string(p.Criterion),
		RandomState:     p.RandomState,
	}
}

func HyperparametersFromConfig(cfg config.TrainingConfig) Hyperparameters {
	return Hyperparameters{
		MaxDepth:        cfg.MaxDepth,
		MinSamplesSplit: cfg.MinSamplesSplit,
		MinSamplesLeaf:  cfg.MinSamplesLeaf,
		Criterion:       cfg.Criterion,
		RandomState:     cfg.RandomState,
	}
}

func (h Hyperparameters) Params() map[string]string {
	return map[string]string{
		"max_depth":         strconv.Itoa(h.MaxDepth),
		"min_samples_split": strconv.Itoa(h.MinSamplesSplit),
		"min_samples_leaf":  strconv.Itoa(h.MinSamplesLeaf),
		"criterion":         h.Criterion,
		"random_state":      strconv.FormatInt(h.RandomState, 10),
	}
}

// Model is a fitted binary classifier over scaled feature rows.
type Model interface {
	Predict(x []float64) int
	// PredictProba returns the probability of class 1.
	PredictProba(x []float64) float64
	FeatureImportances() []float64
	NumFeatures() int
	Marshal() ([]byte, error)
}

type Trainer interface {
	Train(X [][]float64, y []int, hp Hyperparameters) (Model, error)
}

// TreeTrainer fits a CART tree.
type TreeTrainer struct{}

func (TreeTrainer) Train(X [][]float64, y []int, hp Hyperparameters) (Model, error) {
	clf, err := tree.Fit(X, y, tree.Params{
		MaxDepth:        hp.MaxDepth,
		MinSamplesSplit: hp.MinSamplesSplit,
		MinSamplesLeaf:  hp.MinSamplesLeaf,
		Criterion:       tree.Criterion(hp.Criterion),
		RandomState:     hp.RandomState,
	})
	if err != nil {
		return nil, err
	}
	return &treeModel{clf: clf}, nil
}

type treeModel struct {
	clf *tree.Classifier
}

// LoadModel decodes a model written by Model.Marshal.
func LoadModel(data []byte) (Model, error) {
	clf, err := tree.Load(data)
	if err != nil {
		return nil, err
	}
	return &treeModel{clf: clf}, nil
}

func (m *treeModel) proba(x []float64) []float64 {
	p, err := m.clf.PredictProba([][]float64{x})
	if err != nil {
		return nil
	}
	return p[0]
}

func (m *treeModel) Predict(x []float64) int {
	p := m.proba(x)
	if len(p) > 1 && p[1] > p[0] {
		return 1
	}
	return 0
}

func (m *treeModel) PredictProba(x []float64) float64 {
	p := m.proba(x)
	if len(p) < 2 {
		return 0
	}
	return p[1]
}

func (m *treeModel) FeatureImportances() []float64 { return m.clf.FeatureImportances() }

func (m *treeModel) NumFeatures() int { return m.clf.NFeatures }

func (m *treeModel) Marshal() ([]byte, error) {
	data, err := json.Marshal(m.clf)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return data, nil
}
