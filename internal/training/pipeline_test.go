package training

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/observability"
	"credit-scoring/internal/models"
	"credit-scoring/internal/tracking"
)

func trainingConfig() config.TrainingConfig {
	return config.TrainingConfig{
		TestSize:        0.2,
		SyntheticRows:   1500,
		MaxDepth:        6,
		MinSamplesSplit: 20,
		MinSamplesLeaf:  10,
		Criterion:       "gini",
		RandomState:     42,
		Experiment:      "credit_default_prediction",
		RunName:         "decision_tree_baseline",
	}
}

func openStore(t *testing.T) tracking.Store {
	t.Helper()
	cfg := &config.Config{}
	cfg.Tracking.Driver = "sqlite"
	cfg.Tracking.SQLitePath = filepath.Join(t.TempDir(), "tracking.db")
	s, err := tracking.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	p := NewPipeline(trainingConfig(), store, TreeTrainer{}, logger.NewTestLogger(t), observability.Noop())

	result, err := p.Run(ctx)
	require.NoError(t, err)

	assert.True(t, result.Synthetic)
	assert.Equal(t, 1500, result.NTrain+result.NTest)
	assert.Greater(t, result.Metrics.TestAccuracy, 0.7)
	assert.Greater(t, result.Metrics.TestROCAUC, 0.7)
	assert.GreaterOrEqual(t, result.Metrics.TrainAccuracy, result.Metrics.TestAccuracy-0.05)
	require.Len(t, result.Importances, len(models.FeatureNames))
	for i := 1; i < len(result.Importances); i++ {
		assert.GreaterOrEqual(t, result.Importances[i-1].Importance, result.Importances[i].Importance)
	}
	top := map[string]bool{}
	for _, fi := range result.TopFeatures(3) {
		top[fi.Feature] = true
	}
	assert.True(t, top["PAY_0"], "PAY_0 drives the synthetic target")

	run, err := store.LatestRun(ctx, "credit_default_prediction")
	require.NoError(t, err)
	assert.Equal(t, result.RunID, run.ID)
	assert.Equal(t, ModelType, run.Params["model_type"])
	assert.Equal(t, "23", run.Params["n_features"])
	assert.Equal(t, "6", run.Params["max_depth"])
	assert.InDelta(t, result.Metrics.TestF1, run.Metrics["test_f1"], 1e-12)

	for _, name := range []string{ArtifactModel, ArtifactScaler, ArtifactFeatureNames, ArtifactFeatureImportance} {
		data, err := store.GetArtifact(ctx, run.ID, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	names, _ := store.GetArtifact(ctx, run.ID, ArtifactFeatureNames)
	assert.Equal(t, models.FeatureNames, strings.Split(string(names), "\n"))

	raw, _ := store.GetArtifact(ctx, run.ID, ArtifactModel)
	model, err := LoadModel(raw)
	require.NoError(t, err)
	assert.Equal(t, len(models.FeatureNames), model.NumFeatures())

	var out bytes.Buffer
	result.Report(&out)
	assert.Contains(t, out.String(), "True Negatives:")
	assert.Contains(t, out.String(), result.RunID)
}

func TestPipeline_LoadsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credit.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvFixture(200, "default")), 0o644))

	cfg := trainingConfig()
	cfg.DataPath = path
	p := NewPipeline(cfg, openStore(t), nil, logger.NewTestLogger(t), nil)

	ds, synthetic := p.LoadDataset()
	assert.False(t, synthetic)
	assert.Equal(t, 200, ds.Len())

	cfg.DataPath = filepath.Join(t.TempDir(), "missing.csv")
	ds, synthetic = NewPipeline(cfg, nil, nil, logger.NewNoOpLogger(), nil).LoadDataset()
	assert.True(t, synthetic)
	assert.Equal(t, 1500, ds.Len())
}

type failingTrainer struct{}

func (failingTrainer) Train([][]float64, []int, Hyperparameters) (Model, error) {
	return nil, assert.AnError
}

func TestPipeline_FailedRunIsNotServed(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	p := NewPipeline(trainingConfig(), store, failingTrainer{}, logger.NewTestLogger(t), nil)

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, assert.AnError)

	_, err = store.LatestRun(ctx, "credit_default_prediction")
	assert.ErrorIs(t, err, tracking.ErrRunNotFound)
}

func TestHyperparameters(t *testing.T) {
	hp := DefaultHyperparameters()
	assert.Equal(t, Hyperparameters{MaxDepth: 10, MinSamplesSplit: 20, MinSamplesLeaf: 10, Criterion: "gini", RandomState: 42}, hp)
	assert.Equal(t, "42", hp.Params()["random_state"])
}
