package training

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/observability"
	"credit-scoring/internal/models"
	"credit-scoring/internal/tracking"
)

const (
	ArtifactModel             = "decision_tree_model.json"
	ArtifactScaler            = "scaler.json"
	ArtifactFeatureNames      = "feature_names.txt"
	ArtifactFeatureImportance = "feature_importance.csv"
)

// Result summarises a finished training run.
type Result struct {
	RunID       string                     `json:"run_id"`
	Metrics     Metrics                    `json:"metrics"`
	Confusion   ConfusionMatrix            `json:"confusion_matrix"`
	Importances []models.FeatureImportance `json:"feature_importance"`
	NTrain      int                        `json:"n_samples_train"`
	NTest       int                        `json:"n_samples_test"`
	DefaultRate float64                    `json:"default_rate"`
	Synthetic   bool                       `json:"synthetic"`
}

// TopFeatures returns the n most important features.
func (r *Result) TopFeatures(n int) []models.FeatureImportance {
	if n > len(r.Importances) {
		n = len(r.Importances)
	}
	return r.Importances[:n]
}

// Report writes the human-readable run summary.
func (r *Result) Report(w io.Writer) {
	rule := strings.Repeat("-", 80)
	fmt.Fprintf(w, "Run ID: %s\n", r.RunID)
	fmt.Fprintf(w, "Train samples: %d, test samples: %d, default rate: %.2f%%\n", r.NTrain, r.NTest, r.DefaultRate*100)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Model performance metrics:")
	r.Metrics.Report(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Confusion matrix:")
	fmt.Fprintf(w, "   True Negatives:  %5d  |  False Positives: %5d\n", r.Confusion.TN, r.Confusion.FP)
	fmt.Fprintf(w, "   False Negatives: %5d  |  True Positives:  %5d\n", r.Confusion.FN, r.Confusion.TP)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Top 10 most important features:")
	for _, fi := range r.TopFeatures(10) {
		fmt.Fprintf(w, "   %-15s: %.4f\n", fi.Feature, fi.Importance)
	}
}

type Pipeline struct {
	cfg     config.TrainingConfig
	store   tracking.Store
	trainer Trainer
	logger  logger.Logger
	obs     *observability.Observability
}

func NewPipeline(cfg config.TrainingConfig, store tracking.Store, trainer Trainer, log logger.Logger, obs *observability.Observability) *Pipeline {
	if trainer == nil {
		trainer = TreeTrainer{}
	}
	return &Pipeline{
		cfg:     cfg,
		store:   store,
		trainer: trainer,
		logger:  log.WithFields(map[string]interface{}{"component": "training"}),
		obs:     obs,
	}
}

// LoadDataset reads the configured CSV, falling back to synthetic rows
// when no path is set or the file cannot be used.
func (p *Pipeline) LoadDataset() (*Dataset, bool) {
	if p.cfg.DataPath != "" {
		ds, err := LoadCSVFile(p.cfg.DataPath)
		if err == nil {
			return ds, false
		}
		p.logger.Warn("failed to load dataset, generating synthetic data", map[string]interface{}{
			"path":  p.cfg.DataPath,
			"error": err,
		})
	}
	rows := p.cfg.SyntheticRows
	if rows <= 0 {
		rows = 5000
	}
	return Synthetic(rows, 42), true
}

// Run trains one model and records it. A failure after the run was created
// marks the run FAILED so it is never served.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	hp := HyperparametersFromConfig(p.cfg)

	run, err := p.store.CreateRun(ctx, p.cfg.Experiment, p.cfg.RunName)
	if err != nil {
		return nil, err
	}
	log := p.logger.WithFields(map[string]interface{}{"runId": run.ID})

	result, err := p.train(ctx, run.ID, hp, log)
	if err != nil {
		if endErr := p.store.EndRun(ctx, run.ID, tracking.StatusFailed); endErr != nil {
			log.Error("failed to mark run as failed", map[string]interface{}{"error": endErr})
		}
		return nil, err
	}
	if err := p.store.EndRun(ctx, run.ID, tracking.StatusFinished); err != nil {
		return nil, err
	}

	p.obs.RecordTrainingRun(ctx, time.Since(start), ModelType)
	log.Info("training complete", map[string]interface{}{
		"testAccuracy": result.Metrics.TestAccuracy,
		"testRocAuc":   result.Metrics.TestROCAUC,
		"durationMs":   time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (p *Pipeline) train(ctx context.Context, runID string, hp Hyperparameters, log logger.Logger) (*Result, error) {
	ds, synthetic := p.LoadDataset()
	log.Info("dataset loaded", map[string]interface{}{
		"rows":        ds.Len(),
		"features":    len(ds.Features),
		"synthetic":   synthetic,
		"defaultRate": ds.DefaultRate(),
	})

	trainSet, testSet, err := StratifiedSplit(ds, p.cfg.TestSize, hp.RandomState)
	if err != nil {
		return nil, err
	}

	scaler := FitScaler(trainSet)
	XTrain, err := scaler.Transform(trainSet.X)
	if err != nil {
		return nil, err
	}
	XTest, err := scaler.Transform(testSet.X)
	if err != nil {
		return nil, err
	}

	params := hp.Params()
	params["model_type"] = ModelType
	params["n_features"] = strconv.Itoa(len(ds.Features))
	params["n_samples_train"] = strconv.Itoa(trainSet.Len())
	params["n_samples_test"] = strconv.Itoa(testSet.Len())
	if err := p.store.LogParams(ctx, runID, params); err != nil {
		return nil, err
	}

	model, err := p.trainer.Train(XTrain, trainSet.Y, hp)
	if err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}

	trainPred := predictAll(model, XTrain)
	testPred := predictAll(model, XTest)
	testProba := make([]float64, len(XTest))
	for i, x := range XTest {
		testProba[i] = model.PredictProba(x)
	}

	cm := Confusion(testSet.Y, testPred)
	metrics := Metrics{
		TrainAccuracy: Confusion(trainSet.Y, trainPred).Accuracy(),
		TestAccuracy:  cm.Accuracy(),
		TestPrecision: cm.Precision(),
		TestRecall:    cm.Recall(),
		TestF1:        cm.F1(),
		TestROCAUC:    ROCAUC(testSet.Y, testProba),
	}
	if err := p.store.LogMetrics(ctx, runID, metrics.Map()); err != nil {
		return nil, err
	}

	importances := rankImportances(ds.Features, model.FeatureImportances())
	if err := p.logArtifacts(ctx, runID, model, scaler, ds.Features, importances); err != nil {
		return nil, err
	}

	return &Result{
		RunID:       runID,
		Metrics:     metrics,
		Confusion:   cm,
		Importances: importances,
		NTrain:      trainSet.Len(),
		NTest:       testSet.Len(),
		DefaultRate: ds.DefaultRate(),
		Synthetic:   synthetic,
	}, nil
}

func (p *Pipeline) logArtifacts(ctx context.Context, runID string, model Model, scaler *Scaler, features []string, importances []models.FeatureImportance) error {
	modelBytes, err := model.Marshal()
	if err != nil {
		return err
	}
	scalerBytes, err := json.Marshal(scaler)
	if err != nil {
		return fmt.Errorf("encode scaler: %w", err)
	}

	var csvBuf bytes.Buffer
	cw := csv.NewWriter(&csvBuf)
	_ = cw.Write([]string{"feature", "importance"})
	for _, fi := range importances {
		_ = cw.Write([]string{fi.Feature, strconv.FormatFloat(fi.Importance, 'f', -1, 64)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("encode feature importance: %w", err)
	}

	artifacts := []struct {
		name string
		data []byte
	}{
		{ArtifactModel, modelBytes},
		{ArtifactScaler, scalerBytes},
		{ArtifactFeatureNames, []byte(strings.Join(features, "\n"))},
		{ArtifactFeatureImportance, csvBuf.Bytes()},
	}
	for _, a := range artifacts {
		if err := p.store.LogArtifact(ctx, runID, a.name, a.data); err != nil {
			return err
		}
	}
	return nil
}

func predictAll(m Model, X [][]float64) []int {
	out := make([]int, len(X))
	for i, x := range X {
		out[i] = m.Predict(x)
	}
	return out
}

// rankImportances pairs features with importances, highest first. Equal
// importances keep column order.
func rankImportances(features []string, importances []float64) []models.FeatureImportance {
	out := make([]models.FeatureImportance, len(features))
	for i, f := range features {
		v := 0.0
		if i < len(importances) {
			v = importances[i]
		}
		out[i] = models.FeatureImportance{Feature: f, Importance: v}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}
