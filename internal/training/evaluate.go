package training

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ConfusionMatrix for the positive class 1.
type ConfusionMatrix struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

func Confusion(y, pred []int) ConfusionMatrix {
	var cm ConfusionMatrix
	for i := range y {
		switch {
		case y[i] == 1 && pred[i] == 1:
			cm.TP++
		case y[i] == 1:
			cm.FN++
		case pred[i] == 1:
			cm.FP++
		default:
			cm.TN++
		}
	}
	return cm
}

func (cm ConfusionMatrix) Accuracy() float64 {
	total := cm.TN + cm.FP + cm.FN + cm.TP
	if total == 0 {
		return 0
	}
	return float64(cm.TN+cm.TP) / float64(total)
}

// Precision is 0 when nothing was predicted positive.
func (cm ConfusionMatrix) Precision() float64 {
	if cm.TP+cm.FP == 0 {
		return 0
	}
	return float64(cm.TP) / float64(cm.TP+cm.FP)
}

func (cm ConfusionMatrix) Recall() float64 {
	if cm.TP+cm.FN == 0 {
		return 0
	}
	return float64(cm.TP) / float64(cm.TP+cm.FN)
}

func (cm ConfusionMatrix) F1() float64 {
	p, r := cm.Precision(), cm.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ROCAUC is the area under the ROC curve of scores against y. Tied scores
// share one cutoff, so a tie counts as one half. It is 0.5 when only one
// class is present.
func ROCAUC(y []int, scores []float64) float64 {
	var nPos int
	sorted := make([]float64, len(scores))
	classes := make([]bool, len(y))
	copy(sorted, scores)
	for i, label := range y {
		classes[i] = label == 1
		if classes[i] {
			nPos++
		}
	}
	if nPos == 0 || nPos == len(y) {
		return 0.5
	}

	stat.SortWeightedLabeled(sorted, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// Metrics are the values logged for every training run.
type Metrics struct {
	TrainAccuracy float64 `json:"train_accuracy"`
	TestAccuracy  float64 `json:"test_accuracy"`
	TestPrecision float64 `json:"test_precision"`
	TestRecall    float64 `json:"test_recall"`
	TestF1        float64 `json:"test_f1"`
	TestROCAUC    float64 `json:"test_roc_auc"`
}

func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"train_accuracy": m.TrainAccuracy,
		"test_accuracy":  m.TestAccuracy,
		"test_precision": m.TestPrecision,
		"test_recall":    m.TestRecall,
		"test_f1":        m.TestF1,
		"test_roc_auc":   m.TestROCAUC,
	}
}

func (m Metrics) Report(w io.Writer) {
	for _, kv := range []struct {
		name  string
		value float64
	}{
		{"train_accuracy", m.TrainAccuracy},
		{"test_accuracy", m.TestAccuracy},
		{"test_precision", m.TestPrecision},
		{"test_recall", m.TestRecall},
		{"test_f1", m.TestF1},
		{"test_roc_auc", m.TestROCAUC},
	} {
		fmt.Fprintf(w, "   %-20s: %.4f\n", kv.name, kv.value)
	}
}
