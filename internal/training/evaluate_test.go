package training

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfusionAndScores(t *testing.T) {
	y := []int{1, 1, 1, 0, 0, 0, 0, 1}
	pred := []int{1, 0, 1, 0, 1, 0, 0, 1}

	cm := Confusion(y, pred)
	assert.Equal(t, ConfusionMatrix{TN: 3, FP: 1, FN: 1, TP: 3}, cm)
	assert.InDelta(t, 0.75, cm.Accuracy(), 1e-12)
	assert.InDelta(t, 0.75, cm.Precision(), 1e-12)
	assert.InDelta(t, 0.75, cm.Recall(), 1e-12)
	assert.InDelta(t, 0.75, cm.F1(), 1e-12)
}

func TestScores_Undefined(t *testing.T) {
	cm := Confusion([]int{0, 0}, []int{0, 0})
	assert.Equal(t, 0.0, cm.Precision())
	assert.Equal(t, 0.0, cm.Recall())
	assert.Equal(t, 0.0, cm.F1())
	assert.Equal(t, 1.0, cm.Accuracy())
	assert.Equal(t, 0.0, ConfusionMatrix{}.Accuracy())
}

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name   string
		y      []int
		scores []float64
		want   float64
	}{
		{"perfect", []int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}, 1.0},
		{"inverted", []int{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9}, 0.0},
		{"all tied", []int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5}, 0.5},
		{"textbook", []int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8}, 0.75},
		{"partial tie", []int{0, 1, 1, 0}, []float64{0.3, 0.3, 0.7, 0.1}, 0.875},
		{"single class", []int{1, 1}, []float64{0.2, 0.9}, 0.5},
		{"empty", nil, nil, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ROCAUC(tt.y, tt.scores), 1e-12)
		})
	}
}

func TestMetricsReport(t *testing.T) {
	var out bytes.Buffer
	Metrics{TestAccuracy: 0.8123}.Report(&out)
	assert.Contains(t, out.String(), "test_accuracy       : 0.8123")
	assert.Len(t, Metrics{}.Map(), 6)
}
