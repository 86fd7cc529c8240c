package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"credit-scoring/internal/models"
)

// Dataset is a dense feature matrix with binary labels.
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []int
}

func (d *Dataset) Len() int { return len(d.Y) }

// DefaultRate is the fraction of positive labels.
func (d *Dataset) DefaultRate() float64 {
	if d.Len() == 0 {
		return 0
	}
	pos := 0
	for _, v := range d.Y {
		pos += v
	}
	return float64(pos) / float64(d.Len())
}

var targetColumns = []string{"default", "y", "default.payment.next.month", "default payment next month"}

// LoadCSV reads a header-first CSV holding every column of
// models.FeatureNames plus a 0/1 target column. Other columns are ignored.
func LoadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}

	featureIdx := make([]int, len(models.FeatureNames))
	for i, name := range models.FeatureNames {
		idx, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("missing feature column %q", name)
		}
		featureIdx[i] = idx
	}

	targetIdx := -1
	for h, i := range cols {
		for _, t := range targetColumns {
			if strings.EqualFold(h, t) {
				targetIdx = i
			}
		}
	}
	if targetIdx < 0 {
		return nil, errors.New("missing target column (default, Y or default.payment.next.month)")
	}

	ds := &Dataset{Features: append([]string(nil), models.FeatureNames...)}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(featureIdx))
		for i, idx := range featureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, models.FeatureNames[i], err)
			}
			row[i] = v
		}
		label, err := strconv.Atoi(strings.TrimSpace(rec[targetIdx]))
		if err != nil || (label != 0 && label != 1) {
			return nil, fmt.Errorf("line %d: target must be 0 or 1, got %q", line, rec[targetIdx])
		}

		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, label)
	}

	if ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

func LoadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f)
}

type intRange struct{ lo, hi int }

// synthetic feature ranges, half-open like the upstream generator
var syntheticRanges = map[string]intRange{
	"LIMIT_BAL": {10000, 500000},
	"SEX":       {1, 3},
	"EDUCATION": {1, 5},
	"MARRIAGE":  {1, 4},
	"AGE":       {21, 75},
}

func syntheticRange(name string) intRange {
	if r, ok := syntheticRanges[name]; ok {
		return r
	}
	switch {
	case strings.HasPrefix(name, "PAY_AMT"):
		return intRange{0, 50000}
	case strings.HasPrefix(name, "PAY_"):
		return intRange{-2, 9}
	default: // BILL_AMT
		return intRange{0, 100000}
	}
}

// Synthetic generates n seeded rows over the credit-default feature ranges.
// A row defaults when 0.3·[PAY_0>2] + 0.2·[PAY_2>2] + 0.1·[AGE<30] + 0.4·U
// exceeds 0.5.
func Synthetic(n int, seed int64) *Dataset {
	r := rand.New(rand.NewSource(seed))
	ds := &Dataset{
		Features: append([]string(nil), models.FeatureNames...),
		X:        make([][]float64, n),
		Y:        make([]int, n),
	}

	for i := 0; i < n; i++ {
		row := make([]float64, len(models.FeatureNames))
		for j, name := range models.FeatureNames {
			rg := syntheticRange(name)
			row[j] = float64(rg.lo + r.Intn(rg.hi-rg.lo))
		}
		ds.X[i] = row
	}

	pay0, pay2, age := featureIndex("PAY_0"), featureIndex("PAY_2"), featureIndex("AGE")
	for i, row := range ds.X {
		p := 0.4 * r.Float64()
		if row[pay0] > 2 {
			p += 0.3
		}
		if row[pay2] > 2 {
			p += 0.2
		}
		if row[age] < 30 {
			p += 0.1
		}
		if p > 0.5 {
			ds.Y[i] = 1
		}
	}
	return ds
}

func featureIndex(name string) int {
	for i, f := range models.FeatureNames {
		if f == name {
			return i
		}
	}
	return -1
}
