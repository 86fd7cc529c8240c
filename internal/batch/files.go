package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"credit-scoring/internal/notify"
)

// SampleRecords are the five applications written by WriteSample.
var SampleRecords = []map[string]interface{}{
	{"age": 30, "income": 5000, "loan_amount": 10000, "credit_history": "good"},
	{"age": 25, "income": 3000, "loan_amount": 15000, "credit_history": "fair"},
	{"age": 45, "income": 8000, "loan_amount": 5000, "credit_history": "good"},
	{"age": 22, "income": 2000, "loan_amount": 20000, "credit_history": "poor"},
	{"age": 35, "income": 6000, "loan_amount": 8000, "credit_history": "good"},
}

// WriteSample writes SampleRecords as NDJSON to path, creating its directory.
func WriteSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sample directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sample file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range SampleRecords {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write sample record: %w", err)
		}
	}
	return f.Close()
}

// RunFiles scores inputPath into outputPath. A zero timeout means no limit.
func (r *Runner) RunFiles(ctx context.Context, inputPath, outputPath string, timeout time.Duration) (*Summary, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	r.logger.Info("processing batch", map[string]interface{}{
		"input":       inputPath,
		"output":      outputPath,
		"workers":     r.opts.Workers,
		"skipInvalid": r.opts.SkipInvalid,
	})

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open batch input: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create batch output: %w", err)
	}
	defer out.Close()

	summary, err := r.Run(ctx, in, out)
	status := "success"
	if err != nil {
		status = "failed"
	}
	if summary != nil {
		r.obs.RecordBatchRun(ctx, time.Since(start), summary.Processed, summary.Approved, status)
	}
	if err != nil {
		r.logger.Error("batch run failed", map[string]interface{}{"error": err})
		return summary, err
	}
	if err := out.Close(); err != nil {
		return summary, fmt.Errorf("close batch output: %w", err)
	}

	r.logger.Info("batch completed", map[string]interface{}{
		"processed":  summary.Processed,
		"approved":   summary.Approved,
		"rejected":   summary.Rejected,
		"skipped":    summary.Skipped,
		"durationMs": time.Since(start).Milliseconds(),
	})
	r.notify(ctx, inputPath, summary)
	return summary, nil
}

func (r *Runner) notify(ctx context.Context, inputPath string, summary *Summary) {
	if r.notifier == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"input":   inputPath,
		"summary": summary,
	})
	if err != nil {
		return
	}
	msg := notify.Message{
		Subject: fmt.Sprintf("Credit batch completed: %d processed", summary.Processed),
		Body:    string(body),
	}
	if err := r.notifier.Notify(ctx, msg); err != nil {
		r.logger.Warn("batch notification failed", map[string]interface{}{"error": err})
	}
}
