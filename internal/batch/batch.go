// Package batch scores newline-delimited JSON application files offline.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	apperrors "credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/metrics"
	"credit-scoring/internal/common/observability"
	"credit-scoring/internal/models"
	"credit-scoring/internal/notify"
	"credit-scoring/internal/scoring"
)

const (
	maxLineSize = 1 << 20
	chunkFactor = 64
)

type Options struct {
	// Workers > 1 scores each chunk of lines concurrently. Output order
	// always matches input order.
	Workers int
	// SkipInvalid counts malformed lines instead of aborting the run.
	SkipInvalid bool
}

// Summary is reported once a run finishes.
type Summary struct {
	Processed    int     `json:"processed"`
	Approved     int     `json:"approved"`
	Rejected     int     `json:"rejected"`
	Skipped      int     `json:"skipped"`
	SkippedLines []int   `json:"skipped_lines,omitempty"`
	ApprovedPct  float64 `json:"approved_pct"`
	RejectedPct  float64 `json:"rejected_pct"`
}

func (s *Summary) add(result models.ScoreResult) {
	s.Processed++
	if result.Approved() {
		s.Approved++
	} else {
		s.Rejected++
	}
}

func (s *Summary) finish() {
	if s.Processed == 0 {
		s.ApprovedPct, s.RejectedPct = 0, 0
		return
	}
	s.ApprovedPct = float64(s.Approved) / float64(s.Processed) * 100
	s.RejectedPct = float64(s.Rejected) / float64(s.Processed) * 100
}

// Report writes the human-readable totals.
func (s *Summary) Report(w io.Writer) {
	fmt.Fprintln(w, "Batch processing completed!")
	fmt.Fprintf(w, "Total processed: %d\n", s.Processed)
	fmt.Fprintf(w, "Approved: %d (%.1f%%)\n", s.Approved, s.ApprovedPct)
	fmt.Fprintf(w, "Rejected: %d (%.1f%%)\n", s.Rejected, s.RejectedPct)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped: %d (lines %v)\n", s.Skipped, s.SkippedLines)
	}
}

type Runner struct {
	scorer   *scoring.Scorer
	opts     Options
	logger   logger.Logger
	notifier notify.Notifier
	obs      *observability.Observability
}

func NewRunner(scorer *scoring.Scorer, opts Options, log logger.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{
		scorer: scorer,
		opts:   opts,
		logger: log.WithFields(map[string]interface{}{"component": "batch"}),
	}
}

// WithNotifier sends a summary after every successful file run.
func (r *Runner) WithNotifier(n notify.Notifier) *Runner {
	r.notifier = n
	return r
}

func (r *Runner) WithObservability(o *observability.Observability) *Runner {
	r.obs = o
	return r
}

type line struct {
	number int
	raw    []byte
}

type scored struct {
	out    []byte
	result models.ScoreResult
	err    error
}

// Run scores every record from r and writes the enriched records to w.
// Unless SkipInvalid is set, the first malformed line stops the run with a
// BATCH_RECORD_INVALID error; records before it have already been written.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) (*Summary, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	bw := bufio.NewWriter(out)
	summary := &Summary{}

	chunkSize := 1
	if r.opts.Workers > 1 {
		chunkSize = r.opts.Workers * chunkFactor
	}

	chunk := make([]line, 0, chunkSize)
	number := 0
	for sc.Scan() {
		number++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		chunk = append(chunk, line{number: number, raw: append([]byte(nil), raw...)})
		if len(chunk) < chunkSize {
			continue
		}
		if err := r.flush(ctx, chunk, bw, summary); err != nil {
			return r.abort(bw, summary, err)
		}
		chunk = chunk[:0]
	}
	if err := sc.Err(); err != nil {
		return r.abort(bw, summary, apperrors.NewBatchRecordInvalidError(number+1, err))
	}
	if err := r.flush(ctx, chunk, bw, summary); err != nil {
		return r.abort(bw, summary, err)
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("flush output: %w", err)
	}
	summary.finish()
	return summary, nil
}

func (r *Runner) abort(bw *bufio.Writer, summary *Summary, err error) (*Summary, error) {
	_ = bw.Flush()
	summary.finish()
	return summary, err
}

func (r *Runner) flush(ctx context.Context, chunk []line, w io.Writer, summary *Summary) error {
	if len(chunk) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	results := make([]scored, len(chunk))
	if r.opts.Workers > 1 && len(chunk) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Workers)
		for i := range chunk {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = r.score(chunk[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i := range chunk {
			results[i] = r.score(chunk[i])
		}
	}

	for i, res := range results {
		if res.err != nil {
			if !r.opts.SkipInvalid {
				metrics.BatchRecords.WithLabelValues("invalid").Inc()
				return apperrors.NewBatchRecordInvalidError(chunk[i].number, res.err)
			}
			summary.Skipped++
			summary.SkippedLines = append(summary.SkippedLines, chunk[i].number)
			metrics.BatchRecords.WithLabelValues("skipped").Inc()
			r.logger.Warn("skipping malformed record", map[string]interface{}{
				"line":  chunk[i].number,
				"error": res.err,
			})
			continue
		}

		if _, err := w.Write(res.out); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		summary.add(res.result)
		metrics.BatchRecords.WithLabelValues(string(res.result.Prediction)).Inc()
	}
	return nil
}

func (r *Runner) score(l line) scored {
	if !utf8.Valid(l.raw) {
		return scored{err: fmt.Errorf("record is not valid UTF-8")}
	}
	dec := json.NewDecoder(bytes.NewReader(l.raw))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return scored{err: err}
	}
	if fields == nil {
		return scored{err: fmt.Errorf("record is not a JSON object")}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return scored{err: fmt.Errorf("unexpected data after record")}
	}

	result, err := r.scorer.PredictOne(fields)
	if err != nil {
		return scored{err: err}
	}
	out, err := enrich(l.raw, fields, result)
	if err != nil {
		return scored{err: err}
	}
	return scored{out: out, result: result}
}

// enrich appends prediction and confidence to the original record. The raw
// bytes are kept so field order and number formatting survive; a record
// that already carries either key is re-encoded with the new values.
func enrich(raw []byte, fields map[string]interface{}, result models.ScoreResult) ([]byte, error) {
	_, hasPrediction := fields["prediction"]
	_, hasConfidence := fields["confidence"]
	if hasPrediction || hasConfidence {
		fields["prediction"] = result.Prediction
		fields["confidence"] = result.Confidence
		out, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}

	var buf bytes.Buffer
	body := bytes.TrimSuffix(raw, []byte("}"))
	buf.Write(body)
	if len(fields) > 0 {
		buf.WriteByte(',')
	}
	buf.WriteString(`"prediction":`)
	buf.WriteString(strconv.Quote(string(result.Prediction)))
	buf.WriteString(`,"confidence":`)
	buf.WriteString(strconv.FormatFloat(result.Confidence, 'f', -1, 64))
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}
