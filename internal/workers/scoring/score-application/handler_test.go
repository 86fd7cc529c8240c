// internal/workers/scoring/score-application/handler_test.go
package scoreapplication

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"credit-scoring/internal/common/config"
	"credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/metrics"
	"credit-scoring/internal/common/observability"
	"credit-scoring/internal/models"
)

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second, Threshold: 0.6}, observability.Noop(), logger.NewTestLogger(t))
}

func TestParseInput(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name      string
		variables string
		want      models.ApplicationRecord
		wantField string
	}{
		{
			name:      "valid with extra process variables",
			variables: `{"age":35,"income":5000,"loan_amount":1000,"credit_history":"good","applicationId":"A-1"}`,
			want:      models.ApplicationRecord{Age: 35, Income: 5000, LoanAmount: 1000, CreditHistory: models.CreditHistoryGood},
		},
		{
			name:      "integral float age",
			variables: `{"age":40.0,"income":3000,"loan_amount":1000,"credit_history":"fair"}`,
			want:      models.ApplicationRecord{Age: 40, Income: 3000, LoanAmount: 1000, CreditHistory: models.CreditHistoryFair},
		},
		{
			name:      "under age",
			variables: `{"age":15,"income":5000,"loan_amount":1000,"credit_history":"good"}`,
			wantField: "age",
		},
		{
			name:      "unknown history",
			variables: `{"age":35,"income":5000,"loan_amount":1000,"credit_history":"excellent"}`,
			wantField: "credit_history",
		},
		{
			name:      "missing income",
			variables: `{"age":35,"loan_amount":1000,"credit_history":"good"}`,
			wantField: "income",
		},
		{
			name:      "no variables",
			variables: ``,
			wantField: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(tt.variables)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, input.Application)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
			stdErr := errors.Normalize(err)
			var fields []string
			for _, f := range stdErr.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.wantField)
			assert.False(t, stdErr.Retryable)
		})
	}
}

func TestExecute(t *testing.T) {
	h := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{Application: models.ApplicationRecord{
		Age: 35, Income: 5000, LoanAmount: 1000, CreditHistory: models.CreditHistoryGood,
	}})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionApproved, out.Prediction)
	assert.Equal(t, 1.0, out.Confidence)
	assert.True(t, out.Approved)

	out, err = h.Execute(context.Background(), &Input{Application: models.ApplicationRecord{
		Age: 20, Income: 1000, LoanAmount: 5000, CreditHistory: models.CreditHistoryPoor,
	}})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionRejected, out.Prediction)
	assert.Equal(t, 0.5, out.Confidence)
	assert.False(t, out.Approved)
}

func TestExecute_CancelledContext(t *testing.T) {
	h := newTestHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Execute(ctx, &Input{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInternal))
}

func TestLoadConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Camunda.Timeout = 2500
	cfg.Scoring.Threshold = 0.7

	c := LoadConfig(cfg)
	assert.Equal(t, 2500*time.Millisecond, c.Timeout)
	assert.Equal(t, 0.7, c.Threshold)

	assert.Equal(t, 10*time.Second, LoadConfig(&config.Config{}).Timeout)
}

// fakeGateway records job commands; unimplemented gateway calls panic.
type fakeGateway struct {
	pb.GatewayClient
	completeErr error
	completed   []*pb.CompleteJobRequest
	thrown      []*pb.ThrowErrorRequest
}

func (g *fakeGateway) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.completed = append(g.completed, in)
	if g.completeErr != nil {
		return nil, g.completeErr
	}
	return &pb.CompleteJobResponse{}, nil
}

func (g *fakeGateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}

func noRetry(context.Context, error) bool { return false }

type fakeJobClient struct {
	gw *fakeGateway
}

func (c *fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gw, noRetry)
}

func (c *fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gw, noRetry)
}

func (c *fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gw, noRetry)
}

func testJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: TaskType, Retries: 3, Variables: variables}}
}

const goodApplication = `{"age":35,"income":5000,"loan_amount":1000,"credit_history":"good"}`

func TestHandle_Completes(t *testing.T) {
	h := newTestHandler(t)
	gw := &fakeGateway{}
	before := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))

	h.Handle(&fakeJobClient{gw: gw}, testJob(goodApplication))

	require.Len(t, gw.completed, 1)
	assert.Equal(t, int64(42), gw.completed[0].JobKey)
	assert.JSONEq(t, `{"prediction":"approved","confidence":1,"approved":true}`, gw.completed[0].Variables)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))
}

func TestHandle_CompleteFailureIsNotCountedAsCompleted(t *testing.T) {
	h := newTestHandler(t)
	gw := &fakeGateway{completeErr: stderrors.New("gateway unavailable")}
	completedBefore := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))
	failedBefore := testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, statusCompleteFailed))

	h.Handle(&fakeJobClient{gw: gw}, testJob(goodApplication))

	require.Len(t, gw.completed, 1)
	assert.Empty(t, gw.thrown)
	assert.Equal(t, completedBefore, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, statusCompleteFailed)))
}

func TestHandle_InvalidApplicationThrows(t *testing.T) {
	h := newTestHandler(t)
	gw := &fakeGateway{}

	h.Handle(&fakeJobClient{gw: gw}, testJob(`{"age":15,"income":5000,"loan_amount":1000,"credit_history":"good"}`))

	assert.Empty(t, gw.completed)
	require.Len(t, gw.thrown, 1)
	assert.Equal(t, string(errors.ErrCodeValidationFailed), gw.thrown[0].ErrorCode)
}
