package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "credit-scoring/internal/common/errors"
)

func TestApplicationRecord_Valid(t *testing.T) {
	result := ApplicationRecord.ValidateJSON([]byte(`{"age":35,"income":8000,"loan_amount":2000,"credit_history":"good"}`))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.NoError(t, result.Err())
}

func TestApplicationRecord_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		code  string
	}{
		{"age below range", `{"age":15,"income":1,"loan_amount":1,"credit_history":"good"}`, "age", "number_gte"},
		{"age above range", `{"age":101,"income":1,"loan_amount":1,"credit_history":"good"}`, "age", "number_lte"},
		{"age not integer", `{"age":30.5,"income":1,"loan_amount":1,"credit_history":"good"}`, "age", "invalid_type"},
		{"zero income", `{"age":30,"income":0,"loan_amount":1,"credit_history":"good"}`, "income", "number_gt"},
		{"negative loan", `{"age":30,"income":1,"loan_amount":-5,"credit_history":"good"}`, "loan_amount", "number_gt"},
		{"unknown history", `{"age":30,"income":1,"loan_amount":1,"credit_history":"invalid"}`, "credit_history", "enum"},
		{"missing history", `{"age":30,"income":1,"loan_amount":1}`, "credit_history", "required"},
		{"string age", `{"age":"thirty","income":1,"loan_amount":1,"credit_history":"good"}`, "age", "invalid_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ApplicationRecord.ValidateJSON([]byte(tt.body))
			require.False(t, result.Valid)
			require.True(t, result.HasErrors(tt.field), "errors: %v", result.GetErrorMessages())

			for _, fe := range result.Errors {
				if fe.Field == tt.field {
					assert.Equal(t, tt.code, fe.Code)
				}
			}
			assert.True(t, apperrors.HasCode(result.Err(), apperrors.ErrCodeValidationFailed))
		})
	}
}

func TestApplicationRecord_MultipleErrorsSorted(t *testing.T) {
	result := ApplicationRecord.ValidateJSON([]byte(`{"age":15,"income":0}`))
	require.False(t, result.Valid)

	fields := make([]string, 0, len(result.Errors))
	for _, fe := range result.Errors {
		fields = append(fields, fe.Field)
	}
	assert.IsIncreasing(t, fields)
	assert.Contains(t, fields, "loan_amount")
	assert.Contains(t, fields, "credit_history")
}

func TestValidateJSON_MalformedBody(t *testing.T) {
	for _, body := range []string{"", "   ", "{not json"} {
		result := ApplicationRecord.ValidateJSON([]byte(body))
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "body", result.Errors[0].Field)
		assert.Equal(t, "invalid_json", result.Errors[0].Code)
	}
}

func TestValidateJSON_NonObject(t *testing.T) {
	result := ApplicationRecord.ValidateJSON([]byte(`[1,2,3]`))
	require.False(t, result.Valid)
	assert.True(t, result.HasErrors("body"))
}

func TestCreditDefaultApplication(t *testing.T) {
	valid := map[string]interface{}{
		"LIMIT_BAL": 50000.0, "SEX": 2, "EDUCATION": 2, "MARRIAGE": 1, "AGE": 35,
		"PAY_0": 0, "PAY_2": 0, "PAY_3": 0, "PAY_4": 0, "PAY_5": 0, "PAY_6": 0,
		"BILL_AMT1": 1000.0, "BILL_AMT2": 1000.0, "BILL_AMT3": 1000.0,
		"BILL_AMT4": 1000.0, "BILL_AMT5": 1000.0, "BILL_AMT6": 1000.0,
		"PAY_AMT1": 100.0, "PAY_AMT2": 100.0, "PAY_AMT3": 100.0,
		"PAY_AMT4": 100.0, "PAY_AMT5": 100.0, "PAY_AMT6": 100.0,
	}
	assert.True(t, CreditDefaultApplication.ValidateInput(valid).Valid)

	valid["PAY_0"] = 9
	valid["SEX"] = 3
	result := CreditDefaultApplication.ValidateInput(valid)
	require.False(t, result.Valid)
	assert.True(t, result.HasErrors("PAY_0"))
	assert.True(t, result.HasErrors("SEX"))

	delete(valid, "LIMIT_BAL")
	assert.True(t, CreditDefaultApplication.ValidateInput(valid).HasErrors("LIMIT_BAL"))
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	assert.Error(t, err)
}
