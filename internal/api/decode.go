package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"credit-scoring/internal/common/errors"
)

func readBody(r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.NewRequestTooLargeError(limit)
		}
		return nil, errors.NewInternalError(fmt.Errorf("read request body: %w", err))
	}
	return body, nil
}

// decodeValidated decodes a body that already passed schema validation.
// Integral numbers written with a fraction (30.0) are accepted for int fields
// because the schema treats them as integers.
func decodeValidated(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return errors.NewInternalError(err)
	}
	normalized, err := json.Marshal(integralNumbers(doc))
	if err != nil {
		return errors.NewInternalError(err)
	}
	if err := json.Unmarshal(normalized, v); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

func integralNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = integralNumbers(e)
		}
	case []interface{}:
		for i, e := range t {
			t[i] = integralNumbers(e)
		}
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return t
		}
		if f, err := t.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return json.Number(strconv.FormatInt(int64(f), 10))
		}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
