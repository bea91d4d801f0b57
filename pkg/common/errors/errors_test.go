package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrClosed", ErrClosed, "resource is closed"},
		{"ErrTimeout", ErrTimeout, "operation timed out"},
		{"ErrCapacityExceeded", ErrCapacityExceeded, "capacity exceeded"},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
		{"ErrRateLimited", ErrRateLimited, "rate limited"},
		{"ErrQueueNotFound", ErrQueueNotFound, "queue not found"},
		{"ErrEnrichment", ErrEnrichment, "enrichment failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err: &ValidationError{
				Module: "pipeline",
				Field:  "depth_cap",
				Value:  -1,
				Reason: "cannot be negative",
			},
			want: "pipeline: invalid depth_cap=-1 (cannot be negative)",
		},
		{
			name: "with hint",
			err: &ValidationError{
				Module: "pipeline",
				Field:  "rate_batch",
				Value:  0,
				Reason: "must be positive",
				Hint:   "use a value greater than 0",
			},
			want: "pipeline: invalid rate_batch=0 (must be positive) - use a value greater than 0",
		},
		{
			name: "string value",
			err: &ValidationError{
				Module: "coordinator",
				Field:  "queue",
				Value:  "",
				Reason: "cannot be empty",
			},
			want: "coordinator: invalid queue= (cannot be empty)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	verr := NewValidationError("queue", "priority", nil, "cannot be nil")

	if verr.Unwrap() != ErrInvalidConfiguration {
		t.Errorf("Unwrap() = %v, want ErrInvalidConfiguration", verr.Unwrap())
	}
	if !errors.Is(verr, ErrInvalidConfiguration) {
		t.Error("ValidationError should wrap ErrInvalidConfiguration")
	}
}

func TestValidationError_WithHint(t *testing.T) {
	err := NewValidationError("worker", "interval", 0, "invalid").
		WithHint("try using a positive value")

	if err.Hint != "try using a positive value" {
		t.Errorf("Hint = %q, want %q", err.Hint, "try using a positive value")
	}
	if err.WithHint("new hint") != err {
		t.Error("WithHint should return the same instance")
	}
}

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{
			name: "without context",
			err: &OperationError{
				Module:    "queue",
				Operation: "Push",
				Cause:     errors.New("priority failed"),
			},
			want: "queue.Push failed: priority failed",
		},
		{
			name: "with context",
			err: &OperationError{
				Module:    "coordinator",
				Operation: "Evolve",
				Cause:     errors.New("upstream 500"),
				Context:   "model llama",
			},
			want: "coordinator.Evolve failed: upstream 500 (model llama)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	opErr := NewOperationError("test", "test", cause).WithContext("ctx")

	if opErr.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", opErr.Unwrap(), cause)
	}
	if !errors.Is(opErr, cause) {
		t.Error("OperationError should wrap the cause error")
	}
	if opErr.Context != "ctx" {
		t.Errorf("Context = %q, want ctx", opErr.Context)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		retryable  bool
		temporary  bool
		validation bool
	}{
		{"timeout", ErrTimeout, true, true, false},
		{"rate limited", ErrRateLimited, true, false, false},
		{"capacity exceeded", ErrCapacityExceeded, false, true, false},
		{"closed", ErrClosed, false, false, false},
		{"wrapped timeout", &OperationError{Cause: ErrTimeout}, true, true, false},
		{"validation", NewValidationError("m", "f", 0, "r"), false, false, true},
		{"wrapped validation", &OperationError{Cause: NewValidationError("m", "f", 0, "r")}, false, false, true},
		{"random", errors.New("random"), false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
			if got := IsTemporary(tt.err); got != tt.temporary {
				t.Errorf("IsTemporary() = %v, want %v", got, tt.temporary)
			}
			if got := IsValidationError(tt.err); got != tt.validation {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.validation)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := NewValidationError("pipeline", "explore_batch", 42, "must be less than 10").
		WithHint("use a value between 1 and 10")

	msg := err.Error()
	for _, part := range []string{"pipeline", "explore_batch", "42", "must be less than 10", "use a value between 1 and 10"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error message should contain %q, got %q", part, msg)
		}
	}
}
