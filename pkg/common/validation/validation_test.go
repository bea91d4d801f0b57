package validation

import (
	"testing"
	"time"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"positive value 1", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("pipeline", "rate_batch", tt.value)
			checkResult(t, err, tt.wantError)
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 3, false},
		{"zero value", 0, false},
		{"negative value", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("pipeline", "depth_cap", tt.value)
			checkResult(t, err, tt.wantError)
		})
	}
}

func TestValidatePositiveFloat(t *testing.T) {
	checkResult(t, ValidatePositiveFloat("ratelimit", "rate", 0.5), false)
	checkResult(t, ValidatePositiveFloat("ratelimit", "rate", 0), true)
	checkResult(t, ValidatePositiveFloat("ratelimit", "rate", -2), true)
}

func TestValidatePositiveDuration(t *testing.T) {
	checkResult(t, ValidatePositiveDuration("worker", "interval", 50*time.Millisecond), false)
	checkResult(t, ValidatePositiveDuration("worker", "interval", 0), true)
	checkResult(t, ValidatePositiveDuration("worker", "interval", -time.Second), true)
}

func TestValidateNotNil(t *testing.T) {
	checkResult(t, ValidateNotNil("worker", "stage", struct{}{}), false)
	checkResult(t, ValidateNotNil("worker", "stage", nil), true)
}

func TestValidateNotEmpty(t *testing.T) {
	checkResult(t, ValidateNotEmpty("coordinator", "name", "seed_queue"), false)
	checkResult(t, ValidateNotEmpty("coordinator", "name", ""), true)
}

func TestValidateOneOf(t *testing.T) {
	checkResult(t, ValidateOneOf("config", "source.kind", "file", "static", "file", "http"), false)

	err := ValidateOneOf("config", "source.kind", "ftp", "static", "file", "http")
	checkResult(t, err, true)

	verr := err.(*errors.ValidationError)
	if verr.Hint != "use one of: static, file, http" {
		t.Errorf("Hint = %q", verr.Hint)
	}
}

func checkResult(t *testing.T, err error, wantError bool) {
	t.Helper()
	if wantError {
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.IsValidationError(err) {
			t.Errorf("expected ValidationError, got %T", err)
		}
		return
	}
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
