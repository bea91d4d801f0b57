// Package validation provides common validation utilities for configuration
// parameters across the ideaflow packages.
//
// The helpers return *errors.ValidationError values so callers can detect a
// configuration problem with errors.Is(err, errors.ErrInvalidConfiguration)
// regardless of which constructor or config section rejected it.
package validation
