// Package testutil holds assertion and polling helpers shared by the ideaflow
// test suites.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestTimeout is the default timeout for tests
const TestTimeout = 5 * time.Second

// WithTimeout creates a context with the default test timeout
func WithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), TestTimeout)
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertEqual fails the test if got != want
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// AssertNotEqual fails the test if got == want
func AssertNotEqual[T comparable](t *testing.T, got, notWant T) {
	t.Helper()
	if got == notWant {
		t.Fatalf("got %v, did not want it", got)
	}
}

// Eventually polls condition every interval until it returns true or timeout
// elapses, failing the test on timeout.
func Eventually(t *testing.T, condition func() bool, timeout, interval time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(interval)
	}
}

// EventuallyWithContext polls condition until it holds or ctx is done.
func EventuallyWithContext(t *testing.T, ctx context.Context, condition func() bool, interval time.Duration) {
	t.Helper()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if condition() {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("condition not met: %v", ctx.Err())
		case <-ticker.C:
		}
	}
}

// AssertEventually is Eventually with the default test timeout.
func AssertEventually(t *testing.T, condition func() bool) {
	t.Helper()
	Eventually(t, condition, TestTimeout, 10*time.Millisecond)
}

// WaitForInt32 waits until *addr reaches at least want.
func WaitForInt32(t *testing.T, addr *int32, want int32, timeout time.Duration) {
	t.Helper()
	Eventually(t, func() bool {
		return atomic.LoadInt32(addr) >= want
	}, timeout, 5*time.Millisecond)
}

// WaitForInt64 waits until *addr reaches at least want.
func WaitForInt64(t *testing.T, addr *int64, want int64, timeout time.Duration) {
	t.Helper()
	Eventually(t, func() bool {
		return atomic.LoadInt64(addr) >= want
	}, timeout, 5*time.Millisecond)
}

// CallbackTracker records invocations of a callback from any goroutine.
type CallbackTracker struct {
	mu    sync.Mutex
	count int
	value interface{}
}

// NewCallbackTracker creates an empty tracker.
func NewCallbackTracker() *CallbackTracker {
	return &CallbackTracker{}
}

// Mark records one call, optionally remembering the last value passed.
func (c *CallbackTracker) Mark(value ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if len(value) > 0 {
		c.value = value[0]
	}
}

// Called reports whether Mark was called at least once.
func (c *CallbackTracker) Called() bool {
	return c.CallCount() > 0
}

// CallCount returns the number of Mark calls.
func (c *CallbackTracker) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Value returns the last value passed to Mark.
func (c *CallbackTracker) Value() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Reset clears the recorded calls.
func (c *CallbackTracker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.value = nil
}

// AssertCalled fails the test if the callback never ran.
func (c *CallbackTracker) AssertCalled(t *testing.T) {
	t.Helper()
	if !c.Called() {
		t.Fatal("expected callback to be called")
	}
}

// AssertNotCalled fails the test if the callback ran.
func (c *CallbackTracker) AssertNotCalled(t *testing.T) {
	t.Helper()
	if c.Called() {
		t.Fatalf("expected callback not to be called, got %d calls", c.CallCount())
	}
}

// AssertCallCount fails the test unless the callback ran exactly want times.
func (c *CallbackTracker) AssertCallCount(t *testing.T, want int) {
	t.Helper()
	if got := c.CallCount(); got != want {
		t.Fatalf("call count = %d, want %d", got, want)
	}
}
