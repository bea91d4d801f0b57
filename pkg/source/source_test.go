package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/ideaflow/internal/testutil"
	gferrors "github.com/vnykmshr/ideaflow/pkg/common/errors"
)

func take(t *testing.T, s Source, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, err := s.Next(context.Background())
		testutil.AssertNoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestCycle_WrapsAround(t *testing.T) {
	c, err := NewCycle([]string{"a", "b", "c"})
	testutil.AssertNoError(t, err)

	if diff := cmp.Diff([]string{"a", "b", "c", "a", "b"}, take(t, c, 5)); diff != "" {
		t.Errorf("sequence (-want +got):\n%s", diff)
	}
	testutil.AssertEqual(t, c.Len(), 3)
}

func TestCycle_Empty(t *testing.T) {
	if _, err := NewCycle(nil); !gferrors.IsValidationError(err) {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestCycle_ShuffleDeterministic(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	a, _ := NewCycle(items, WithShuffle(42))
	b, _ := NewCycle(items, WithShuffle(42))

	first := take(t, a, len(items))
	if diff := cmp.Diff(first, take(t, b, len(items))); diff != "" {
		t.Errorf("same seed differs (-a +b):\n%s", diff)
	}

	sorted := append([]string(nil), first...)
	sort.Strings(sorted)
	if diff := cmp.Diff(items, sorted); diff != "" {
		t.Errorf("shuffle lost items (-want +got):\n%s", diff)
	}
	// the caller's slice is left alone
	testutil.AssertEqual(t, items[0], "a")
}

func TestCycle_Canceled(t *testing.T) {
	c, _ := NewCycle([]string{"a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Next(ctx)
	testutil.AssertError(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.jsonl")
	content := "a retired ship captain\n\n" +
		`{"persona": "a beekeeper in Oslo"}` + "\n" +
		`{"persona": ""}` + "\n" +
		"  a night-shift nurse  \n"
	testutil.AssertNoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := FromFile(path)
	testutil.AssertNoError(t, err)

	want := []string{"a retired ship captain", "a beekeeper in Oslo", "a night-shift nurse"}
	if diff := cmp.Diff(want, take(t, c, 3)); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
}

func TestFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := FromFile(filepath.Join(dir, "missing.txt"))
	testutil.AssertError(t, err)

	bad := filepath.Join(dir, "bad.jsonl")
	testutil.AssertNoError(t, os.WriteFile(bad, []byte("{not json\n"), 0o600))
	_, err = FromFile(bad)
	var opErr *gferrors.OperationError
	if !asOp(err, &opErr) || opErr.Context != bad+":1" {
		t.Errorf("got %v, want OperationError with line context", err)
	}

	empty := filepath.Join(dir, "empty.txt")
	testutil.AssertNoError(t, os.WriteFile(empty, []byte("\n\n"), 0o600))
	_, err = FromFile(empty)
	testutil.AssertEqual(t, gferrors.IsValidationError(err), true)
}

func asOp(err error, target **gferrors.OperationError) bool {
	op, ok := err.(*gferrors.OperationError)
	if ok {
		*target = op
	}
	return ok
}

func TestHTTP(t *testing.T) {
	personas := []string{"a cartographer", "a jazz drummer"}
	i := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/next_persona" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(Record{Persona: personas[i%len(personas)]})
		i++
	}))
	defer srv.Close()

	h, err := NewHTTP(srv.URL+"/", nil)
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff([]string{"a cartographer", "a jazz drummer", "a cartographer"}, take(t, h, 3)); diff != "" {
		t.Errorf("sequence (-want +got):\n%s", diff)
	}
}

func TestHTTP_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "dataset not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h, _ := NewHTTP(srv.URL, nil)
	_, err := h.Next(context.Background())
	testutil.AssertError(t, err)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"persona": ""}`))
	}))
	defer empty.Close()
	h, _ = NewHTTP(empty.URL, nil)
	_, err = h.Next(context.Background())
	testutil.AssertError(t, err)

	_, err = NewHTTP("", nil)
	testutil.AssertEqual(t, gferrors.IsValidationError(err), true)
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("redis not available on localhost:6379")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_Validation(t *testing.T) {
	_, err := NewRedis(nil, "k")
	testutil.AssertEqual(t, gferrors.IsValidationError(err), true)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	_, err = NewRedis(client, "")
	testutil.AssertEqual(t, gferrors.IsValidationError(err), true)
}

func TestRedis_Rotates(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	key := "ideaflow:test:personas"
	t.Cleanup(func() { client.Del(context.Background(), key) })

	r, err := NewRedis(client, key)
	testutil.AssertNoError(t, err)

	client.Del(ctx, key)
	_, err = r.Next(ctx)
	testutil.AssertError(t, err)

	testutil.AssertNoError(t, r.Load(ctx, []string{"x", "y"}))
	if diff := cmp.Diff([]string{"x", "y", "x", "y"}, take(t, r, 4)); diff != "" {
		t.Errorf("sequence (-want +got):\n%s", diff)
	}
	n, err := r.Len(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, int64(2))
}
