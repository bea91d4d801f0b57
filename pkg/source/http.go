package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
)

// HTTP reads entries from a persona service exposing GET /next_persona.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP creates an HTTP source rooted at baseURL. A nil client gets a 10s
// timeout.
func NewHTTP(baseURL string, client *http.Client) (*HTTP, error) {
	if err := validation.ValidateNotEmpty("source", "url", baseURL); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{url: strings.TrimRight(baseURL, "/") + "/next_persona", client: client}, nil
}

// Next implements Source.
func (h *HTTP) Next(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return "", errors.NewOperationError("source", "Next", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", errors.NewOperationError("source", "Next", err).WithContext(h.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", errors.NewOperationError("source", "Next",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))).WithContext(h.url)
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return "", errors.NewOperationError("source", "Next", err).WithContext(h.url)
	}
	if rec.Persona == "" {
		return "", errors.NewOperationError("source", "Next", fmt.Errorf("empty persona")).WithContext(h.url)
	}
	return rec.Persona, nil
}
