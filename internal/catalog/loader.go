package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"codetrack/internal/tracker/model"
	"codetrack/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultFetchTimeout = 10 * time.Second

// Loader fetches the standard problem catalog from a static resource,
// either an HTTP(S) URL or a local file path.
//
// Failure is never fatal: a broken or unreachable catalog degrades to an
// empty one, logged at warn level. Callers must treat an empty catalog as
// "no standard problems available this session".
type Loader struct {
	source  string
	client  *http.Client
	timeout time.Duration
}

// NewLoader creates a Loader for the given source.
func NewLoader(source string) *Loader {
	return &Loader{
		source:  source,
		client:  &http.Client{Timeout: defaultFetchTimeout},
		timeout: defaultFetchTimeout,
	}
}

// payload mirrors the static resource shape: { "problems": [ ... ] }.
type payload struct {
	Problems []model.Problem `json:"problems"`
}

// Load fetches and parses the catalog. Every returned problem is marked
// standard regardless of what the payload says.
func (l *Loader) Load(ctx context.Context) []model.Problem {
	data, err := l.fetch(ctx)
	if err != nil {
		logger.Warn(ctx, "catalog unavailable, continuing with empty catalog",
			zap.String("source", l.source), zap.Error(err))
		return nil
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		logger.Warn(ctx, "catalog payload malformed, continuing with empty catalog",
			zap.String("source", l.source), zap.Error(err))
		return nil
	}
	if p.Problems == nil {
		logger.Warn(ctx, "catalog payload missing problems array, continuing with empty catalog",
			zap.String("source", l.source))
		return nil
	}

	for i := range p.Problems {
		p.Problems[i].IsStandard = true
	}
	logger.Info(ctx, "catalog loaded",
		zap.String("source", l.source), zap.Int("problems", len(p.Problems)))
	return p.Problems
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	if l.source == "" {
		return nil, fmt.Errorf("catalog source is empty")
	}

	if strings.HasPrefix(l.source, "http://") || strings.HasPrefix(l.source, "https://") {
		ctx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
		if err != nil {
			return nil, fmt.Errorf("build catalog request failed: %w", err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch catalog failed: status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read catalog body failed: %w", err)
		}
		return body, nil
	}

	data, err := os.ReadFile(l.source)
	if err != nil {
		return nil, fmt.Errorf("read catalog file failed: %w", err)
	}
	return data, nil
}
