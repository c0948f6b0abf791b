// Package seed supplies the starter dataset used when the registry starts with
// no prior data.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
	"github.com/twiced-technology-gmbh/equilibrium/internal/task"
	"github.com/twiced-technology-gmbh/equilibrium/internal/tracing"
)

// DefaultTimeout bounds a single seed fetch.
const DefaultTimeout = 5 * time.Second

// maxBody caps the size of a remote seed document.
const maxBody = 4 << 20

//go:embed default.json
var defaultSeed []byte

// ErrInvalid is returned when a seed document cannot be decoded.
var ErrInvalid = errors.New("invalid seed")

// Seed is the starter dataset.
type Seed struct {
	DailyCapacity float64     `json:"dailyCapacity"`
	Tasks         []task.Task `json:"tasks"`
}

// Source fetches a seed. Implementations must honor ctx cancellation.
type Source interface {
	Fetch(ctx context.Context) (*Seed, error)
}

// Decode parses a seed document.
func Decode(data []byte) (*Seed, error) {
	var s Seed
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if s.Tasks == nil {
		s.Tasks = []task.Task{}
	}
	return &s, nil
}

// Embedded serves the dataset bundled into the binary.
type Embedded struct{}

// Fetch implements Source.
func (Embedded) Fetch(ctx context.Context) (*Seed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(defaultSeed)
}

// File reads a seed from a JSON file on disk.
type File struct {
	Path string
}

// Fetch implements Source.
func (f File) Fetch(ctx context.Context) (*Seed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return Decode(data)
}

// HTTP downloads a seed document.
type HTTP struct {
	URL    string
	Client *http.Client
}

// Fetch implements Source. Non-2xx responses are errors.
func (h HTTP) Fetch(ctx context.Context) (*Seed, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building seed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching seed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching seed: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading seed response: %w", err)
	}
	return Decode(data)
}

// SourceNone disables seeding.
const SourceNone = "none"

// FromConfig picks a Source from a configured value: "" or "embedded" for the
// bundled dataset, "none" to start empty, an http(s) URL, or a file path.
func FromConfig(source string) Source {
	s := strings.TrimSpace(source)
	switch {
	case s == SourceNone:
		return nil
	case s == "" || s == "embedded":
		return Embedded{}
	case strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"):
		return HTTP{URL: s}
	default:
		return File{Path: s}
	}
}

// Fetch runs src with a timeout. A non-positive timeout means DefaultTimeout.
func Fetch(ctx context.Context, src Source, timeout time.Duration) (*Seed, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	kind := fmt.Sprintf("%T", src)
	ctx, span := tracing.Start(ctx, "seed.fetch", attribute.String(tracing.AttrSeedSource, kind))
	defer span.End()

	start := time.Now()
	s, err := src.Fetch(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		log.ErrorErr(log.CatSeed, "seed fetch failed", err, "source", kind)
		return nil, err
	}
	span.SetAttributes(attribute.Int(tracing.AttrTaskCount, len(s.Tasks)))
	log.Debug(log.CatSeed, "seed fetched", "tasks", len(s.Tasks), "took", time.Since(start))
	return s, nil
}
