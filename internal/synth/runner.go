package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vvka-141/imdbload/internal/api"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// Task weights: three single inserts for every batch insert.
const (
	singleWeight = 3
	batchWeight  = 1
)

// Config controls a load generation run.
type Config struct {
	Host      string
	Users     int
	Duration  time.Duration
	BatchSize int
	ThinkMin  time.Duration
	ThinkMax  time.Duration
	Seed      uint64
}

// DefaultConfig mirrors a small interactive run.
func DefaultConfig() Config {
	return Config{
		Host:      "http://localhost:8000",
		Users:     10,
		Duration:  time.Minute,
		BatchSize: 50,
		ThinkMin:  time.Second,
		ThinkMax:  2 * time.Second,
		Seed:      uint64(time.Now().UnixNano()),
	}
}

func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Host) == "":
		return fmt.Errorf("%w: host is required", imdbload.ErrInvalidConfig)
	case c.Users < 1:
		return fmt.Errorf("%w: users must be at least 1", imdbload.ErrInvalidConfig)
	case c.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive", imdbload.ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be at least 1", imdbload.ErrInvalidConfig)
	case c.ThinkMin < 0 || c.ThinkMax < c.ThinkMin:
		return fmt.Errorf("%w: think time range is invalid", imdbload.ErrInvalidConfig)
	}
	return nil
}

// Stats counts requests by outcome.
type Stats struct {
	Singles  int64
	Batches  int64
	Records  int64
	Failures int64
}

func (s Stats) String() string {
	return fmt.Sprintf("single=%d batch=%d records=%d failures=%d", s.Singles, s.Batches, s.Records, s.Failures)
}

type counters struct {
	singles, batches, records, failures atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Singles:  c.singles.Load(),
		Batches:  c.batches.Load(),
		Records:  c.records.Load(),
		Failures: c.failures.Load(),
	}
}

// Runner drives simulated users against the façade.
type Runner struct {
	cfg    Config
	gen    *Generator
	client *http.Client
	logger imdbload.Logger
}

// NewRunner panics if logger is nil. A nil client uses a 30s timeout client.
func NewRunner(cfg Config, client *http.Client, logger imdbload.Logger) *Runner {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return &Runner{cfg: cfg, gen: NewGenerator(cfg.Seed), client: client, logger: logger}
}

// Run starts the users and waits until the duration elapses or ctx is
// canceled. Failed requests are counted, not returned.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if err := r.cfg.Validate(); err != nil {
		return Stats{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	var c counters
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Users; i++ {
		rnd := rand.New(rand.NewPCG(r.cfg.Seed, uint64(i)+1))
		g.Go(func() error {
			r.user(ctx, rnd, &c)
			return nil
		})
	}
	err := g.Wait()
	stats := c.snapshot()
	r.logger.Info("Load generation finished: %s", stats)
	return stats, err
}

func (r *Runner) user(ctx context.Context, rnd *rand.Rand, c *counters) {
	for ctx.Err() == nil {
		if pickBatch(rnd) {
			items := r.gen.Batch(r.cfg.BatchSize)
			err := r.post(ctx, "/name_basics/batch", map[string]any{"items": items, "upsert": true})
			r.record(ctx, c, err, &c.batches, int64(len(items)))
		} else {
			err := r.post(ctx, "/name_basics", r.gen.Record())
			r.record(ctx, c, err, &c.singles, 1)
		}

		select {
		case <-ctx.Done():
		case <-time.After(thinkTime(rnd, r.cfg.ThinkMin, r.cfg.ThinkMax)):
		}
	}
}

func (r *Runner) record(ctx context.Context, c *counters, err error, kind *atomic.Int64, records int64) {
	if err != nil {
		// A request cut short by the end of the run is not a failure.
		if ctx.Err() != nil {
			return
		}
		c.failures.Add(1)
		r.logger.Verbose("request failed: %v", err)
		return
	}
	kind.Add(1)
	c.records.Add(records)
}

func (r *Runner) post(ctx context.Context, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Host+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		var e api.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		return fmt.Errorf("POST %s: %s: %s", path, resp.Status, e.Error.Message)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func pickBatch(rnd *rand.Rand) bool {
	return rnd.IntN(singleWeight+batchWeight) >= singleWeight
}

func thinkTime(rnd *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rnd.Int64N(int64(hi-lo)))
}
