// Package bench drives transfer load against a running API and reports
// throughput and outcome counts.
package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

const (
	WorkloadUniform = "uniform"
	WorkloadHotspot = "hotspot"
)

type Options struct {
	TargetURL   string
	Concurrency int
	Duration    time.Duration
	Workload    string
	// Accounts is the number of seeded accounts, ids 1..Accounts.
	Accounts int
	Amount   decimal.Decimal
}

// Results is printed as JSON for the plotting scripts.
type Results struct {
	Workload       string  `json:"workload"`
	DurationSec    float64 `json:"duration_sec"`
	TotalRequests  uint64  `json:"total_requests"`
	ThroughputTPS  float64 `json:"throughput_tps"`
	Committed      uint64  `json:"success_created"`
	Rejected       uint64  `json:"rejected_unprocessable"`
	Busy           uint64  `json:"aborts_busy"`
	BusyRatePct    float64 `json:"abort_rate_pct"`
	Errors         uint64  `json:"errors"`
	TransportError uint64  `json:"transport_errors"`
}

type counters struct {
	total     atomic.Uint64
	created   atomic.Uint64
	rejected  atomic.Uint64
	busy      atomic.Uint64
	failOther atomic.Uint64
	transport atomic.Uint64
}

func Run(ctx context.Context, opts Options) (*Results, error) {
	if opts.Workload != WorkloadUniform && opts.Workload != WorkloadHotspot {
		return nil, fmt.Errorf("workload must be %q or %q", WorkloadUniform, WorkloadHotspot)
	}
	if opts.Accounts < 2 {
		return nil, fmt.Errorf("need at least 2 accounts, got %d", opts.Accounts)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	var c counters
	start := time.Now()
	var wg sync.WaitGroup
	for range opts.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, opts, &c)
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	total := c.total.Load()
	r := &Results{
		Workload:       opts.Workload,
		DurationSec:    elapsed.Seconds(),
		TotalRequests:  total,
		ThroughputTPS:  float64(total) / elapsed.Seconds(),
		Committed:      c.created.Load(),
		Rejected:       c.rejected.Load(),
		Busy:           c.busy.Load(),
		Errors:         c.failOther.Load(),
		TransportError: c.transport.Load(),
	}
	if total > 0 {
		r.BusyRatePct = float64(r.Busy) / float64(total) * 100
	}
	return r, nil
}

func worker(ctx context.Context, opts Options, c *counters) {
	client := &http.Client{Timeout: 5 * time.Second}
	url := opts.TargetURL + "/api/v1/transfers"

	for ctx.Err() == nil {
		from, to := pickAccounts(opts.Workload, opts.Accounts)
		body, _ := json.Marshal(map[string]any{
			"from_account_id": from,
			"to_account_id":   to,
			"amount":          opts.Amount,
		})

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			c.transport.Add(1)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				c.transport.Add(1)
			}
			continue
		}
		resp.Body.Close()

		c.total.Add(1)
		switch resp.StatusCode {
		case http.StatusCreated:
			c.created.Add(1)
		case http.StatusUnprocessableEntity:
			c.rejected.Add(1)
		case http.StatusServiceUnavailable:
			c.busy.Add(1)
		default:
			c.failOther.Add(1)
		}
	}
}

// pickAccounts returns a distinct pair. The hotspot workload sends 90% of
// traffic between accounts 1 and 2.
func pickAccounts(workload string, n int) (int64, int64) {
	if workload == WorkloadHotspot && rand.Float32() < 0.90 {
		if rand.Float32() < 0.5 {
			return 1, 2
		}
		return 2, 1
	}

	a := rand.IntN(n) + 1
	b := rand.IntN(n) + 1
	for a == b {
		b = rand.IntN(n) + 1
	}
	return int64(a), int64(b)
}
