package bench

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickAccounts(t *testing.T) {
	for range 1000 {
		a, b := pickAccounts(WorkloadUniform, 3)
		assert.NotEqual(t, a, b)
		assert.True(t, a >= 1 && a <= 3)
		assert.True(t, b >= 1 && b <= 3)
	}

	hot := 0
	for range 1000 {
		a, b := pickAccounts(WorkloadHotspot, 1000)
		if (a == 1 && b == 2) || (a == 2 && b == 1) {
			hot++
		}
	}
	assert.Greater(t, hot, 800)
}

func TestRun(t *testing.T) {
	var n atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch n.Add(1) % 3 {
		case 0:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 1:
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
	}))
	defer srv.Close()

	res, err := Run(context.Background(), Options{
		TargetURL:   srv.URL,
		Concurrency: 2,
		Duration:    100 * time.Millisecond,
		Workload:    WorkloadUniform,
		Accounts:    10,
		Amount:      decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	require.NotZero(t, res.TotalRequests)
	assert.Equal(t, res.TotalRequests, res.Committed+res.Rejected+res.Busy+res.Errors)
	assert.NotZero(t, res.Committed)
}

func TestRun_InvalidOptions(t *testing.T) {
	_, err := Run(context.Background(), Options{Workload: "burst", Accounts: 10})
	require.Error(t, err)

	_, err = Run(context.Background(), Options{Workload: WorkloadUniform, Accounts: 1})
	require.Error(t, err)
}
