package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Scenario drives one merchant: sales are created with a receipt attached,
// an admin verifies them and concurrent withdrawals race for the balance.
type LoadTestConfig struct {
	BaseURL           string
	AdminID           string
	ClientID          string
	Sales             int
	SaleValue         int64
	Withdrawals       int
	WithdrawalValue   int64
	ConcurrentWorkers int
}

type Stats struct {
	name     string
	ok       atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
	mu       sync.Mutex
	times    []float64
}

func (s *Stats) record(d time.Duration, status int, err error) {
	s.mu.Lock()
	s.times = append(s.times, d.Seconds())
	s.mu.Unlock()

	switch {
	case err != nil || status >= 500:
		s.failed.Add(1)
	case status >= 400:
		s.rejected.Add(1)
	default:
		s.ok.Add(1)
	}
}

func (s *Stats) print() {
	s.mu.Lock()
	times := append([]float64(nil), s.times...)
	s.mu.Unlock()
	sort.Float64s(times)

	fmt.Printf("%-12s ok=%d rejected=%d failed=%d", s.name, s.ok.Load(), s.rejected.Load(), s.failed.Load())
	if len(times) > 0 {
		fmt.Printf(" p50=%.2fms p95=%.2fms p99=%.2fms",
			percentile(times, 0.50)*1000, percentile(times, 0.95)*1000, percentile(times, 0.99)*1000)
	}
	fmt.Println()
}

func percentile(sorted []float64, p float64) float64 {
	i := int(float64(len(sorted)) * p)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

type loader struct {
	cfg    LoadTestConfig
	client *http.Client
}

func (l *loader) do(method, path, actor string, body any, out any) (int, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, l.cfg.BaseURL+path, r)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", actor)

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// run fans n jobs out over the worker pool.
func (l *loader) run(n int, stats *Stats, job func() (int, error)) {
	jobs := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < l.cfg.ConcurrentWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				status, err := job()
				stats.record(time.Since(start), status, err)
			}
		}()
	}
	wg.Wait()
}

func (l *loader) sale() (int, error) {
	var txn struct {
		ID string `json:"id"`
	}
	status, err := l.do("POST", "/transactions", l.cfg.ClientID, map[string]any{
		"gross_value":  l.cfg.SaleValue,
		"brand":        "visa_master",
		"payment_type": "credit",
		"installments": 1,
		"evidence":     map[string]string{"receipt_url": "https://receipts.example.com/load.pdf"},
	}, &txn)
	if err != nil || status >= 300 {
		return status, err
	}
	return l.do("POST", "/transactions/"+txn.ID+"/verify", l.cfg.AdminID, nil, nil)
}

func (l *loader) withdrawal() (int, error) {
	return l.do("POST", "/withdrawals", l.cfg.ClientID, map[string]any{
		"amount": l.cfg.WithdrawalValue,
		"method": "pix",
		"destination": map[string]any{"pix": map[string]string{
			"pix_key":      "load@example.com",
			"pix_key_type": "email",
			"owner_name":   "Load Test",
		}},
	}, nil)
}

type balances struct {
	Available int64 `json:"available"`
	Pending   int64 `json:"pending"`
	Withdrawn int64 `json:"withdrawn"`
	Total     int64 `json:"total"`
}

func (l *loader) balances() (balances, error) {
	var b balances
	status, err := l.do("GET", "/clients/"+l.cfg.ClientID+"/balances", l.cfg.AdminID, nil, &b)
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("balances answered %d", status)
	}
	return b, err
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func main() {
	cfg := LoadTestConfig{
		BaseURL:           strings.TrimRight(getEnvOrDefault("TARGET_URL", "http://localhost:8080/api/v1"), "/"),
		AdminID:           getEnvOrDefault("ADMIN_ID", "admin-1"),
		ClientID:          getEnvOrDefault("CLIENT_ID", "client-1"),
		Sales:             getEnvIntOrDefault("SALES", 500),
		SaleValue:         int64(getEnvIntOrDefault("SALE_VALUE", 10000)),
		Withdrawals:       getEnvIntOrDefault("WITHDRAWALS", 1000),
		WithdrawalValue:   int64(getEnvIntOrDefault("WITHDRAWAL_VALUE", 5000)),
		ConcurrentWorkers: getEnvIntOrDefault("CONCURRENT_WORKERS", 50),
	}

	l := &loader{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        cfg.ConcurrentWorkers,
				MaxIdleConnsPerHost: cfg.ConcurrentWorkers,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 30 * time.Second,
		},
	}

	fmt.Println("Starting ledger load test...")
	fmt.Printf("Target: %s client=%s workers=%d\n", cfg.BaseURL, cfg.ClientID, cfg.ConcurrentWorkers)
	fmt.Println(strings.Repeat("-", 50))

	before, err := l.balances()
	if err != nil {
		fmt.Println("cannot read starting balances:", err)
		os.Exit(1)
	}

	start := time.Now()
	sales := &Stats{name: "sales"}
	l.run(cfg.Sales, sales, l.sale)
	withdrawals := &Stats{name: "withdrawals"}
	l.run(cfg.Withdrawals, withdrawals, l.withdrawal)
	elapsed := time.Since(start)

	after, err := l.balances()
	if err != nil {
		fmt.Println("cannot read final balances:", err)
		os.Exit(1)
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %.2fs\n", elapsed.Seconds())
	sales.print()
	withdrawals.print()
	fmt.Printf("Balances before: %+v\n", before)
	fmt.Printf("Balances after:  %+v\n", after)

	// no overdraft may slip through under contention
	if after.Available < 0 && before.Available >= 0 {
		fmt.Println("FAIL: available balance went negative")
		os.Exit(2)
	}
}
