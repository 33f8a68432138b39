package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Drives requests through the notifying server and reports response latency,
// which should stay flat regardless of how slow the webhook target is.
func main() {
	targetURL := flag.String("url", "http://localhost:8080/load-test", "Target URL behind the notifier")
	method := flag.String("method", http.MethodGet, "HTTP method to send")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Requests per second limit")
	flag.Parse()

	log.Printf("Starting load test on %s %s", *method, *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	var mu sync.Mutex
	latencies := make([]time.Duration, 0, *rps)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: *concurrency,
		},
	}

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				req, err := http.NewRequestWithContext(ctx, *method, *targetURL, nil)
				if err != nil {
					log.Printf("bad request: %v", err)
					return
				}
				req.Header.Set("X-Request-ID", uuid.NewString())

				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						errorCount.Add(1)
					}
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				elapsed := time.Since(start)

				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					successCount.Add(1)
				} else {
					errorCount.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	total := successCount.Load() + errorCount.Load()
	log.Println("--- Load Test Finished ---")
	log.Printf("Total Requests: %d", total)
	log.Printf("Successful (2xx): %d", successCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", float64(total)/duration.Seconds())

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		log.Printf("Latency p50: %s, p99: %s, max: %s",
			percentile(latencies, 0.50), percentile(latencies, 0.99), latencies[len(latencies)-1])
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
