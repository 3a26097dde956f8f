// Package main generates sample metrics data for testing Grafana dashboards
// without pointing them at a real youtrackd instance.
//
// The exposition names match what the OTel prometheus exporter produces from
// the server's instruments (dots become underscores).
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tool metrics
	toolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "youtrackd_mcp_tool_invocations_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool"},
	)
	toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "youtrackd_mcp_tool_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
	toolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "youtrackd_mcp_tool_errors_total",
			Help: "Total number of tool errors",
		},
		[]string{"tool", "reason"},
	)
	toolActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "youtrackd_mcp_tool_active_requests",
			Help: "Currently executing tool invocations",
		},
		[]string{"tool"},
	)

	// HTTP sidecar metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "youtrackd_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "youtrackd_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "youtrackd_http_response_size_bytes",
			Help:    "HTTP response size",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"method", "endpoint", "status"},
	)
	httpActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "youtrackd_http_active_requests",
			Help: "Currently in-flight HTTP requests",
		},
	)
)

var (
	tools = []string{
		"get_issue", "search_issues", "create_issue", "update_issue",
		"add_comment", "update_issue_state", "update_custom_fields",
		"get_custom_fields", "link_issues", "add_work_item",
		"add_spent_time", "get_work_items", "get_projects",
		"get_current_user", "get_help",
	}
	errorReasons = []string{
		"not_found", "auth", "validation", "rate_limited", "timeout", "internal_error",
	}
	endpoints = []string{"/health", "/readyz", "/metrics"}
)

func init() {
	prometheus.MustRegister(
		toolInvocations,
		toolDuration,
		toolErrors,
		toolActive,
		httpRequestsTotal,
		httpRequestDuration,
		httpResponseSize,
		httpActive,
	)
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	generateSampleData()

	ctx, cancel := context.WithCancel(context.Background())
	go generateContinuousData(ctx)

	http.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
		server.Shutdown(context.Background())
	}()

	fmt.Printf("Sample metrics server running on http://localhost:%s/metrics\n", port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println("\nTo use with Prometheus, add this to prometheus.yml:")
	fmt.Printf("  - job_name: 'youtrackd-test'\n    static_configs:\n      - targets: ['localhost:%s']\n", port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func generateSampleData() {
	// Tool traffic skews toward reads
	for i := 0; i < 400; i++ {
		tool := randomChoice(tools)
		toolInvocations.WithLabelValues(tool).Inc()
		toolDuration.WithLabelValues(tool).Observe(0.05 + rand.Float64()*0.8)
	}
	for i := 0; i < 25; i++ {
		toolErrors.WithLabelValues(randomChoice(tools), randomChoice(errorReasons)).Inc()
	}
	for _, tool := range tools {
		toolActive.WithLabelValues(tool).Set(float64(rand.Intn(2)))
	}

	// Sidecar traffic is mostly scrapes and probes
	for i := 0; i < 200; i++ {
		endpoint := randomChoice(endpoints)
		status := "200"
		if endpoint == "/readyz" && rand.Float64() > 0.9 {
			status = "503"
		}
		httpRequestsTotal.WithLabelValues("GET", endpoint, status).Inc()
		httpRequestDuration.WithLabelValues("GET", endpoint, status).Observe(rand.Float64() * 0.3)
		httpResponseSize.WithLabelValues("GET", endpoint, status).Observe(float64(rand.Intn(8000) + 100))
	}
	httpActive.Set(float64(rand.Intn(3)))
}

func generateContinuousData(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rand.Float64() > 0.3 {
				tool := randomChoice(tools)
				toolInvocations.WithLabelValues(tool).Inc()
				toolDuration.WithLabelValues(tool).Observe(0.05 + rand.Float64()*0.8)
			}
			if rand.Float64() > 0.9 {
				toolErrors.WithLabelValues(randomChoice(tools), randomChoice(errorReasons)).Inc()
			}
			endpoint := randomChoice(endpoints)
			httpRequestsTotal.WithLabelValues("GET", endpoint, "200").Inc()
			httpRequestDuration.WithLabelValues("GET", endpoint, "200").Observe(rand.Float64() * 0.3)
			httpResponseSize.WithLabelValues("GET", endpoint, "200").Observe(float64(rand.Intn(8000) + 100))

			for _, tool := range tools {
				toolActive.WithLabelValues(tool).Set(float64(rand.Intn(2)))
			}
			httpActive.Set(float64(rand.Intn(3)))
		}
	}
}

func randomChoice(choices []string) string {
	return choices[rand.Intn(len(choices))]
}
