package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/parley/config"
)

// Telemetry provides monitoring and cost tracking for interview turns
// and the LLM calls behind them.
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	metrics     *Metrics
	costTracker *CostTracker
	registry    *prometheus.Registry
	stop        chan struct{}

	turnsTotal     *prometheus.CounterVec
	fallbacksTotal prometheus.Counter
	questionsTotal *prometheus.CounterVec
	llmRequests    *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
}

// Metrics holds aggregate performance counters.
type Metrics struct {
	mu sync.RWMutex

	// Turn metrics
	TotalTurns      int64
	FallbackTurns   int64
	AverageTurnTime time.Duration

	// Decision metrics
	DecisionCounts map[string]int64

	// Question source metrics
	QuestionSources map[string]int64

	// LLM metrics
	LLMRequests    map[string]int64
	LLMFailures    map[string]int64
	LLMTokensUsed  map[string]int64
	LLMAverageTime map[string]time.Duration
}

// CostTracker tracks spend across LLM task families.
type CostTracker struct {
	mu sync.RWMutex

	TaskCosts   map[string]float64 // task -> cost
	TotalCost   float64
	TotalTokens int64
}

// TurnEvent represents one orchestrated interview turn.
type TurnEvent struct {
	SessionID      string
	QuestionNumber int
	Action         string
	Fallback       bool
	Duration       time.Duration
	Success        bool
	Error          string
}

// LLMEvent represents a single LLM call.
type LLMEvent struct {
	Task         string
	Success      bool
	Duration     time.Duration
	InputTokens  int64
	OutputTokens int64
	Cost         float64
}

// NewTelemetry creates a new telemetry instance with its own prometheus registry.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	t := &Telemetry{
		config:   cfg,
		logger:   log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		registry: registry,
		stop:     make(chan struct{}),
		metrics: &Metrics{
			DecisionCounts:  make(map[string]int64),
			QuestionSources: make(map[string]int64),
			LLMRequests:     make(map[string]int64),
			LLMFailures:     make(map[string]int64),
			LLMTokensUsed:   make(map[string]int64),
			LLMAverageTime:  make(map[string]time.Duration),
		},
		costTracker: &CostTracker{
			TaskCosts: make(map[string]float64),
		},
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_turns_total",
			Help: "Interview turns served, labelled by decided action.",
		}, []string{"action"}),
		fallbacksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_fallback_turns_total",
			Help: "Turns that degraded to a fallback response.",
		}),
		questionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_questions_total",
			Help: "Questions served, labelled by source (question_bank, generated, fallback).",
		}, []string{"source"}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_llm_requests_total",
			Help: "LLM calls, labelled by task family and outcome.",
		}, []string{"task", "outcome"}),
		llmLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parley_llm_request_seconds",
			Help:    "LLM call latency by task family.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
	}

	if cfg.Enabled && cfg.PeriodicLogs {
		go t.startPeriodicReporting()
	}

	return t
}

// Registry exposes the prometheus registry for the /metrics endpoint.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// RecordTurn records a completed interview turn.
func (t *Telemetry) RecordTurn(ctx context.Context, event TurnEvent) {
	if !t.config.Enabled {
		return
	}

	t.turnsTotal.WithLabelValues(event.Action).Inc()
	if event.Fallback {
		t.fallbacksTotal.Inc()
	}

	t.metrics.mu.Lock()
	defer t.metrics.mu.Unlock()

	t.metrics.TotalTurns++
	if event.Fallback {
		t.metrics.FallbackTurns++
	}
	t.metrics.DecisionCounts[event.Action]++

	if t.metrics.TotalTurns == 1 {
		t.metrics.AverageTurnTime = event.Duration
	} else {
		total := t.metrics.AverageTurnTime * time.Duration(t.metrics.TotalTurns-1)
		t.metrics.AverageTurnTime = (total + event.Duration) / time.Duration(t.metrics.TotalTurns)
	}

	t.logger.Printf("Turn: session=%s q=%d action=%s fallback=%t duration=%v",
		event.SessionID, event.QuestionNumber, event.Action, event.Fallback, event.Duration)
}

// RecordQuestion records where a served question came from.
func (t *Telemetry) RecordQuestion(source string) {
	if !t.config.Enabled {
		return
	}
	t.questionsTotal.WithLabelValues(source).Inc()

	t.metrics.mu.Lock()
	t.metrics.QuestionSources[source]++
	t.metrics.mu.Unlock()
}

// RecordLLM records a single LLM call with its usage and cost.
func (t *Telemetry) RecordLLM(ctx context.Context, event LLMEvent) {
	if !t.config.Enabled {
		return
	}

	outcome := "success"
	if !event.Success {
		outcome = "error"
	}
	t.llmRequests.WithLabelValues(event.Task, outcome).Inc()
	t.llmLatency.WithLabelValues(event.Task).Observe(event.Duration.Seconds())

	t.metrics.mu.Lock()
	t.metrics.LLMRequests[event.Task]++
	if !event.Success {
		t.metrics.LLMFailures[event.Task]++
	}
	tokens := event.InputTokens + event.OutputTokens
	t.metrics.LLMTokensUsed[event.Task] += tokens
	requests := t.metrics.LLMRequests[event.Task]
	if requests == 1 {
		t.metrics.LLMAverageTime[event.Task] = event.Duration
	} else {
		total := t.metrics.LLMAverageTime[event.Task] * time.Duration(requests-1)
		t.metrics.LLMAverageTime[event.Task] = (total + event.Duration) / time.Duration(requests)
	}
	t.metrics.mu.Unlock()

	if t.config.CostTracking {
		t.costTracker.mu.Lock()
		t.costTracker.TotalCost += event.Cost
		t.costTracker.TotalTokens += tokens
		t.costTracker.TaskCosts[event.Task] += event.Cost
		t.costTracker.mu.Unlock()
	}
}

// GetMetrics returns a copy of current metrics.
func (t *Telemetry) GetMetrics() Metrics {
	t.metrics.mu.RLock()
	defer t.metrics.mu.RUnlock()

	metrics := Metrics{
		TotalTurns:      t.metrics.TotalTurns,
		FallbackTurns:   t.metrics.FallbackTurns,
		AverageTurnTime: t.metrics.AverageTurnTime,
		DecisionCounts:  make(map[string]int64),
		QuestionSources: make(map[string]int64),
		LLMRequests:     make(map[string]int64),
		LLMFailures:     make(map[string]int64),
		LLMTokensUsed:   make(map[string]int64),
		LLMAverageTime:  make(map[string]time.Duration),
	}
	for k, v := range t.metrics.DecisionCounts {
		metrics.DecisionCounts[k] = v
	}
	for k, v := range t.metrics.QuestionSources {
		metrics.QuestionSources[k] = v
	}
	for k, v := range t.metrics.LLMRequests {
		metrics.LLMRequests[k] = v
	}
	for k, v := range t.metrics.LLMFailures {
		metrics.LLMFailures[k] = v
	}
	for k, v := range t.metrics.LLMTokensUsed {
		metrics.LLMTokensUsed[k] = v
	}
	for k, v := range t.metrics.LLMAverageTime {
		metrics.LLMAverageTime[k] = v
	}
	return metrics
}

// CostSummary provides a summary of LLM spend.
type CostSummary struct {
	TotalCost   float64
	TotalTokens int64
	TaskCosts   map[string]float64
}

// GetCostSummary returns a copy of the current cost summary.
func (t *Telemetry) GetCostSummary() CostSummary {
	t.costTracker.mu.RLock()
	defer t.costTracker.mu.RUnlock()

	summary := CostSummary{
		TotalCost:   t.costTracker.TotalCost,
		TotalTokens: t.costTracker.TotalTokens,
		TaskCosts:   make(map[string]float64),
	}
	for k, v := range t.costTracker.TaskCosts {
		summary.TaskCosts[k] = v
	}
	return summary
}

func (t *Telemetry) startPeriodicReporting() {
	interval := t.config.PeriodicInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			metrics := t.GetMetrics()
			costs := t.GetCostSummary()
			t.logger.Printf("Snapshot: turns=%d fallbacks=%d avg=%v cost=$%.4f tokens=%d",
				metrics.TotalTurns, metrics.FallbackTurns, metrics.AverageTurnTime,
				costs.TotalCost, costs.TotalTokens)
			for task, cost := range costs.TaskCosts {
				t.logger.Printf("  Task %s: $%.4f", task, cost)
			}
		}
	}
}

// Shutdown stops background reporting and logs a final summary.
func (t *Telemetry) Shutdown() {
	close(t.stop)

	metrics := t.GetMetrics()
	costs := t.GetCostSummary()
	t.logger.Printf("Final Report:")
	t.logger.Printf("  Total Turns: %d", metrics.TotalTurns)
	if metrics.TotalTurns > 0 {
		t.logger.Printf("  Fallback Rate: %.2f%%", float64(metrics.FallbackTurns)/float64(metrics.TotalTurns)*100)
	}
	t.logger.Printf("  Average Turn Time: %v", metrics.AverageTurnTime)
	t.logger.Printf("  Total Cost: $%.4f", costs.TotalCost)
	t.logger.Printf("  Total Tokens: %d", costs.TotalTokens)
}
