package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/trackforge/youtrackd/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// samplingCfg builds an enabled config with a one-minute tick so each test
// stays inside a single window and the pass counts are exact.
func samplingCfg(levels map[zapcore.Level]SampleBudget) SamplingConfig {
	return SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels:  levels,
	}
}

func TestNewSamplingCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Same(t, core, newSamplingCore(core, SamplingConfig{}))
}

func TestNewSamplingCore_NoBudgets(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Same(t, core, newSamplingCore(core, samplingCfg(nil)))
}

func TestNewSamplingCore_FirstBudget(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(newSamplingCore(core, samplingCfg(map[zapcore.Level]SampleBudget{
		zapcore.InfoLevel: {First: 2},
	})))

	for range 10 {
		logger.Info("info flood")
	}

	assert.Equal(t, 2, observed.FilterMessage("info flood").Len())
}

func TestNewSamplingCore_Thereafter(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(newSamplingCore(core, samplingCfg(map[zapcore.Level]SampleBudget{
		zapcore.InfoLevel: {First: 2, Thereafter: 5},
	})))

	for range 20 {
		logger.Info("repeated")
	}

	// First 2 pass, then entries 7, 12, and 17.
	assert.Equal(t, 5, observed.FilterMessage("repeated").Len())
}

func TestNewSamplingCore_BudgetsAreIndependent(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	logger := zap.New(newSamplingCore(core, samplingCfg(map[zapcore.Level]SampleBudget{
		zapcore.InfoLevel:  {First: 2},
		zapcore.DebugLevel: {First: 3},
	})))

	for range 10 {
		logger.Info("info flood")
		logger.Debug("debug flood")
	}

	// A debug flood must not eat the info budget or vice versa.
	assert.Equal(t, 2, observed.FilterMessage("info flood").Len())
	assert.Equal(t, 3, observed.FilterMessage("debug flood").Len())
}

func TestNewSamplingCore_UnbudgetedLevelPasses(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	logger := zap.New(newSamplingCore(core, samplingCfg(map[zapcore.Level]SampleBudget{
		zapcore.InfoLevel: {First: 1},
	})))

	for range 30 {
		logger.Debug("unbudgeted")
	}

	assert.Equal(t, 30, observed.FilterMessage("unbudgeted").Len())
}

func TestNewSamplingCore_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(newSamplingCore(core, samplingCfg(NewDefaultConfig().Sampling.Levels)))

	for range 50 {
		logger.Error("boom")
	}

	assert.Equal(t, 50, observed.FilterMessage("boom").Len())
}

func TestNewSamplingCore_ErrorBudgetIgnored(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	// A misconfigured budget on the error band must not cut it.
	logger := zap.New(newSamplingCore(core, samplingCfg(map[zapcore.Level]SampleBudget{
		zapcore.ErrorLevel: {First: 1},
	})))

	for range 50 {
		logger.Error("boom")
	}

	assert.Equal(t, 50, observed.FilterMessage("boom").Len())
}

func TestNewSamplingCore_DistinctMessagesSampledApart(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(newSamplingCore(core, samplingCfg(map[zapcore.Level]SampleBudget{
		zapcore.InfoLevel: {First: 1},
	})))

	logger.Info("issue fetched")
	logger.Info("issue fetched")
	logger.Info("comment added")
	logger.Info("comment added")

	// zap samples per message, so each one keeps its own first entry.
	assert.Equal(t, 1, observed.FilterMessage("issue fetched").Len())
	assert.Equal(t, 1, observed.FilterMessage("comment added").Len())
}

func TestLevelGate_WithPreservesGate(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	gate := &levelGate{Core: core, admit: func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel }}

	child := zap.New(gate).With(zap.String("component", "registry"))
	child.Info("filtered out")
	child.Error("kept")

	entries := observed.All()
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, "registry", entries[0].ContextMap()["component"])
}

func TestNewSamplingCore_DefaultsCutAFlood(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	cfg := NewDefaultConfig().Sampling
	cfg.Tick = config.Duration(time.Minute)
	logger := zap.New(newSamplingCore(core, cfg))

	for range 500 {
		logger.Info("hot loop")
	}

	// 100 up front, then every 10th of the remaining 400.
	assert.Equal(t, 140, observed.FilterMessage("hot loop").Len())
}
