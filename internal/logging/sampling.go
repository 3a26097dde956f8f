package logging

import "go.uber.org/zap/zapcore"

// newSamplingCore wraps core so each configured level spends its own
// budget. zap's stock sampler applies one rate to everything it sees, which
// would let a debug flood eat the info budget; one sampler per level keeps
// the bands independent. Unbudgeted levels, and everything at Error and
// above, always pass.
func newSamplingCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	tick := cfg.Tick.Duration()
	budgeted := make(map[zapcore.Level]bool, len(cfg.Levels))
	cores := make([]zapcore.Core, 0, len(cfg.Levels)+1)
	for lvl, budget := range cfg.Levels {
		if lvl >= zapcore.ErrorLevel {
			continue // the error band is never cut
		}
		budgeted[lvl] = true
		gate := &levelGate{Core: core, admit: func(l zapcore.Level) bool { return l == lvl }}
		cores = append(cores, zapcore.NewSamplerWithOptions(gate, tick, budget.First, budget.Thereafter))
	}

	rest := &levelGate{Core: core, admit: func(l zapcore.Level) bool { return !budgeted[l] }}
	return zapcore.NewTee(append(cores, rest)...)
}

// levelGate admits a subset of levels into the wrapped core. The tee built
// above relies on the gates being disjoint so no entry is written twice.
type levelGate struct {
	zapcore.Core
	admit func(zapcore.Level) bool
}

func (g *levelGate) Enabled(lvl zapcore.Level) bool {
	return g.admit(lvl) && g.Core.Enabled(lvl)
}

func (g *levelGate) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !g.Enabled(ent.Level) {
		return ce
	}
	return g.Core.Check(ent, ce)
}

func (g *levelGate) With(fields []zapcore.Field) zapcore.Core {
	return &levelGate{Core: g.Core.With(fields), admit: g.admit}
}
