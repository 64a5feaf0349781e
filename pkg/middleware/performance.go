package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"go.uber.org/zap"
)

type kindStats struct {
	count int64
	total time.Duration
	max   time.Duration
}

// Performance accumulates dispatch time per event kind.
type Performance struct {
	logger *zap.Logger

	mu    sync.Mutex
	stats map[bus.Kind]*kindStats
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
		stats:  make(map[bus.Kind]*kindStats),
	}
}

func (p *Performance) Wrap(handler bus.Handler) bus.Handler {
	return func(ctx context.Context, ev bus.Event) {
		startTime := time.Now()
		defer func() {
			p.record(ev.Kind(), time.Since(startTime))
		}()
		handler(ctx, ev)
	}
}

func (p *Performance) record(kind bus.Kind, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stats[kind]
	if !ok {
		s = &kindStats{}
		p.stats[kind] = s
	}
	s.count++
	s.total += d
	if d > s.max {
		s.max = d
	}
}

// Count returns how many dispatches were timed for kind.
func (p *Performance) Count(kind bus.Kind) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.stats[kind]; ok {
		return s.count
	}
	return 0
}

func (p *Performance) Total(kind bus.Kind) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.stats[kind]; ok {
		return s.total
	}
	return 0
}

func (p *Performance) PrintStatistics() {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fields []zap.Field
	for _, kind := range bus.Kinds() {
		s, ok := p.stats[kind]
		if !ok || s.count == 0 {
			continue
		}
		name := kind.String()
		fields = append(fields,
			zap.Int64(name+"_count", s.count),
			zap.Duration(name+"_avg_duration", s.total/time.Duration(s.count)),
			zap.Duration(name+"_max_duration", s.max),
		)
	}

	p.logger.Info("performance statistics", fields...)
}
