package bus

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Statistics struct {
	RunTime       time.Duration
	PostCount     uint64
	PostFails     uint64
	DispatchCount uint64
	DispatchFails uint64
	Throughput    float64
}

func (s Statistics) Print(logger *zap.Logger) {
	logger.Info("bus statistics",
		zap.String("run_time", fmt.Sprintf("%.2fs", s.RunTime.Seconds())),
		zap.Uint64("post_count", s.PostCount),
		zap.Uint64("post_fails", s.PostFails),
		zap.Uint64("dispatch_count", s.DispatchCount),
		zap.Uint64("dispatch_fails", s.DispatchFails),
		zap.String("throughput", fmt.Sprintf("%.2f", s.Throughput)))
}
