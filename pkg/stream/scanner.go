package stream

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"go.uber.org/zap"
)

// ScanRound is a completed scanner result set, ordered by rank.
type ScanRound struct {
	Round int
	Rows  []model.ScanData
}

// Scanner collects rows per round. Every scanner end replaces the current result set.
type Scanner struct {
	*Stream[ScanRound]

	mu      sync.RWMutex
	pending map[int]model.ScanData
	current ScanRound
}

func NewScanner(logger *zap.Logger, id reqid.Id) *Scanner {
	return &Scanner{
		Stream:  newStream[ScanRound](logger, id),
		pending: make(map[int]model.ScanData),
	}
}

func (s *Scanner) Kinds() []bus.Kind {
	return []bus.Kind{bus.ScannerDataKind, bus.ScannerDataEndKind}
}

func (s *Scanner) Handle(_ context.Context, ev bus.Event) {
	if !s.Active() || ev.RequestId() != s.Id() {
		return
	}

	switch e := ev.(type) {
	case bus.ScannerData:
		s.mu.Lock()
		s.pending[e.Data.Rank] = e.Data
		s.mu.Unlock()
	case bus.ScannerDataEnd:
		s.publish(s.complete())
	}
}

func (s *Scanner) complete() ScanRound {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]model.ScanData, 0, len(s.pending))
	for _, r := range s.pending {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })

	s.current = ScanRound{Round: s.current.Round + 1, Rows: rows}
	s.pending = make(map[int]model.ScanData)
	return ScanRound{Round: s.current.Round, Rows: slices.Clone(rows)}
}

// Current returns the last completed round.
func (s *Scanner) Current() ScanRound {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ScanRound{Round: s.current.Round, Rows: slices.Clone(s.current.Rows)}
}
