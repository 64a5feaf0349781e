package model

import (
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"go.uber.org/zap"
)

type Position struct {
	Account  string
	Contract Contract
	Size     fixed.Point
	AvgCost  float64
}

func (p Position) IsLong() bool {
	return p.Size.Gt(fixed.Zero)
}

func (p Position) IsShort() bool {
	return p.Size.Lt(fixed.Zero)
}

func (p Position) Fields() []zap.Field {
	return []zap.Field{
		zap.String("account", p.Account),
		zap.Int64("con_id", p.Contract.ConId),
		zap.String("symbol", p.Contract.Symbol),
		zap.String("size", p.Size.String()),
		zap.Float64("avg_cost", p.AvgCost),
	}
}
