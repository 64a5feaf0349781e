package model

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	CodeNoSecurityDefinition = 200
	CodeOrderRejected        = 201
	CodeOrderCanceled        = 202
	CodeNotConnected         = 504
)

// GatewayError is an error reported by the gateway through its error callback.
// RequestId is -1 for connection-wide errors.
type GatewayError struct {
	RequestId int64
	Code      int
	Message   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %d (req %d): %s", e.Code, e.RequestId, e.Message)
}

// Scoped reports whether the error belongs to a request.
func (e *GatewayError) Scoped() bool {
	return e.RequestId >= 0
}

// IsWarning reports informational codes: farm status notices and delayed data notices.
func (e *GatewayError) IsWarning() bool {
	switch {
	case e.Code >= 2100 && e.Code < 2200:
		return true
	case e.Code == 10167, e.Code == 399:
		return true
	}
	return false
}

func (e *GatewayError) Fields() []zap.Field {
	return []zap.Field{
		zap.Int64("req_id", e.RequestId),
		zap.Int("code", e.Code),
		zap.String("message", e.Message),
	}
}
