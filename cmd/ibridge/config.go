package main

import (
	"github.com/peter-kozarec/ibridge/pkg/middleware"
)

const (
	Version      = "0.1.0"
	MonitorFlags = middleware.MonitorOrders | middleware.MonitorErrors | middleware.MonitorConnection
)
