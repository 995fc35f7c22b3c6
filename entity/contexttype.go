package entity

import (
	"github.com/tsinghua-fib-lab/highway-sim-oss/clock"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
)

type ITaskContext interface {
	Clock() *clock.Clock
	Roadway() IRoadway
	RuntimeConfig() *config.RuntimeConfig
}
