// 遥测输出：按固定间隔把车辆状态与碰撞写入CSV文件或MongoDB
package telemetry

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	uuid "github.com/satori/go.uuid"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity/agent"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
)

// Batch 一次输出的数据
type Batch struct {
	T          float64 // 时间戳（ms）
	Agents     []agent.AgentState
	Collisions []agent.Collision
}

// Sink 输出目标
type Sink interface {
	Write(b Batch) error
	Close() error
}

// Logger 遥测输出器
// 功能：模拟主循环通过Offer提交数据，独立的goroutine写入各Sink
// 说明：缓冲区满时丢弃并计数，不阻塞模拟主循环
type Logger struct {
	runID    string
	interval float64
	last     float64

	ch      chan Batch
	sinks   []Sink
	dropped atomic.Int64
	wg      sync.WaitGroup
	errs    []error
}

// New 创建遥测输出器并启动写入goroutine
// 参数：c-遥测配置（已校验），runID-本次运行的标识，sinks-输出目标
func New(c config.Telemetry, runID string, sinks ...Sink) *Logger {
	l := &Logger{
		runID:    runID,
		interval: c.Interval,
		last:     math.Inf(-1),
		ch:       make(chan Batch, max(c.Buffer, 1)),
		sinks:    sinks,
	}
	l.wg.Add(1)
	go l.loop()
	return l
}

// NewFromConfig 按配置创建CSV与MongoDB输出目标及遥测输出器
// 返回：未启用遥测时返回nil；任一输出目标创建失败时返回error
func NewFromConfig(c config.Telemetry) (*Logger, error) {
	if !c.Enable {
		return nil, nil
	}
	runID := uuid.NewV4().String()
	var sinks []Sink
	if c.Dir != "" {
		s, err := NewCSVSink(c.Dir, runID)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if c.Mongo != nil {
		sinks = append(sinks, NewMongoSink(*c.Mongo, runID))
	}
	if len(sinks) == 0 {
		log.Warn("telemetry enabled without any sink")
	}
	log.Infof("telemetry run %s with %d sinks", runID, len(sinks))
	return New(c, runID, sinks...), nil
}

// RunID 本次运行的标识
func (l *Logger) RunID() string {
	return l.runID
}

// Due 时刻t是否需要输出
func (l *Logger) Due(t float64) bool {
	return t-l.last >= l.interval
}

// Offer 提交一批数据，缓冲区满时丢弃
// 返回：是否成功提交
func (l *Logger) Offer(b Batch) bool {
	l.last = b.T
	select {
	case l.ch <- b:
		return true
	default:
		n := l.dropped.Add(1)
		log.Debugf("telemetry buffer full, drop batch at t=%.0f (%d dropped)", b.T, n)
		return false
	}
}

// Dropped 累计丢弃的批次数
func (l *Logger) Dropped() int64 {
	return l.dropped.Load()
}

// Close 写完缓冲区中的数据并关闭所有输出目标
func (l *Logger) Close() error {
	close(l.ch)
	l.wg.Wait()
	for _, s := range l.sinks {
		if err := s.Close(); err != nil {
			l.errs = append(l.errs, err)
		}
	}
	if n := l.Dropped(); n > 0 {
		log.Warnf("telemetry dropped %d batches", n)
	}
	return errors.Join(l.errs...)
}

func (l *Logger) loop() {
	defer l.wg.Done()
	for b := range l.ch {
		for _, s := range l.sinks {
			if err := s.Write(b); err != nil {
				log.Errorf("telemetry write failed at t=%.0f: %v", b.T, err)
			}
		}
	}
}
