package task

import (
	"flag"

	"github.com/tsinghua-fib-lab/highway-sim-oss/telemetry"
)

const (
	SelfName = "highway" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：心跳日志；车辆snapshot更新后再恢复车道链表有序（链表排序依赖snapshot中的纵向位置）
func (ctx *Context) prepare() {
	if *heartBeatInterval > 0 && ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f) agents=%d",
			ctx.clock.InternalStep,
			hour, minute, second,
			ctx.agentManager.Len(),
		)
	}
	ctx.agentManager.Prepare()
	ctx.roadway.Prepare()
}

// update 更新阶段，每步执行一次：所有车辆前进一步、清理、生成，时钟前进
func (ctx *Context) update() {
	ctx.agentManager.Update(ctx.clock.DT)
	ctx.clock.Tick()
}

// output 输出阶段：遥测与快照推送
// 说明：遥测按自身间隔输出，快照推送每步一次且只在有订阅者时编码
func (ctx *Context) output() {
	if ctx.telemetry != nil && ctx.telemetry.Due(ctx.clock.T) {
		snapshot := ctx.agentManager.Snapshot()
		ctx.telemetry.Offer(telemetry.Batch{
			T:          snapshot.T,
			Agents:     snapshot.Agents,
			Collisions: ctx.agentManager.Collisions(),
		})
	}
	if ctx.hub.Len() > 0 {
		if err := ctx.hub.Publish(ctx.agentManager.Snapshot()); err != nil {
			log.Errorf("publish snapshot: %v", err)
		}
	}
}

// step 一个完整的模拟步（不含与syncer的同步）
func (ctx *Context) step() {
	ctx.prepare()
	ctx.update()
	ctx.output()
}

// Run 运行
func (ctx *Context) Run() {
	// 初始化
	ctx.Init()
	// init syncer
	ctx.sidecar.Step(false)
	for !ctx.clock.Done() {
		ctx.prepare()
		// 通知准备阶段完成
		log.Debugf("step %d: prepare complete and call NotifyStepReady", ctx.clock.InternalStep)
		ctx.sidecar.NotifyStepReady()
		log.Debugf("step %d: NotifyStepReady complete", ctx.clock.InternalStep)
		ctx.update()
		ctx.output()
		log.Debugf("step %d: update complete", ctx.clock.InternalStep)
		close := ctx.sidecar.Step(ctx.clock.Done())
		if close || ctx.closed.Load() {
			break
		}
	}
	log.Infof("engine complete")
	ctx.Close()
}
