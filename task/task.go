package task

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/highway-sim-oss/clock"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity/agent"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity/road"
	"github.com/tsinghua-fib-lab/highway-sim-oss/stream"
	"github.com/tsinghua-fib-lab/highway-sim-oss/telemetry"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
)

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态，替代全局变量
// 说明：管理时钟、道路、车辆管理器、配置与输出
type Context struct {

	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 辅助程序，处理分布式模式下相关调用，包括与syncer、其他服务的交互
	sidecar *syncer.Sidecar
	// sidecar close channel
	sidecarCloseCh chan struct{}
	// 是否由本Context启动了sidecar服务
	serving bool

	// 道路
	roadway *road.Roadway
	// 车辆管理器
	agentManager *agent.AgentManager

	// 运行时配置文件
	runtimeConfig *config.RuntimeConfig

	// 遥测输出，未启用时为nil
	telemetry *telemetry.Logger
	// 快照推送
	hub *stream.Hub
}

// NewContext 创建新的仿真任务上下文
// 功能：校验配置并初始化仿真系统的所有组件
// 参数：
//   - job: 任务名称
//   - c: 配置对象
//   - sidecar: sidecar实例，为nil时不注册RPC服务（仅用于测试）
//   - startSidecarServe: 是否启动sidecar服务
//
// 返回：初始化完成的Context实例，配置不合法或输出目标创建失败时返回error
// 算法说明：
// 1. 校验配置并生成运行时配置
// 2. 初始化时钟与道路
// 3. 创建车辆管理器、遥测输出与快照推送
// 4. 注册RPC服务与websocket端点到sidecar
// 5. 启动sidecar服务（如果需要）
func NewContext(
	job string,
	c config.Config,
	sidecar *syncer.Sidecar,
	startSidecarServe bool,
) (*Context, error) {
	runtimeConfig, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ctx := &Context{
		job:            job,
		sidecar:        sidecar,
		sidecarCloseCh: make(chan struct{}),
		runtimeConfig:  runtimeConfig,
		hub:            stream.NewHub(),
	}
	ctx.clock = clock.New(runtimeConfig.C.Step)
	if ctx.roadway, err = road.New(runtimeConfig.All.Road); err != nil {
		return nil, fmt.Errorf("invalid road: %w", err)
	}
	ctx.agentManager = agent.NewManager(ctx)
	if ctx.telemetry, err = telemetry.NewFromConfig(runtimeConfig.All.Telemetry); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	if sidecar != nil {
		ctx.clock.Register(sidecar)
		ctx.agentManager.Register(sidecar)
		sidecar.Register(
			"highway.stream.v1.Snapshots",
			func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
				return stream.Pattern, ctx.hub
			},
			syncer.WithNoLock(),
		)
	}

	// sidecar协程，用于提供gRPC服务
	if sidecar != nil && startSidecarServe {
		ctx.serving = true
		go func() {
			err := ctx.sidecar.Serve()
			if err != nil {
				log.Panicf("failed to serve: %v", err)
			}
			ctx.sidecarCloseCh <- struct{}{}
		}()
	}

	return ctx, nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) Roadway() entity.IRoadway {
	return ctx.roadway
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// Init 重置时钟并放置初始车辆
func (ctx *Context) Init() {
	ctx.clock.Init()
	road := ctx.runtimeConfig.All.Road
	log.Infof("Job: %s", ctx.job)
	log.Infof("Road: %.0fx%.0f mm, %d lanes, torus=%v", road.Width, road.Length, road.LaneCount, road.Torus)
	ctx.agentManager.Init()
	log.Infof("Agent: %d", ctx.agentManager.Len())
}

func (ctx *Context) Close() {
	if ctx.closed.Load() {
		return
	}
	ctx.closed.Store(true)
	if ctx.telemetry != nil {
		if err := ctx.telemetry.Close(); err != nil {
			log.Errorf("close telemetry: %v", err)
		}
	}
	ctx.hub.Close()
	if ctx.serving {
		ctx.sidecar.Close()
		// wait for graceful stop
		<-ctx.sidecarCloseCh
	}
}
