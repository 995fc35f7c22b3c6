package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// AgentServiceName 车辆服务名
	AgentServiceName = "highway.agent.v1.AgentService"

	getAgentsProcedure   = "/" + AgentServiceName + "/GetAgents"
	getStatsProcedure    = "/" + AgentServiceName + "/GetStats"
	retireAgentProcedure = "/" + AgentServiceName + "/RetireAgent"
)

// Register 将车辆管理器注册到Sidecar
// 功能：注册车辆服务的RPC处理器到同步器
// 参数：sidecar-同步器实例
// 说明：请求与响应均为google.protobuf.Struct，字段见各处理函数
func (m *AgentManager) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		AgentServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return m.newHandler(opts...)
		},
	)
}

func (m *AgentManager) newHandler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(getAgentsProcedure, connect.NewUnaryHandler(getAgentsProcedure, m.GetAgents, opts...))
	mux.Handle(getStatsProcedure, connect.NewUnaryHandler(getStatsProcedure, m.GetStats, opts...))
	mux.Handle(retireAgentProcedure, connect.NewUnaryHandler(retireAgentProcedure, m.RetireAgent, opts...))
	return "/" + AgentServiceName + "/", mux
}

// GetAgents 获取车辆状态
// 功能：批量获取车辆状态，支持ID筛选
// 参数：in-请求，可选字段ids（数字列表），为空时返回全部车辆
// 返回：{"agents": [...]}，存在未知ID时返回NotFound
func (m *AgentManager) GetAgents(
	ctx context.Context, in *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	ids, err := idsField(in.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	agents, failed := utils.Find(m.data, m.agents.Data(), ids)
	if len(failed) > 0 {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no id %v in agent data", failed))
	}
	list := lo.Map(agents, func(a *Agent, _ int) any {
		return stateToMap(a.State())
	})
	res, err := structpb.NewStruct(map[string]any{"agents": list})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(res), nil
}

// GetStats 获取全局统计
// 返回：{"t", "step", "elapsed", "avg_speed", "agent_count", "collision_count"}
func (m *AgentManager) GetStats(
	ctx context.Context, in *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	s := m.Snapshot()
	res, err := structpb.NewStruct(map[string]any{
		"t":               s.T,
		"step":            s.Step,
		"elapsed":         s.Elapsed,
		"avg_speed":       s.AvgSpeed,
		"agent_count":     len(s.Agents),
		"collision_count": len(m.Collisions()),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(res), nil
}

// RetireAgent 立即移除车辆
// 参数：in-请求，字段id（整数）
func (m *AgentManager) RetireAgent(
	ctx context.Context, in *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	v, ok := in.Msg.GetFields()["id"]
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing field id"))
	}
	id, err := idValue(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := m.Retire(id); err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewResponse(&structpb.Struct{}), nil
}

// idsField 解析请求中的ids字段
func idsField(msg *structpb.Struct) ([]int32, error) {
	v, ok := msg.GetFields()["ids"]
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, errors.New("field ids must be a list")
	}
	ids := make([]int32, 0, len(list.GetValues()))
	for _, x := range list.GetValues() {
		id, err := idValue(x)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// idValue 解析车辆ID，只接受int32范围内的整数
func idValue(v *structpb.Value) (int32, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("bad id %v", v)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("id %v is not an integer", f)
	}
	return int32(f), nil
}

func stateToMap(s AgentState) map[string]any {
	return map[string]any{
		"id":               s.ID,
		"lane":             s.Lane,
		"lane_intent":      s.LaneIntent,
		"x":                s.X,
		"y":                s.Y,
		"vx":               s.VX,
		"vy":               s.VY,
		"ax":               s.AX,
		"ay":               s.AY,
		"heading":          s.Heading,
		"length":           s.Length,
		"width":            s.Width,
		"desired_speed":    s.DesiredSpeed,
		"max_speed":        s.MaxSpeed,
		"sensing_distance": s.SensingDistance,
		"strategy":         s.Strategy,
		"vehicle_class":    s.VehicleClass,
		"personality":      s.Personality,
		"lane_changing":    s.LaneChanging,
	}
}
