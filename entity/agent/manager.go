package agent

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/collision"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/container"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/randengine"
)

const (
	initialPlacementAttempts = 50 // 初始放置时每辆车的最大尝试次数
	slowCheckFactor          = 3. // 拥堵判定的距离范围（clearance的倍数）
)

// AgentManager 车辆管理器
// 功能：持有全部存活车辆，负责模拟步的推进、驶出车辆的清理与新车辆的生成
type AgentManager struct {
	ctx entity.ITaskContext

	data map[int32]*Agent

	// 存活车辆，遍历顺序即更新顺序
	agents *container.IncrementalArray[*Agent]
	nextID int32

	generator *randengine.Engine
	config    config.Population

	lastSpawned      []*Agent // 每条车道最近一次生成的车辆
	lastSpawnAttempt float64  // 上次尝试生成的时刻（ms）
	spawnInterval    float64  // 两次生成尝试的最小间隔（ms）
}

// NewManager 创建车辆管理器实例
// 参数：ctx-任务上下文（时钟、道路与运行时配置须已就绪）
// 返回：新创建的车辆管理器实例
func NewManager(ctx entity.ITaskContext) *AgentManager {
	c := ctx.RuntimeConfig()
	m := &AgentManager{
		ctx:              ctx,
		data:             make(map[int32]*Agent),
		agents:           container.NewIncrementalArray[*Agent](),
		generator:        randengine.New(c.C.Seed),
		config:           c.All.Population,
		lastSpawned:      make([]*Agent, ctx.Roadway().Lanes().Len()),
		lastSpawnAttempt: math.Inf(-1),
		spawnInterval:    math.Inf(1),
	}
	if rate := m.config.Spawn.Rate; rate > 0 {
		m.spawnInterval = 1000 / rate
	}
	return m
}

// Init 初始化，在道路上随机放置初始车辆
// 算法说明：
// 1. 随机选择车道与纵向位置，初速度为期望速度乘以speed_factor
// 2. 与已放置车辆的包围盒重叠则重新采样，超过尝试次数后放弃该车辆
// 说明：放弃放置不是错误，只记录警告
func (m *AgentManager) Init() {
	road := m.ctx.Roadway()
	lanes := road.Lanes().All()
	for i := 0; i < m.config.Initial; i++ {
		class, personality := m.sampleDriver()
		length, _ := class.Dimensions()
		placed := false
		for attempt := 0; attempt < initialPlacementAttempts && !placed; attempt++ {
			l := lanes[m.generator.Intn(len(lanes))]
			y := m.generator.Uniform(length/2, road.Length()-length/2)
			a, err := newAgent(m.ctx, m, m.nextID, class, personality, l, y,
				personality.DesiredSpeed*m.config.Spawn.SpeedFactor)
			if err != nil {
				log.Panicf("create initial agent: %v", err)
			}
			if m.overlapsAny(a) {
				continue
			}
			m.add(a)
			placed = true
		}
		if !placed {
			log.Warnf("cannot place initial agent %d/%d without overlap, skip", i+1, m.config.Initial)
		}
	}
	m.agents.Prepare()
	log.Infof("AgentManager: %d initial agents placed", m.agents.Len())
}

// GetOrError 根据ID获取车辆实例，如果不存在则返回错误
func (m *AgentManager) GetOrError(id int32) (*Agent, error) {
	if a, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %d in agent data", id)
	} else {
		return a, nil
	}
}

// Len 存活车辆数
func (m *AgentManager) Len() int {
	return m.agents.Len()
}

// Agents 存活车辆，按更新顺序
func (m *AgentManager) Agents() []*Agent {
	return m.agents.Data()
}

// lookup 解析车辆句柄，步内被标记移除的车辆仍可查到，清理后返回nil
func (m *AgentManager) lookup(id int32) *Agent {
	return m.data[id]
}

// Prepare 准备阶段：snapshot更新
func (m *AgentManager) Prepare() {
	parallel.GoFor(m.agents.Data(), func(a *Agent) {
		a.prepare()
	})
	log.Debug("AgentManager: prepare done")
}

// Update 更新阶段
// 算法说明：
// 1. 按存活集合顺序逐个推进车辆（空间索引与车道缓冲不支持并发写，因此串行执行）
// 2. 清理本步被标记移除的车辆
// 3. 按门控规则尝试生成新车辆
// 4. 使存活集合的增删生效
func (m *AgentManager) Update(dt float64) {
	for _, a := range m.agents.Data() {
		a.update(dt)
	}
	for _, a := range m.agents.Data() {
		if a.removed {
			m.purge(a)
		}
	}
	if m.config.Enable {
		m.spawn()
	}
	m.agents.Prepare()
}

// Retire 立即移除指定车辆
// 返回：车辆不存在时返回error
func (m *AgentManager) Retire(id int32) error {
	a, err := m.GetOrError(id)
	if err != nil {
		return err
	}
	a.removed = true
	m.purge(a)
	m.agents.Prepare()
	return nil
}

// add 将新车辆加入道路、车道与存活集合
func (m *AgentManager) add(a *Agent) {
	if _, ok := m.data[a.id]; ok {
		log.Panicf("Agent ID %v already exists!", a.id)
	}
	m.data[a.id] = a
	m.nextID = max(m.nextID, a.id+1)
	m.ctx.Roadway().Place(a)
	a.lane.AddVehicle(a.node)
	m.agents.Add(a)
}

// purge 从空间索引、车道与存活集合中移除车辆
func (m *AgentManager) purge(a *Agent) {
	m.ctx.Roadway().Remove(a)
	a.lane.RemoveVehicle(a.node)
	m.agents.Remove(a)
	delete(m.data, a.id)
	for i, last := range m.lastSpawned {
		if last == a {
			m.lastSpawned[i] = nil
		}
	}
	log.Debugf("agent %d purged at t=%.0f", a.id, m.ctx.Clock().T)
}

// sampleDriver 按混合比例采样车型与驾驶风格
func (m *AgentManager) sampleDriver() (VehicleClass, Personality) {
	mix := m.config.Mix
	class := VehicleClass(m.generator.DiscreteDistribution([]float64{mix.SUV, mix.Truck, mix.Motorcycle}))
	style := PersonalityClass(m.generator.DiscreteDistribution([]float64{mix.Aggressive, mix.Defensive}))
	return class, samplePersonality(style, m.generator)
}

// overlapsAny 车辆a的包围盒是否与任何已有车辆重叠
func (m *AgentManager) overlapsAny(a *Agent) bool {
	road := m.ctx.Roadway()
	pos := a.runtime.Position
	box := a.runtime.obb()
	for _, other := range road.Neighbors(pos.X, pos.Y, a.runtime.Length+maxVehicleLength, nil, true) {
		if collision.Intersects(box, alignedOBB(road, other, pos.Y)) {
			return true
		}
	}
	return false
}

// spawn 按门控规则尝试生成一辆新车辆
// 算法说明：
// 1. 距离上次尝试不足生成间隔时跳过
// 2. 以随机顺序遍历车道，第一条通过门控的车道生成车辆
// 3. 所有车道都不可用时本次不生成
func (m *AgentManager) spawn() {
	now := m.ctx.Clock().T
	if now-m.lastSpawnAttempt < m.spawnInterval {
		return
	}
	m.lastSpawnAttempt = now
	lanes := m.ctx.Roadway().Lanes().All()
	class, personality := m.sampleDriver()
	for _, i := range m.generator.Order(len(lanes)) {
		if a := m.trySpawn(lanes[i], class, personality); a != nil {
			m.add(a)
			m.lastSpawned[i] = a
			log.Debugf("spawn %v", a)
			return
		}
	}
	log.Debugf("no viable spawn slot at t=%.0f", now)
}

// trySpawn 在车道l的起点尝试生成车辆，门控不通过时返回nil
// 算法说明：
// 1. 该车道最近生成的车辆（仍在该车道上）距出生点小于clearance_factor倍车长：拒绝
// 2. 该车辆在出生点附近且速度低于slow_factor倍期望速度：拒绝
// 3. 出生点附近该车道已有车辆相互碰撞：拒绝
// 4. 新车辆包围盒与任何已有车辆重叠：拒绝
// 5. 初速度为最近生成车辆速度乘以speed_factor，无该车辆时为期望速度乘以speed_factor
func (m *AgentManager) trySpawn(l entity.ILane, class VehicleClass, personality Personality) *Agent {
	road := m.ctx.Roadway()
	spawn := m.config.Spawn
	length, _ := class.Dimensions()
	y := length / 2
	clearance := spawn.ClearanceFactor * length

	speed := personality.DesiredSpeed * spawn.SpeedFactor
	// 已换出该车道的车辆不再作为出生点的参照
	if occupant := m.lastSpawned[l.Index()]; occupant != nil && !occupant.removed && occupant.CurrentLane() == l.Index() {
		d := occupant.runtime.Position.Y - occupant.runtime.Length/2 - (y + length/2)
		if d < clearance {
			return nil
		}
		if d < slowCheckFactor*clearance &&
			occupant.runtime.Velocity.Y < spawn.SlowFactor*occupant.personality.DesiredSpeed {
			return nil
		}
		speed = occupant.runtime.Velocity.Y * spawn.SpeedFactor
	}

	nearby := lo.Filter(
		road.Neighbors(l.CenterX(), y, slowCheckFactor*clearance+maxVehicleLength, nil, true),
		func(a entity.IAgent, _ int) bool { return a.CurrentLane() == l.Index() },
	)
	if len(detectCollisions(road, nearby)) > 0 {
		return nil
	}

	a, err := newAgent(m.ctx, m, m.nextID, class, personality, l, y, speed)
	if err != nil {
		log.Panicf("create spawned agent: %v", err)
	}
	if m.overlapsAny(a) {
		return nil
	}
	return a
}
