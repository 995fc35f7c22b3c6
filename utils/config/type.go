package config

// Road 道路几何配置（单位mm）
type Road struct {
	Width     float64 `yaml:"width,omitempty"` // 道路总宽，为0时取lane_count*lane_width*1.01
	Length    float64 `yaml:"length"`          // 道路长度
	LaneCount int     `yaml:"lane_count"`      // 车道数
	LaneWidth float64 `yaml:"lane_width"`      // 车道宽
	Torus     bool    `yaml:"torus,omitempty"` // 是否首尾相接（驶出远端后回到近端）
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
// 功能：定义仿真时间控制参数
// 说明：时间单位为毫秒，模拟区间为[start, start+total)步
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（ms）
}

// Control 模拟器控制配置
type Control struct {
	Step        ControlStep `yaml:"step"`
	Seed        uint64      `yaml:"seed,omitempty"`         // 随机种子
	GracePeriod float64     `yaml:"grace_period,omitempty"` // 新生成车辆的保护期（ms），期间只加速
}

// Mix 人格与车型的混合比例（权重，不要求归一化）
type Mix struct {
	Aggressive float64 `yaml:"aggressive"`
	Defensive  float64 `yaml:"defensive"`
	SUV        float64 `yaml:"suv"`
	Truck      float64 `yaml:"truck"`
	Motorcycle float64 `yaml:"motorcycle"`
}

// Spawn 车辆生成门控参数
type Spawn struct {
	Rate            float64 `yaml:"rate"`                       // 每秒最多尝试生成的车辆数
	ClearanceFactor float64 `yaml:"clearance_factor,omitempty"` // 最近生成车辆距出生点的最小距离（车长倍数）
	SlowFactor      float64 `yaml:"slow_factor,omitempty"`      // 出生点附近车辆低于期望速度该比例时视为拥堵
	SpeedFactor     float64 `yaml:"speed_factor,omitempty"`     // 新车初速度为前车速度的比例
}

// Population 车辆群体配置
type Population struct {
	Initial int   `yaml:"initial"`         // 初始车辆数
	Enable  bool  `yaml:"enable"`          // 是否持续生成车辆
	Spawn   Spawn `yaml:"spawn,omitempty"` // 生成门控
	Mix     Mix   `yaml:"mix"`
}

// Mongo 输出到MongoDB的配置
type Mongo struct {
	URI string `yaml:"uri"`
	DB  string `yaml:"db"`
}

// Telemetry 遥测输出配置
type Telemetry struct {
	Enable   bool    `yaml:"enable"`
	Interval float64 `yaml:"interval,omitempty"` // 输出间隔（ms），为0时每步输出
	Dir      string  `yaml:"dir,omitempty"`      // CSV输出目录，为空则不写CSV
	Mongo    *Mongo  `yaml:"mongo,omitempty"`    // MongoDB输出，为空则不写
	Buffer   int     `yaml:"buffer,omitempty"`   // 待写批次缓冲长度，满时丢弃
}

// Config YAML配置文件的根结构
type Config struct {
	Road       Road       `yaml:"road"`       // 道路
	Control    Control    `yaml:"control"`    // 模拟过程控制
	Population Population `yaml:"population"` // 车辆
	Telemetry  Telemetry  `yaml:"telemetry"`  // 遥测
}
