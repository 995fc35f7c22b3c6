package telemetry

import (
	"context"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/highway-sim-oss/entity/agent"
	"github.com/tsinghua-fib-lab/highway-sim-oss/utils/config"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultMongoDB      = "highway"
	agentCollection     = "agents"
	collisionCollection = "collisions"
)

type agentDoc struct {
	Run              string  `bson:"run"`
	T                float64 `bson:"t"`
	agent.AgentState `bson:",inline"`
}

type collisionDoc struct {
	Run             string  `bson:"run"`
	T               float64 `bson:"t"`
	agent.Collision `bson:",inline"`
}

// MongoSink 输出到MongoDB
// 说明：车辆状态写入agents集合，碰撞写入collisions集合，每条记录带有run字段
type MongoSink struct {
	runID      string
	client     *mongo.Client
	agents     *mongo.Collection
	collisions *mongo.Collection
}

// NewMongoSink 连接MongoDB
func NewMongoSink(c config.Mongo, runID string) *MongoSink {
	client := mongoutil.NewClient(c.URI)
	db := client.Database(lo.Ternary(c.DB != "", c.DB, defaultMongoDB))
	return &MongoSink{
		runID:      runID,
		client:     client,
		agents:     db.Collection(agentCollection),
		collisions: db.Collection(collisionCollection),
	}
}

func (s *MongoSink) Write(b Batch) error {
	ctx := context.Background()
	if len(b.Agents) > 0 {
		docs := lo.Map(b.Agents, func(a agent.AgentState, _ int) any {
			return agentDoc{Run: s.runID, T: b.T, AgentState: a}
		})
		if _, err := s.agents.InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	if len(b.Collisions) > 0 {
		docs := lo.Map(b.Collisions, func(c agent.Collision, _ int) any {
			return collisionDoc{Run: s.runID, T: b.T, Collision: c}
		})
		if _, err := s.collisions.InsertMany(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

func (s *MongoSink) Close() error {
	return s.client.Disconnect(context.Background())
}
