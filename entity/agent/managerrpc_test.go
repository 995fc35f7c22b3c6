package agent

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func request(t *testing.T, fields map[string]any) *connect.Request[structpb.Struct] {
	msg, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return connect.NewRequest(msg)
}

func TestGetAgents(t *testing.T) {
	w := newTestWorld(t, nil)
	p := testPersonality()
	w.place(t, 0, 10000, 10, p)
	b := w.place(t, 1, 20000, 20, p)

	res, err := w.agents.GetAgents(context.Background(), request(t, nil))
	require.NoError(t, err)
	assert.Len(t, res.Msg.GetFields()["agents"].GetListValue().GetValues(), 2)

	res, err = w.agents.GetAgents(context.Background(), request(t, map[string]any{"ids": []any{float64(b.ID())}}))
	require.NoError(t, err)
	list := res.Msg.GetFields()["agents"].GetListValue().GetValues()
	require.Len(t, list, 1)
	fields := list[0].GetStructValue().GetFields()
	assert.Equal(t, float64(b.ID()), fields["id"].GetNumberValue())
	assert.Equal(t, 1., fields["lane"].GetNumberValue())
	assert.Equal(t, 20., fields["vy"].GetNumberValue())
	assert.Equal(t, "accelerate", fields["strategy"].GetStringValue())

	_, err = w.agents.GetAgents(context.Background(), request(t, map[string]any{"ids": []any{float64(99)}}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = w.agents.GetAgents(context.Background(), request(t, map[string]any{"ids": "x"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = w.agents.GetAgents(context.Background(), request(t, map[string]any{"ids": []any{1.5}}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestGetStats(t *testing.T) {
	w := newTestWorld(t, nil)
	p := testPersonality()
	w.place(t, 0, 10000, 10, p)
	w.place(t, 0, 12000, 30, p)

	res, err := w.agents.GetStats(context.Background(), request(t, nil))
	require.NoError(t, err)
	fields := res.Msg.GetFields()
	assert.Equal(t, 2., fields["agent_count"].GetNumberValue())
	assert.Equal(t, 1., fields["collision_count"].GetNumberValue())
	assert.InDelta(t, 20., fields["avg_speed"].GetNumberValue(), 1e-9)
}

func TestRetireAgent(t *testing.T) {
	w := newTestWorld(t, nil)
	a := w.place(t, 0, 10000, 10, testPersonality())

	_, err := w.agents.RetireAgent(context.Background(), request(t, nil))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	// 非数字与非整数ID不会被当作0号车辆
	_, err = w.agents.RetireAgent(context.Background(), request(t, map[string]any{"id": "0"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	_, err = w.agents.RetireAgent(context.Background(), request(t, map[string]any{"id": .5}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	require.Equal(t, 1, w.agents.Len())

	_, err = w.agents.RetireAgent(context.Background(), request(t, map[string]any{"id": float64(a.ID())}))
	require.NoError(t, err)
	assert.Equal(t, 0, w.agents.Len())

	_, err = w.agents.RetireAgent(context.Background(), request(t, map[string]any{"id": float64(a.ID())}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}
