package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var (
	agentHeader = []string{
		"timestamp_ms", "agent_id", "current_lane", "lane_intent",
		"x_mm", "y_mm", "vx_mm_per_ms", "vy_mm_per_ms",
		"ax_mm_per_ms2", "ay_mm_per_ms2",
		"desired_speed", "max_speed", "drive_strategy", "vehicle_class",
	}
	collisionHeader = []string{"timestamp_ms", "agent1_id", "agent2_id"}
)

// CSVSink 输出到CSV文件
// 说明：每次运行生成traffic_agent_log_<run>.csv与collisions_log_<run>.csv两个文件
type CSVSink struct {
	agentFile, collisionFile     *os.File
	agentWriter, collisionWriter *csv.Writer
}

// NewCSVSink 在dir下创建CSV文件并写入表头
func NewCSVSink(dir, runID string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}
	agentFile, err := os.Create(filepath.Join(dir, fmt.Sprintf("traffic_agent_log_%s.csv", runID)))
	if err != nil {
		return nil, fmt.Errorf("create agent log: %w", err)
	}
	collisionFile, err := os.Create(filepath.Join(dir, fmt.Sprintf("collisions_log_%s.csv", runID)))
	if err != nil {
		agentFile.Close()
		return nil, fmt.Errorf("create collision log: %w", err)
	}
	s := &CSVSink{
		agentFile:       agentFile,
		collisionFile:   collisionFile,
		agentWriter:     csv.NewWriter(agentFile),
		collisionWriter: csv.NewWriter(collisionFile),
	}
	if err := s.agentWriter.Write(agentHeader); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.collisionWriter.Write(collisionHeader); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) Write(b Batch) error {
	ts := formatFloat(b.T)
	for _, a := range b.Agents {
		row := []string{
			ts,
			strconv.Itoa(int(a.ID)),
			strconv.Itoa(a.Lane),
			strconv.Itoa(a.LaneIntent),
			formatFloat(a.X), formatFloat(a.Y),
			formatFloat(a.VX), formatFloat(a.VY),
			formatFloat(a.AX), formatFloat(a.AY),
			formatFloat(a.DesiredSpeed),
			formatFloat(a.MaxSpeed),
			a.Strategy,
			a.VehicleClass,
		}
		if err := s.agentWriter.Write(row); err != nil {
			return err
		}
	}
	for _, c := range b.Collisions {
		if err := s.collisionWriter.Write([]string{ts, strconv.Itoa(int(c.A)), strconv.Itoa(int(c.B))}); err != nil {
			return err
		}
	}
	s.agentWriter.Flush()
	s.collisionWriter.Flush()
	return errors.Join(s.agentWriter.Error(), s.collisionWriter.Error())
}

func (s *CSVSink) Close() error {
	s.agentWriter.Flush()
	s.collisionWriter.Flush()
	return errors.Join(
		s.agentWriter.Error(), s.collisionWriter.Error(),
		s.agentFile.Close(), s.collisionFile.Close(),
	)
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
