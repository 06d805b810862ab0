// Package heartbeat logs the agent's task state and world connection at a
// fixed interval.
package heartbeat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/agentstate"
)

const DefaultInterval = 5 * time.Minute

// StateSource supplies the task snapshot.
type StateSource interface {
	Snapshot() agentstate.Snapshot
}

// ConnectionSource reports whether the world session is up.
type ConnectionSource interface {
	Connected() bool
}

// Service runs the periodic status log.
type Service struct {
	state    StateSource
	conn     ConnectionSource
	interval time.Duration
	log      *zap.Logger
}

// NewService creates a heartbeat. interval defaults to five minutes if
// zero; conn may be nil.
func NewService(state StateSource, conn ConnectionSource, interval time.Duration, logger *zap.Logger) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{state: state, conn: conn, interval: interval, log: logger}
}

// Start runs the heartbeat loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("heartbeat: started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ticker.C:
			s.beat()
		case <-ctx.Done():
			s.log.Info("heartbeat: stopped")
			return ctx.Err()
		}
	}
}

func (s *Service) beat() {
	snap := s.state.Snapshot()
	fields := []zap.Field{
		zap.Bool("following", snap.IsFollowing),
		zap.Bool("mining", snap.IsMining),
		zap.Int("tasks", len(snap.Tasks)),
	}
	if snap.TargetPlayer != "" {
		fields = append(fields, zap.String("target", snap.TargetPlayer))
	}
	if s.conn != nil {
		fields = append(fields, zap.Bool("connected", s.conn.Connected()))
	}
	for _, task := range snap.Tasks {
		fields = append(fields, zap.Duration(string(task.Kind)+"_running", time.Since(task.Started).Round(time.Second)))
	}
	s.log.Info("heartbeat", fields...)
}
