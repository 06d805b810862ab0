// Package cron posts scheduled announcements to world chat.
//
// Schedules use the standard five-field cron syntax ("0 9 * * *") or the
// robfig descriptors ("@hourly", "@every 10m").
package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/bus"
)

var ErrEmptyText = errors.New("announcement text is empty")

// Announcement is one scheduled chat line.
type Announcement struct {
	Schedule string
	Text     string
}

// Job is an armed announcement.
type Job struct {
	ID       int
	Schedule string
	Text     string
	Next     time.Time
}

// Service owns the scheduler. Announcements may be added before or after
// Start.
type Service struct {
	bus bus.Bus
	log *zap.Logger

	mu      sync.Mutex
	robfig  *robfigcron.Cron
	entries map[robfigcron.EntryID]Announcement
}

func NewService(b bus.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		bus:     b,
		log:     logger,
		robfig:  robfigcron.New(),
		entries: make(map[robfigcron.EntryID]Announcement),
	}
}

// Add arms a. The schedule is validated here, not when it first fires.
func (s *Service) Add(a Announcement) (int, error) {
	a.Text = strings.TrimSpace(a.Text)
	if a.Text == "" {
		return 0, ErrEmptyText
	}
	sched, err := robfigcron.ParseStandard(a.Schedule)
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", a.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.robfig.Schedule(sched, robfigcron.FuncJob(func() { s.fire(a) }))
	s.entries[id] = a
	return int(id), nil
}

// Remove disarms the job with the given id.
func (s *Service) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	eid := robfigcron.EntryID(id)
	if _, ok := s.entries[eid]; !ok {
		return false
	}
	s.robfig.Remove(eid)
	delete(s.entries, eid)
	return true
}

// Jobs lists the armed announcements ordered by id. Next is zero until the
// scheduler has started.
func (s *Service) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.entries))
	for _, e := range s.robfig.Entries() {
		a, ok := s.entries[e.ID]
		if !ok {
			continue
		}
		out = append(out, Job{ID: int(e.ID), Schedule: a.Schedule, Text: a.Text, Next: e.Next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Start runs the scheduler until ctx is cancelled, then waits for running
// jobs to finish.
func (s *Service) Start(ctx context.Context) error {
	s.robfig.Start()
	s.log.Info("cron: started", zap.Int("jobs", len(s.Jobs())))

	<-ctx.Done()

	<-s.robfig.Stop().Done()
	s.log.Info("cron: stopped")
	return ctx.Err()
}

func (s *Service) fire(a Announcement) {
	s.log.Info("cron: announcement", zap.String("schedule", a.Schedule), zap.String("text", a.Text))
	s.bus.PublishOutbound(bus.NewOutboundMessage(bus.ChannelCron, "", a.Text))
}
