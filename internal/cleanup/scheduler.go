package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/damins0406/lets-study-now/internal/groupstudy"
	"github.com/damins0406/lets-study-now/internal/openstudy"
)

// OpenRoomJanitor is the slice of the open-room service the scheduler
// drives. Terminate re-validates membership itself, so the sweep can act on
// a stale snapshot safely.
type OpenRoomJanitor interface {
	SweepAloneRooms(ctx context.Context) ([]openstudy.OpenRoom, error)
	SweepScheduledDeletes(ctx context.Context) ([]openstudy.OpenRoom, error)
	Terminate(ctx context.Context, roomID uuid.UUID) error
}

type GroupRoomJanitor interface {
	SweepExpiredRooms(ctx context.Context) ([]groupstudy.StudyRoom, error)
	EndExpiredRoom(ctx context.Context, roomID uuid.UUID) error
}

// Scheduler periodically reconciles room state: open rooms whose creator
// sat alone past the grace period, open rooms whose scheduled delete has
// come due, and group rooms past their end time. One failing room never
// blocks the rest of a sweep, and one failing sweep never blocks the
// others; everything is retried from row state on the next tick.
type Scheduler struct {
	open         OpenRoomJanitor
	group        GroupRoomJanitor
	log          *slog.Logger
	interval     time.Duration
	initialDelay time.Duration
}

func NewScheduler(open OpenRoomJanitor, group GroupRoomJanitor, log *slog.Logger, interval, initialDelay time.Duration) *Scheduler {
	return &Scheduler{
		open:         open,
		group:        group,
		log:          log,
		interval:     interval,
		initialDelay: initialDelay,
	}
}

// Run blocks until ctx is canceled. Call it from its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("cleanup scheduler starting",
		"interval", s.interval,
		"initial_delay", s.initialDelay,
	)

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.initialDelay):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("cleanup scheduler stopping")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes all three sweeps a single time.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.runSweep(ctx, "alone_rooms", s.sweepAloneRooms)
	s.runSweep(ctx, "scheduled_deletes", s.sweepScheduledDeletes)
	s.runSweep(ctx, "expired_group_rooms", s.sweepExpiredGroupRooms)
}

func (s *Scheduler) runSweep(ctx context.Context, name string, sweep func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sweep panicked", "sweep", name, "panic", r)
		}
	}()

	sweep(ctx)
}

func (s *Scheduler) sweepAloneRooms(ctx context.Context) {
	rooms, err := s.open.SweepAloneRooms(ctx)
	if err != nil {
		s.log.Error("alone-room sweep query failed", "error", err)
		return
	}

	for _, room := range rooms {
		if err := s.terminateOpenRoom(ctx, room.ID); err != nil {
			s.log.Error("failed to terminate alone room",
				"room_id", room.ID, "error", err)
			continue
		}
		s.log.Info("alone room terminated", "room_id", room.ID)
	}
}

func (s *Scheduler) sweepScheduledDeletes(ctx context.Context) {
	rooms, err := s.open.SweepScheduledDeletes(ctx)
	if err != nil {
		s.log.Error("scheduled-delete sweep query failed", "error", err)
		return
	}

	for _, room := range rooms {
		if err := s.terminateOpenRoom(ctx, room.ID); err != nil {
			s.log.Error("failed to delete scheduled room",
				"room_id", room.ID, "error", err)
			continue
		}
		s.log.Info("scheduled room deleted", "room_id", room.ID)
	}
}

func (s *Scheduler) sweepExpiredGroupRooms(ctx context.Context) {
	rooms, err := s.group.SweepExpiredRooms(ctx)
	if err != nil {
		s.log.Error("group-room expiry sweep query failed", "error", err)
		return
	}

	for _, room := range rooms {
		if err := s.endGroupRoom(ctx, room.ID); err != nil {
			s.log.Error("failed to end expired study room",
				"room_id", room.ID, "error", err)
			continue
		}
		s.log.Info("expired study room ended", "room_id", room.ID)
	}
}

func (s *Scheduler) terminateOpenRoom(ctx context.Context, roomID uuid.UUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("room termination panicked", "room_id", roomID, "panic", r)
			err = nil
		}
	}()

	return s.open.Terminate(ctx, roomID)
}

func (s *Scheduler) endGroupRoom(ctx context.Context, roomID uuid.UUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("room teardown panicked", "room_id", roomID, "panic", r)
			err = nil
		}
	}()

	return s.group.EndExpiredRoom(ctx, roomID)
}
