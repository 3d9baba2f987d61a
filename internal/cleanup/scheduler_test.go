package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damins0406/lets-study-now/internal/groupstudy"
	"github.com/damins0406/lets-study-now/internal/openstudy"
)

type fakeOpenJanitor struct {
	aloneRooms     []openstudy.OpenRoom
	scheduledRooms []openstudy.OpenRoom
	terminated     []uuid.UUID
	failOn         uuid.UUID
	panicOn        uuid.UUID
}

func (f *fakeOpenJanitor) SweepAloneRooms(_ context.Context) ([]openstudy.OpenRoom, error) {
	return f.aloneRooms, nil
}

func (f *fakeOpenJanitor) SweepScheduledDeletes(_ context.Context) ([]openstudy.OpenRoom, error) {
	return f.scheduledRooms, nil
}

func (f *fakeOpenJanitor) Terminate(_ context.Context, roomID uuid.UUID) error {
	if roomID == f.panicOn {
		panic("store gone")
	}
	if roomID == f.failOn {
		return errors.New("termination failed")
	}
	f.terminated = append(f.terminated, roomID)
	return nil
}

type fakeGroupJanitor struct {
	expiredRooms []groupstudy.StudyRoom
	ended        []uuid.UUID
}

func (f *fakeGroupJanitor) SweepExpiredRooms(_ context.Context) ([]groupstudy.StudyRoom, error) {
	return f.expiredRooms, nil
}

func (f *fakeGroupJanitor) EndExpiredRoom(_ context.Context, roomID uuid.UUID) error {
	f.ended = append(f.ended, roomID)
	return nil
}

func newTestScheduler(open OpenRoomJanitor, group GroupRoomJanitor) *Scheduler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(open, group, log, time.Minute, 30*time.Second)
}

func openRooms(ids ...uuid.UUID) []openstudy.OpenRoom {
	out := make([]openstudy.OpenRoom, 0, len(ids))
	for _, id := range ids {
		out = append(out, openstudy.OpenRoom{ID: id})
	}
	return out
}

func TestRunOnceDrivesAllSweeps(t *testing.T) {
	alone := uuid.New()
	scheduled := uuid.New()
	expired := uuid.New()

	open := &fakeOpenJanitor{
		aloneRooms:     openRooms(alone),
		scheduledRooms: openRooms(scheduled),
	}
	group := &fakeGroupJanitor{
		expiredRooms: []groupstudy.StudyRoom{{ID: expired}},
	}

	s := newTestScheduler(open, group)
	s.RunOnce(context.Background())

	assert.ElementsMatch(t, []uuid.UUID{alone, scheduled}, open.terminated)
	assert.Equal(t, []uuid.UUID{expired}, group.ended)
}

func TestOneFailingRoomDoesNotBlockSweep(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()

	open := &fakeOpenJanitor{
		aloneRooms: openRooms(bad, good),
		failOn:     bad,
	}
	group := &fakeGroupJanitor{}

	s := newTestScheduler(open, group)
	s.RunOnce(context.Background())

	assert.Equal(t, []uuid.UUID{good}, open.terminated)
}

func TestPanicInOneItemDoesNotBlockSweep(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	expired := uuid.New()

	open := &fakeOpenJanitor{
		aloneRooms: openRooms(bad, good),
		panicOn:    bad,
	}
	group := &fakeGroupJanitor{
		expiredRooms: []groupstudy.StudyRoom{{ID: expired}},
	}

	s := newTestScheduler(open, group)
	require.NotPanics(t, func() { s.RunOnce(context.Background()) })

	assert.Equal(t, []uuid.UUID{good}, open.terminated)
	assert.Equal(t, []uuid.UUID{expired}, group.ended, "later sweeps still run")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	open := &fakeOpenJanitor{}
	group := &fakeGroupJanitor{}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(open, group, log, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
