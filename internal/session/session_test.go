package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damins0406/lets-study-now/internal/levelup"
	"github.com/damins0406/lets-study-now/internal/timer"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	sessions map[uuid.UUID]*StudySession
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[uuid.UUID]*StudySession)}
}

func (f *fakeStore) CreateSession(_ context.Context, s *StudySession) error {
	s.ID = uuid.New()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetActiveByMember(_ context.Context, memberID uuid.UUID) (*StudySession, error) {
	for _, s := range f.sessions {
		if s.MemberID == memberID && s.EndTime == nil {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (f *fakeStore) CloseSession(_ context.Context, id uuid.UUID, endTime time.Time, studyMinutes int) error {
	s, ok := f.sessions[id]
	if !ok || s.EndTime != nil {
		return ErrSessionEnded
	}
	t := endTime
	s.EndTime = &t
	s.StudyMinutes = studyMinutes
	return nil
}

func (f *fakeStore) ListByMember(_ context.Context, memberID uuid.UUID, limit, offset int) ([]StudySession, error) {
	var out []StudySession
	for _, s := range f.sessions {
		if s.MemberID == memberID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeTimerEnder struct {
	seconds int64
	err     error
	calls   int
}

func (f *fakeTimerEnder) End(_ context.Context, _ uuid.UUID) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.seconds, nil
}

type fakeLevelUpper struct {
	result *levelup.Result
	calls  int
}

func (f *fakeLevelUpper) ApplyMinutes(_ context.Context, _ uuid.UUID, minutes int) (*levelup.Result, error) {
	f.calls++
	if f.result != nil {
		return f.result, nil
	}
	return &levelup.Result{}, nil
}

func newTestService(store Store, timers TimerEnder, levels LevelUpper) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, timers, levels, log)
}

func TestStartForceClosesStaleSession(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeTimerEnder{}, &fakeLevelUpper{})
	memberID := uuid.New()

	first, err := svc.Start(context.Background(), memberID, uuid.New(), ContextOpenStudy)
	require.NoError(t, err)

	second, err := svc.Start(context.Background(), memberID, uuid.New(), ContextGroupStudy)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	closed := store.sessions[first.ID]
	require.NotNil(t, closed.EndTime)
	assert.Equal(t, 0, closed.StudyMinutes, "stale session gets no credit")

	active, err := svc.Active(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestEndCreditsFlooredMinutes(t *testing.T) {
	store := newFakeStore()
	timers := &fakeTimerEnder{seconds: 700}
	levels := &fakeLevelUpper{}
	svc := newTestService(store, timers, levels)
	memberID := uuid.New()

	_, err := svc.Start(context.Background(), memberID, uuid.New(), ContextOpenStudy)
	require.NoError(t, err)

	result, err := svc.End(context.Background(), memberID)
	require.NoError(t, err)

	assert.Equal(t, 11, result.StudyMinutes, "700s floors to 11 minutes")
	assert.Equal(t, 1, timers.calls)
	assert.Equal(t, 1, levels.calls)
	assert.False(t, result.LeveledUp)
}

func TestEndToleratesMissingTimer(t *testing.T) {
	store := newFakeStore()
	timers := &fakeTimerEnder{err: timer.ErrTimerNotFound}
	levels := &fakeLevelUpper{}
	svc := newTestService(store, timers, levels)
	memberID := uuid.New()

	_, err := svc.Start(context.Background(), memberID, uuid.New(), ContextOpenStudy)
	require.NoError(t, err)

	result, err := svc.End(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.StudyMinutes)
	assert.Equal(t, 0, levels.calls, "zero minutes must not touch experience")
}

func TestEndReportsLevelUp(t *testing.T) {
	store := newFakeStore()
	timers := &fakeTimerEnder{seconds: 3600}
	levels := &fakeLevelUpper{result: &levelup.Result{LeveledUp: true, NewLevel: 2}}
	svc := newTestService(store, timers, levels)
	memberID := uuid.New()

	_, err := svc.Start(context.Background(), memberID, uuid.New(), ContextOpenStudy)
	require.NoError(t, err)

	result, err := svc.End(context.Background(), memberID)
	require.NoError(t, err)
	assert.True(t, result.LeveledUp)
	require.NotNil(t, result.NewLevel)
	assert.Equal(t, 2, *result.NewLevel)
}

func TestEndWithoutActiveSession(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeTimerEnder{}, &fakeLevelUpper{})

	_, err := svc.End(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestActiveReturnsNilWhenNone(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeTimerEnder{}, &fakeLevelUpper{})

	sess, err := svc.Active(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestStartStampsClock(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeTimerEnder{}, &fakeLevelUpper{})
	svc.now = func() time.Time { return baseTime }

	sess, err := svc.Start(context.Background(), uuid.New(), uuid.New(), ContextOpenStudy)
	require.NoError(t, err)
	assert.Equal(t, baseTime, sess.StartTime)
}
