package timer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestPersonalTimerAccumulation(t *testing.T) {
	memberID := uuid.New()
	roomID := uuid.New()

	pt := NewPersonalTimer(memberID, roomID, baseTime)
	require.Equal(t, ModeBasic, pt.Mode)
	require.Equal(t, StatusStudying, pt.Status)

	// study 600s, rest 300s, study 100s
	now := baseTime.Add(600 * time.Second)
	require.NoError(t, pt.Toggle(now))
	assert.Equal(t, StatusResting, pt.Status)
	assert.Equal(t, int64(600), pt.TotalStudySeconds)

	now = now.Add(300 * time.Second)
	require.NoError(t, pt.Toggle(now))
	assert.Equal(t, StatusStudying, pt.Status)
	assert.Equal(t, int64(600), pt.TotalStudySeconds, "resting time must not count")

	now = now.Add(100 * time.Second)
	total := pt.End(now)
	assert.Equal(t, int64(700), total)
}

func TestPersonalTimerEndWhileResting(t *testing.T) {
	pt := NewPersonalTimer(uuid.New(), uuid.New(), baseTime)

	now := baseTime.Add(250 * time.Second)
	require.NoError(t, pt.Toggle(now))

	// segment spent resting is discarded on end
	now = now.Add(900 * time.Second)
	assert.Equal(t, int64(250), pt.End(now))
}

func TestPersonalTimerModeSwitchPreservesTotal(t *testing.T) {
	pt := NewPersonalTimer(uuid.New(), uuid.New(), baseTime)

	now := baseTime.Add(300 * time.Second)
	pt.SwitchMode(ModePomodoro, now)
	pt.Status = StatusStudying
	assert.Equal(t, int64(300), pt.TotalStudySeconds)

	now = now.Add(120 * time.Second)
	require.NoError(t, pt.ChangePomodoroStatus(StatusResting, now))
	assert.Equal(t, int64(420), pt.TotalStudySeconds)

	now = now.Add(60 * time.Second)
	require.NoError(t, pt.ChangePomodoroStatus(StatusStudying, now))
	assert.Equal(t, int64(420), pt.TotalStudySeconds)

	now = now.Add(60 * time.Second)
	pt.SwitchMode(ModeBasic, now)
	assert.Equal(t, int64(480), pt.TotalStudySeconds)
}

func TestPersonalTimerToggleRejectedInPomodoro(t *testing.T) {
	pt := NewPersonalTimer(uuid.New(), uuid.New(), baseTime)
	pt.SwitchMode(ModePomodoro, baseTime)

	err := pt.Toggle(baseTime.Add(time.Minute))
	assert.ErrorIs(t, err, ErrPomodoroMode)
}

func TestPersonalTimerPomodoroStatusRejectedInBasic(t *testing.T) {
	pt := NewPersonalTimer(uuid.New(), uuid.New(), baseTime)

	err := pt.ChangePomodoroStatus(StatusResting, baseTime.Add(time.Minute))
	assert.ErrorIs(t, err, ErrBasicMode)
}

// fakeStore is an in-memory Store for service tests

type fakeStore struct {
	timers   map[uuid.UUID]*PersonalTimer
	settings map[uuid.UUID]*PomodoroSetting
	history  map[uuid.UUID]map[time.Time]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		timers:   make(map[uuid.UUID]*PersonalTimer),
		settings: make(map[uuid.UUID]*PomodoroSetting),
		history:  make(map[uuid.UUID]map[time.Time]int64),
	}
}

func (f *fakeStore) CreateTimer(_ context.Context, t *PersonalTimer) error {
	if _, ok := f.timers[t.MemberID]; ok {
		return ErrTimerExists
	}
	t.ID = uuid.New()
	cp := *t
	f.timers[t.MemberID] = &cp
	return nil
}

func (f *fakeStore) GetTimerByMember(_ context.Context, memberID uuid.UUID) (*PersonalTimer, error) {
	t, ok := f.timers[memberID]
	if !ok {
		return nil, ErrTimerNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) ExistsByMember(_ context.Context, memberID uuid.UUID) (bool, error) {
	_, ok := f.timers[memberID]
	return ok, nil
}

func (f *fakeStore) UpdateTimer(_ context.Context, t *PersonalTimer) error {
	if _, ok := f.timers[t.MemberID]; !ok {
		return ErrTimerNotFound
	}
	cp := *t
	f.timers[t.MemberID] = &cp
	return nil
}

func (f *fakeStore) DeleteTimer(_ context.Context, memberID uuid.UUID) error {
	if _, ok := f.timers[memberID]; !ok {
		return ErrTimerNotFound
	}
	delete(f.timers, memberID)
	return nil
}

func (f *fakeStore) UpsertSetting(_ context.Context, s *PomodoroSetting) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	f.settings[s.MemberID] = &cp
	return nil
}

func (f *fakeStore) GetSettingByMember(_ context.Context, memberID uuid.UUID) (*PomodoroSetting, error) {
	s, ok := f.settings[memberID]
	if !ok {
		return nil, ErrSettingMissing
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) AddHistory(_ context.Context, memberID uuid.UUID, date time.Time, seconds int64) error {
	if f.history[memberID] == nil {
		f.history[memberID] = make(map[time.Time]int64)
	}
	f.history[memberID][date] += seconds
	return nil
}

func (f *fakeStore) GetHistoryTotal(_ context.Context, memberID uuid.UUID) (int64, error) {
	var total int64
	for _, s := range f.history[memberID] {
		total += s
	}
	return total, nil
}

func (f *fakeStore) GetHistoryForDate(_ context.Context, memberID uuid.UUID, date time.Time) (int64, error) {
	return f.history[memberID][date], nil
}

func (f *fakeStore) ListHistory(_ context.Context, memberID uuid.UUID, from, to time.Time) ([]StudyHistory, error) {
	var out []StudyHistory
	for date, s := range f.history[memberID] {
		if date.Before(from) || date.After(to) {
			continue
		}
		out = append(out, StudyHistory{MemberID: memberID, StudyDate: date, TotalStudySeconds: s})
	}
	return out, nil
}

func newTestService(store Store) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, log)
}

func TestServiceStartRejectsSecondTimer(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	memberID := uuid.New()

	_, err := svc.Start(context.Background(), memberID, uuid.New())
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), memberID, uuid.New())
	assert.ErrorIs(t, err, ErrTimerExists)
}

func TestServiceEndFlushesIntoHistory(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	memberID := uuid.New()

	clock := baseTime
	svc.now = func() time.Time { return clock }

	_, err := svc.Start(context.Background(), memberID, uuid.New())
	require.NoError(t, err)

	clock = clock.Add(700 * time.Second)
	total, err := svc.End(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), total)

	_, err = store.GetTimerByMember(context.Background(), memberID)
	assert.ErrorIs(t, err, ErrTimerNotFound)

	day, err := store.GetHistoryForDate(context.Background(), memberID, truncateToDate(clock))
	require.NoError(t, err)
	assert.Equal(t, int64(700), day)
}

func TestServiceEndAccumulatesSameDay(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	memberID := uuid.New()

	clock := baseTime
	svc.now = func() time.Time { return clock }

	for _, secs := range []int64{120, 300} {
		_, err := svc.Start(context.Background(), memberID, uuid.New())
		require.NoError(t, err)
		clock = clock.Add(time.Duration(secs) * time.Second)
		_, err = svc.End(context.Background(), memberID)
		require.NoError(t, err)
	}

	resp, err := svc.StudyTime(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, int64(420), resp.TodaySeconds)
	assert.Equal(t, int64(420), resp.TotalSeconds)
}

func TestServicePomodoroRequiresSetting(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	memberID := uuid.New()

	_, err := svc.Start(context.Background(), memberID, uuid.New())
	require.NoError(t, err)

	_, _, err = svc.StartPomodoro(context.Background(), memberID)
	assert.ErrorIs(t, err, ErrSettingMissing)

	_, err = svc.SaveSetting(context.Background(), memberID, 25, 5)
	require.NoError(t, err)

	timer, setting, err := svc.StartPomodoro(context.Background(), memberID)
	require.NoError(t, err)
	assert.Equal(t, ModePomodoro, timer.Mode)
	assert.Equal(t, 25, setting.StudyMinutes)
}

func TestServiceSaveSettingValidatesRange(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	for _, tc := range []struct{ study, rest int }{
		{0, 5},
		{121, 5},
		{25, 0},
		{25, 121},
	} {
		_, err := svc.SaveSetting(context.Background(), uuid.New(), tc.study, tc.rest)
		assert.ErrorIs(t, err, ErrInvalidMinutes)
	}
}
