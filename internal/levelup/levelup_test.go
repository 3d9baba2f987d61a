package levelup

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	progress map[uuid.UUID]*Progress
}

func newFakeStore() *fakeStore {
	return &fakeStore{progress: make(map[uuid.UUID]*Progress)}
}

func (f *fakeStore) GetProgress(_ context.Context, memberID uuid.UUID) (*Progress, error) {
	p, ok := f.progress[memberID]
	if !ok {
		return nil, ErrMemberNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) UpdateProgress(_ context.Context, memberID uuid.UUID, level, totalExp int) error {
	p, ok := f.progress[memberID]
	if !ok {
		return ErrMemberNotFound
	}
	p.Level = level
	p.TotalExp = totalExp
	return nil
}

func newTestService(store Store) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, log)
}

func TestRequiredMinutesForLevel(t *testing.T) {
	assert.Equal(t, 600, RequiredMinutesForLevel(1))
	assert.Equal(t, 600, RequiredMinutesForLevel(9))
	assert.Equal(t, 1200, RequiredMinutesForLevel(10))
	assert.Equal(t, 1200, RequiredMinutesForLevel(19))
	assert.Equal(t, 1800, RequiredMinutesForLevel(20))
}

func TestApplyMinutesNoLevelUp(t *testing.T) {
	store := newFakeStore()
	memberID := uuid.New()
	store.progress[memberID] = &Progress{MemberID: memberID, Username: "mira", Level: 1, TotalExp: 0}

	svc := newTestService(store)

	result, err := svc.ApplyMinutes(context.Background(), memberID, 599)
	require.NoError(t, err)

	assert.False(t, result.LeveledUp)
	assert.Equal(t, 1, result.NewLevel)
	assert.Equal(t, 599, store.progress[memberID].TotalExp)
}

func TestApplyMinutesLevelUp(t *testing.T) {
	store := newFakeStore()
	memberID := uuid.New()
	store.progress[memberID] = &Progress{MemberID: memberID, Username: "mira", Level: 1, TotalExp: 590}

	svc := newTestService(store)

	result, err := svc.ApplyMinutes(context.Background(), memberID, 10)
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, 2, result.NewLevel)
}

func TestApplyMinutesMultipleLevels(t *testing.T) {
	store := newFakeStore()
	memberID := uuid.New()
	store.progress[memberID] = &Progress{MemberID: memberID, Username: "mira", Level: 1, TotalExp: 0}

	svc := newTestService(store)

	// 600 + 600 minutes clears levels 1 and 2 in one credit
	result, err := svc.ApplyMinutes(context.Background(), memberID, 1200)
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, 3, result.NewLevel)
}

func TestApplyMinutesUnknownMember(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.ApplyMinutes(context.Background(), uuid.New(), 30)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestInfo(t *testing.T) {
	store := newFakeStore()
	memberID := uuid.New()
	store.progress[memberID] = &Progress{MemberID: memberID, Username: "mira", Level: 2, TotalExp: 750}

	svc := newTestService(store)

	info, err := svc.Info(context.Background(), memberID)
	require.NoError(t, err)

	assert.Equal(t, 2, info.CurrentLevel)
	assert.Equal(t, 750, info.TotalExp)
	assert.Equal(t, 150, info.CurrentLevelExp)
	assert.Equal(t, 600, info.RequiredExpForNextLevel)
	assert.Equal(t, 450, info.RemainingExp)
	assert.Equal(t, 25.0, info.Progress)
}
