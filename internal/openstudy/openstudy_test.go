package openstudy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damins0406/lets-study-now/internal/session"
	"github.com/damins0406/lets-study-now/internal/timer"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	rooms        map[uuid.UUID]*OpenRoom
	participants map[uuid.UUID]map[uuid.UUID]*Participant
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:        make(map[uuid.UUID]*OpenRoom),
		participants: make(map[uuid.UUID]map[uuid.UUID]*Participant),
	}
}

func (f *fakeStore) CreateRoom(_ context.Context, room *OpenRoom) error {
	room.ID = uuid.New()
	room.CreatedAt = baseTime
	cp := *room
	f.rooms[room.ID] = &cp
	return nil
}

func (f *fakeStore) GetRoom(_ context.Context, id uuid.UUID) (*OpenRoom, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (f *fakeStore) UpdateRoom(_ context.Context, room *OpenRoom) error {
	if _, ok := f.rooms[room.ID]; !ok {
		return ErrRoomNotFound
	}
	cp := *room
	f.rooms[room.ID] = &cp
	return nil
}

func (f *fakeStore) ListRooms(_ context.Context, field StudyField, limit, offset int) ([]OpenRoom, int, error) {
	var out []OpenRoom
	for _, r := range f.rooms {
		if r.Status != StatusActive && r.Status != StatusPendingDelete {
			continue
		}
		if field != "" && r.StudyField != field {
			continue
		}
		out = append(out, *r)
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeStore) AddParticipant(_ context.Context, p *Participant) error {
	if f.participants[p.RoomID] == nil {
		f.participants[p.RoomID] = make(map[uuid.UUID]*Participant)
	}
	if _, ok := f.participants[p.RoomID][p.MemberID]; ok {
		return ErrAlreadyInRoom
	}
	p.ID = uuid.New()
	cp := *p
	f.participants[p.RoomID][p.MemberID] = &cp
	return nil
}

func (f *fakeStore) RemoveParticipant(_ context.Context, roomID, memberID uuid.UUID) error {
	if _, ok := f.participants[roomID][memberID]; !ok {
		return ErrNotInRoom
	}
	delete(f.participants[roomID], memberID)
	return nil
}

func (f *fakeStore) RemoveAllParticipants(_ context.Context, roomID uuid.UUID) error {
	delete(f.participants, roomID)
	return nil
}

func (f *fakeStore) ParticipantExists(_ context.Context, roomID, memberID uuid.UUID) (bool, error) {
	_, ok := f.participants[roomID][memberID]
	return ok, nil
}

func (f *fakeStore) CountParticipants(_ context.Context, roomID uuid.UUID) (int, error) {
	return len(f.participants[roomID]), nil
}

func (f *fakeStore) ListParticipants(_ context.Context, roomID uuid.UUID) ([]Participant, error) {
	var out []Participant
	for _, p := range f.participants[roomID] {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) ActiveRoomForMember(_ context.Context, memberID uuid.UUID) (uuid.UUID, bool, error) {
	for roomID, members := range f.participants {
		room := f.rooms[roomID]
		if room == nil || room.Status == StatusDeleted {
			continue
		}
		if _, ok := members[memberID]; ok {
			return roomID, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (f *fakeStore) ExpiredAloneRooms(_ context.Context, cutoff time.Time) ([]OpenRoom, error) {
	var out []OpenRoom
	for _, r := range f.rooms {
		if r.Status == StatusActive && r.AloneTimerStartedAt != nil &&
			!r.AloneTimerStartedAt.After(cutoff) && r.CurrentMembers == 1 {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) RoomsToDelete(_ context.Context, now time.Time) ([]OpenRoom, error) {
	var out []OpenRoom
	for _, r := range f.rooms {
		if r.Status == StatusPendingDelete && r.DeleteScheduledAt != nil &&
			!r.DeleteScheduledAt.After(now) && r.CurrentMembers <= 1 {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeSessions struct {
	started []uuid.UUID
	ended   []uuid.UUID
	endErr  error
}

func (f *fakeSessions) Start(_ context.Context, memberID, roomID uuid.UUID, _ session.StudyContext) (*session.StudySession, error) {
	f.started = append(f.started, memberID)
	return &session.StudySession{ID: uuid.New(), MemberID: memberID, RoomID: roomID}, nil
}

func (f *fakeSessions) End(_ context.Context, memberID uuid.UUID) (*session.EndResult, error) {
	if f.endErr != nil {
		return nil, f.endErr
	}
	f.ended = append(f.ended, memberID)
	return &session.EndResult{}, nil
}

type fakeTimers struct {
	started []uuid.UUID
	ended   []uuid.UUID
	endErr  error
}

func (f *fakeTimers) Start(_ context.Context, memberID, roomID uuid.UUID) (*timer.PersonalTimer, error) {
	f.started = append(f.started, memberID)
	return &timer.PersonalTimer{MemberID: memberID, RoomID: roomID}, nil
}

func (f *fakeTimers) End(_ context.Context, memberID uuid.UUID) (int64, error) {
	if f.endErr != nil {
		return 0, f.endErr
	}
	f.ended = append(f.ended, memberID)
	return 0, nil
}

func newTestService(store Store) (*Service, *fakeSessions, *fakeTimers) {
	sessions := &fakeSessions{}
	timers := &fakeTimers{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, sessions, timers, log)
	svc.now = func() time.Time { return baseTime }
	return svc, sessions, timers
}

func createRoom(t *testing.T, svc *Service, creatorID uuid.UUID, capacity int) *OpenRoom {
	t.Helper()
	room, err := svc.Create(context.Background(), creatorID, &CreateRoomRequest{
		Title:      "evening focus",
		StudyField: FieldProgramming,
		MaxMembers: capacity,
	})
	require.NoError(t, err)
	return room
}

func TestCreateStartsAloneTimer(t *testing.T) {
	store := newFakeStore()
	svc, sessions, timers := newTestService(store)
	creator := uuid.New()

	room := createRoom(t, svc, creator, 5)

	assert.Equal(t, 1, room.CurrentMembers)
	assert.Equal(t, StatusActive, room.Status)
	require.NotNil(t, room.AloneTimerStartedAt)
	assert.Equal(t, baseTime, *room.AloneTimerStartedAt)
	assert.Equal(t, []uuid.UUID{creator}, sessions.started)
	assert.Equal(t, []uuid.UUID{creator}, timers.started)
}

func TestCreateRejectsBadCapacity(t *testing.T) {
	svc, _, _ := newTestService(newFakeStore())

	for _, capacity := range []int{1, 11, 0} {
		_, err := svc.Create(context.Background(), uuid.New(), &CreateRoomRequest{
			Title:      "room",
			StudyField: FieldExam,
			MaxMembers: capacity,
		})
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	}
}

func TestJoinClearsAloneTimer(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)

	room := createRoom(t, svc, uuid.New(), 5)

	joined, err := svc.Join(context.Background(), room.ID, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 2, joined.CurrentMembers)
	assert.Nil(t, joined.AloneTimerStartedAt)

	expired, err := svc.SweepAloneRooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, expired, "room with company must never hit the alone sweep")
}

func TestJoinChecksRunInOrder(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	creator := uuid.New()
	room := createRoom(t, svc, creator, 2)

	// member already in another room
	_, err := svc.Join(context.Background(), room.ID, creator)
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	// unknown room
	_, err = svc.Join(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// full room
	_, err = svc.Join(context.Background(), room.ID, uuid.New())
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), room.ID, uuid.New())
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinRejectedWhilePendingDelete(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	creator := uuid.New()
	room := createRoom(t, svc, creator, 5)
	second := uuid.New()

	_, err := svc.Join(context.Background(), room.ID, second)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(context.Background(), room.ID, second))

	_, err = svc.Join(context.Background(), room.ID, uuid.New())
	assert.ErrorIs(t, err, ErrRoomDeleting)
}

func TestJoinDeletedRoomLooksMissing(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	room := createRoom(t, svc, uuid.New(), 5)

	require.NoError(t, svc.Terminate(context.Background(), room.ID))

	_, err := svc.Join(context.Background(), room.ID, uuid.New())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveSchedulesDelete(t *testing.T) {
	store := newFakeStore()
	svc, sessions, _ := newTestService(store)
	creator := uuid.New()
	second := uuid.New()
	room := createRoom(t, svc, creator, 5)

	_, err := svc.Join(context.Background(), room.ID, second)
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), room.ID, second))

	got, err := store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentMembers)
	assert.Equal(t, StatusPendingDelete, got.Status)
	require.NotNil(t, got.DeleteScheduledAt)
	assert.Equal(t, baseTime.Add(GracePeriod), *got.DeleteScheduledAt)
	assert.Contains(t, sessions.ended, second)
}

func TestLeaveNotInRoom(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	room := createRoom(t, svc, uuid.New(), 5)

	err := svc.Leave(context.Background(), room.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestTerminateEvictsRemainingMembers(t *testing.T) {
	store := newFakeStore()
	svc, sessions, _ := newTestService(store)
	creator := uuid.New()
	room := createRoom(t, svc, creator, 5)

	require.NoError(t, svc.Terminate(context.Background(), room.ID))

	got, err := store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, got.Status)
	assert.Equal(t, 0, got.CurrentMembers)
	assert.Contains(t, sessions.ended, creator)

	count, err := store.CountParticipants(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTerminateAbortsWhenMembersRecovered(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	creator := uuid.New()
	room := createRoom(t, svc, creator, 5)
	_, err := svc.Join(context.Background(), room.ID, uuid.New())
	require.NoError(t, err)

	// simulate a stale schedule surviving from before the join
	stored := store.rooms[room.ID]
	scheduledAt := baseTime.Add(-time.Minute)
	stored.Status = StatusPendingDelete
	stored.DeleteScheduledAt = &scheduledAt

	require.NoError(t, svc.Terminate(context.Background(), room.ID))

	got, err := store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.Nil(t, got.DeleteScheduledAt)
	assert.Equal(t, 2, got.CurrentMembers)
}

func TestTerminateIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc, sessions, _ := newTestService(store)
	room := createRoom(t, svc, uuid.New(), 5)

	require.NoError(t, svc.Terminate(context.Background(), room.ID))
	endedOnce := len(sessions.ended)

	require.NoError(t, svc.Terminate(context.Background(), room.ID))
	assert.Equal(t, endedOnce, len(sessions.ended), "second terminate must not touch anything")

	require.NoError(t, svc.Terminate(context.Background(), uuid.New()), "missing room is a no-op")
}

func TestCounterMatchesParticipantRows(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	creator := uuid.New()
	room := createRoom(t, svc, creator, 5)

	members := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, m := range members {
		_, err := svc.Join(context.Background(), room.ID, m)
		require.NoError(t, err)
	}
	require.NoError(t, svc.Leave(context.Background(), room.ID, members[0]))

	got, err := store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	count, err := store.CountParticipants(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, count, got.CurrentMembers)
}

func TestAloneSweepFindsExpiredRooms(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	room := createRoom(t, svc, uuid.New(), 5)

	svc.now = func() time.Time { return baseTime.Add(GracePeriod + time.Second) }

	expired, err := svc.SweepAloneRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, room.ID, expired[0].ID)
}

func TestScheduledDeleteSweep(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	creator := uuid.New()
	second := uuid.New()
	room := createRoom(t, svc, creator, 5)
	_, err := svc.Join(context.Background(), room.ID, second)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(context.Background(), room.ID, second))

	due, err := svc.SweepScheduledDeletes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, due, "schedule has not elapsed yet")

	svc.now = func() time.Time { return baseTime.Add(GracePeriod + time.Second) }
	due, err = svc.SweepScheduledDeletes(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, room.ID, due[0].ID)
}

func TestListFiltersByStudyField(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)

	_, err := svc.Create(context.Background(), uuid.New(), &CreateRoomRequest{
		Title: "exam prep", StudyField: FieldExam, MaxMembers: 4,
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), uuid.New(), &CreateRoomRequest{
		Title: "leetcode", StudyField: FieldProgramming, MaxMembers: 4,
	})
	require.NoError(t, err)

	all, err := svc.List(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Len(t, all.Rooms, 2)
	assert.Equal(t, 2, all.TotalCount)

	exams, err := svc.List(context.Background(), 1, FieldExam)
	require.NoError(t, err)
	require.Len(t, exams.Rooms, 1)
	assert.Equal(t, "exam prep", exams.Rooms[0].Title)

	_, err = svc.List(context.Background(), 1, "KNITTING")
	assert.ErrorIs(t, err, ErrInvalidStudyField)
}

func TestLeaveEndsTimerWithoutSession(t *testing.T) {
	store := newFakeStore()
	svc, sessions, timers := newTestService(store)
	creator := uuid.New()
	second := uuid.New()

	room := createRoom(t, svc, creator, 5)
	_, err := svc.Join(context.Background(), room.ID, second)
	require.NoError(t, err)

	// the member's session is already gone; the timer must still be ended
	sessions.endErr = session.ErrSessionNotFound

	require.NoError(t, svc.Leave(context.Background(), room.ID, second))
	assert.Equal(t, []uuid.UUID{second}, timers.ended)
}

func TestLastLeaveRestampsDeleteSchedule(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newTestService(store)
	creator := uuid.New()
	second := uuid.New()

	room := createRoom(t, svc, creator, 5)
	_, err := svc.Join(context.Background(), room.ID, second)
	require.NoError(t, err)

	firstLeave := baseTime.Add(time.Minute)
	svc.now = func() time.Time { return firstLeave }
	require.NoError(t, svc.Leave(context.Background(), room.ID, second))

	got, err := store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingDelete, got.Status)
	require.NotNil(t, got.DeleteScheduledAt)
	assert.Equal(t, firstLeave.Add(GracePeriod), *got.DeleteScheduledAt)

	// the 1->0 drop pushes the window out from the later leave
	secondLeave := baseTime.Add(4 * time.Minute)
	svc.now = func() time.Time { return secondLeave }
	require.NoError(t, svc.Leave(context.Background(), room.ID, creator))

	got, err = store.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingDelete, got.Status)
	assert.Equal(t, 0, got.CurrentMembers)
	require.NotNil(t, got.DeleteScheduledAt)
	assert.Equal(t, secondLeave.Add(GracePeriod), *got.DeleteScheduledAt)
}
