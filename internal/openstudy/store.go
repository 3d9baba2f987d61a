package openstudy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	CreateRoom(ctx context.Context, room *OpenRoom) error
	GetRoom(ctx context.Context, id uuid.UUID) (*OpenRoom, error)
	UpdateRoom(ctx context.Context, room *OpenRoom) error
	ListRooms(ctx context.Context, field StudyField, limit, offset int) ([]OpenRoom, int, error)

	AddParticipant(ctx context.Context, p *Participant) error
	RemoveParticipant(ctx context.Context, roomID, memberID uuid.UUID) error
	RemoveAllParticipants(ctx context.Context, roomID uuid.UUID) error
	ParticipantExists(ctx context.Context, roomID, memberID uuid.UUID) (bool, error)
	CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error)
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]Participant, error)

	// ActiveRoomForMember reports whether the member currently occupies any
	// non-deleted open room.
	ActiveRoomForMember(ctx context.Context, memberID uuid.UUID) (uuid.UUID, bool, error)

	// ExpiredAloneRooms finds rooms whose creator has been alone past the
	// grace period: alone timer set, one participant, started before cutoff.
	ExpiredAloneRooms(ctx context.Context, cutoff time.Time) ([]OpenRoom, error)

	// RoomsToDelete finds PENDING_DELETE rooms whose schedule has passed
	// with at most one participant remaining.
	RoomsToDelete(ctx context.Context, now time.Time) ([]OpenRoom, error)
}
