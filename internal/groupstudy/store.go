package groupstudy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	CreateGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, id uuid.UUID) (*Group, error)
	ListGroupsByLeader(ctx context.Context, leaderID uuid.UUID) ([]Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	AddGroupMember(ctx context.Context, m *GroupMember) error
	GetGroupMember(ctx context.Context, groupID, memberID uuid.UUID) (*GroupMember, error)
	ListGroupMembers(ctx context.Context, groupID uuid.UUID) ([]GroupMember, error)
	CountGroupMembers(ctx context.Context, groupID uuid.UUID) (int, error)
	RemoveGroupMember(ctx context.Context, groupID, memberID uuid.UUID) error

	CreateRoom(ctx context.Context, r *StudyRoom) error
	GetRoom(ctx context.Context, id uuid.UUID) (*StudyRoom, error)
	UpdateRoom(ctx context.Context, r *StudyRoom) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error
	ListRoomsByGroup(ctx context.Context, groupID uuid.UUID) ([]StudyRoom, error)

	// ExpiredRooms finds ACTIVE rooms whose end time has passed.
	ExpiredRooms(ctx context.Context, now time.Time) ([]StudyRoom, error)

	AddRoomParticipant(ctx context.Context, p *RoomParticipant) error
	RoomParticipantExists(ctx context.Context, roomID, memberID uuid.UUID) (bool, error)
	ListRoomParticipants(ctx context.Context, roomID uuid.UUID) ([]RoomParticipant, error)
	CountRoomParticipants(ctx context.Context, roomID uuid.UUID) (int, error)
	RemoveRoomParticipant(ctx context.Context, roomID, memberID uuid.UUID) error
	RemoveAllRoomParticipants(ctx context.Context, roomID uuid.UUID) error
}
