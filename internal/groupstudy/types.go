package groupstudy

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/damins0406/lets-study-now/internal/openstudy"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrGroupNotEmpty      = errors.New("group still has other members")
	ErrNotGroupLeader     = errors.New("only the group leader may do this")
	ErrNotGroupMember     = errors.New("member does not belong to this group")
	ErrAlreadyGroupMember = errors.New("already a group member")
	ErrCannotRemoveSelf   = errors.New("leader cannot remove themselves")

	ErrRoomNotFound       = errors.New("study room not found")
	ErrRoomFull           = errors.New("study room is full")
	ErrRoomEnded          = errors.New("study room already ended")
	ErrRoomNotEmpty       = errors.New("study room still has other members")
	ErrAlreadyInRoom      = errors.New("already in this study room")
	ErrNotInRoom          = errors.New("member is not in this study room")
	ErrNotCreator         = errors.New("only the room creator may do this")
	ErrCreatorCannotLeave = errors.New("room creator cannot leave, delete the room instead")
	ErrInvalidStudyHours  = errors.New("study hours must be between 1 and 5")
	ErrInvalidCapacity    = errors.New("capacity must be between 2 and 10")
)

type Role string

const (
	RoleLeader Role = "LEADER"
	RoleMember Role = "MEMBER"
)

type RoomStatus string

const (
	RoomActive RoomStatus = "ACTIVE"
	RoomEnded  RoomStatus = "ENDED"
)

const (
	MinStudyHours = 1
	MaxStudyHours = 5
	MinCapacity   = 2
	MaxCapacity   = 10
)

// Group is a long-lived circle of members. Study rooms hang off a group and
// only its members may enter them.
type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	LeaderID    uuid.UUID `json:"leader_id"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type GroupMember struct {
	ID       uuid.UUID `json:"id"`
	GroupID  uuid.UUID `json:"group_id"`
	MemberID uuid.UUID `json:"member_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// StudyRoom is a fixed-duration room inside a group. It runs from creation
// until EndTime and, unlike an open room, its row is physically removed
// once it ends.
type StudyRoom struct {
	ID             uuid.UUID            `json:"id"`
	GroupID        uuid.UUID            `json:"group_id"`
	RoomName       string               `json:"room_name"`
	StudyField     openstudy.StudyField `json:"study_field"`
	StudyHours     int                  `json:"study_hours"`
	MaxMembers     int                  `json:"max_members"`
	CurrentMembers int                  `json:"current_members"`
	CreatorID      uuid.UUID            `json:"creator_id"`
	Status         RoomStatus           `json:"status"`
	EndTime        time.Time            `json:"end_time"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Expired reports whether the room's study window has closed.
func (r *StudyRoom) Expired(now time.Time) bool {
	return r.Status == RoomEnded || now.After(r.EndTime)
}

func (r *StudyRoom) Full() bool {
	return r.CurrentMembers >= r.MaxMembers
}

type RoomParticipant struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	MemberID uuid.UUID `json:"member_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`
}

type AddGroupMemberRequest struct {
	MemberID uuid.UUID `json:"member_id"`
}

type CreateRoomRequest struct {
	GroupID    uuid.UUID            `json:"group_id"`
	RoomName   string               `json:"room_name"`
	StudyField openstudy.StudyField `json:"study_field"`
	StudyHours int                  `json:"study_hours"`
	MaxMembers int                  `json:"max_members"`
}
