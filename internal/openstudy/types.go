package openstudy

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound      = errors.New("open study room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrRoomDeleting      = errors.New("room is scheduled for deletion")
	ErrAlreadyInRoom     = errors.New("member is already in a room")
	ErrNotInRoom         = errors.New("member is not in this room")
	ErrInvalidCapacity   = errors.New("capacity must be between 2 and 10")
	ErrInvalidStudyField = errors.New("unknown study field")
)

type Status string

const (
	StatusActive        Status = "ACTIVE"
	StatusPendingDelete Status = "PENDING_DELETE"
	StatusDeleted       Status = "DELETED"
)

type StudyField string

const (
	FieldLanguage    StudyField = "LANGUAGE"
	FieldEmployment  StudyField = "EMPLOYMENT"
	FieldExam        StudyField = "EXAM"
	FieldCertificate StudyField = "CERTIFICATE"
	FieldSchool      StudyField = "SCHOOL"
	FieldProgramming StudyField = "PROGRAMMING"
	FieldHobby       StudyField = "HOBBY"
	FieldEtc         StudyField = "ETC"
)

func ValidStudyField(f StudyField) bool {
	switch f {
	case FieldLanguage, FieldEmployment, FieldExam, FieldCertificate,
		FieldSchool, FieldProgramming, FieldHobby, FieldEtc:
		return true
	}
	return false
}

const (
	MinCapacity = 2
	MaxCapacity = 10

	// Grace window for both the lone-creator timer and the scheduled delete.
	GracePeriod = 5 * time.Minute

	PageSize = 10
)

// OpenRoom is an ad-hoc study room. It dies in two ways: nobody joins the
// creator within the grace period, or membership drops to one or zero and
// does not recover before the scheduled delete fires. Deleted rooms are
// kept as rows with StatusDeleted, never physically removed.
type OpenRoom struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	StudyField          StudyField `json:"study_field"`
	MaxMembers          int        `json:"max_members"`
	CurrentMembers      int        `json:"current_members"`
	CreatorID           uuid.UUID  `json:"creator_id"`
	Status              Status     `json:"status"`
	DeleteScheduledAt   *time.Time `json:"delete_scheduled_at,omitempty"`
	AloneTimerStartedAt *time.Time `json:"alone_timer_started_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Participant links one member to one room. The room's CurrentMembers
// counter caches count(participants); mutation points recount instead of
// trusting the cache.
type Participant struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	MemberID uuid.UUID `json:"member_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type CreateRoomRequest struct {
	Title      string     `json:"title"`
	StudyField StudyField `json:"study_field"`
	MaxMembers int        `json:"max_members"`
}

type RoomListResponse struct {
	Rooms      []OpenRoom `json:"rooms"`
	Page       int        `json:"page"`
	TotalCount int        `json:"total_count"`
}
