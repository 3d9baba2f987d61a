package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	CreateSession(ctx context.Context, s *StudySession) error
	GetActiveByMember(ctx context.Context, memberID uuid.UUID) (*StudySession, error)
	CloseSession(ctx context.Context, id uuid.UUID, endTime time.Time, studyMinutes int) error
	ListByMember(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]StudySession, error)
}
