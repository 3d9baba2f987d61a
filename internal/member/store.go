package member

import (
	"context"

	"github.com/google/uuid"
)

// Store defines what storage operations the member entity has
type Store interface {
	CreateMember(ctx context.Context, member *Member) error
	GetMemberByID(ctx context.Context, id uuid.UUID) (*Member, error)
	GetMemberByEmail(ctx context.Context, email string) (*Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdateMember(ctx context.Context, member *Member) error
	UpdateProgress(ctx context.Context, id uuid.UUID, level, totalExp int) error
	UpdateProfileImage(ctx context.Context, id uuid.UUID, objectName string) error
	SoftDeleteMember(ctx context.Context, id uuid.UUID) error
}
