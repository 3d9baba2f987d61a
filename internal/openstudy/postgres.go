package openstudy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createRoomQuery = `
		INSERT INTO open_rooms (title, study_field, max_members, current_members, creator_id, status, alone_timer_started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	getRoomQuery = `
		SELECT id, title, study_field, max_members, current_members, creator_id, status,
		       delete_scheduled_at, alone_timer_started_at, created_at, updated_at
		FROM open_rooms
		WHERE id = $1
	`

	updateRoomQuery = `
		UPDATE open_rooms
		SET current_members = $2, status = $3, delete_scheduled_at = $4, alone_timer_started_at = $5, updated_at = NOW()
		WHERE id = $1
	`

	listRoomsQuery = `
		SELECT id, title, study_field, max_members, current_members, creator_id, status,
		       delete_scheduled_at, alone_timer_started_at, created_at, updated_at
		FROM open_rooms
		WHERE status IN ('ACTIVE', 'PENDING_DELETE')
		  AND ($1 = '' OR study_field = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	countRoomsQuery = `
		SELECT COUNT(*) FROM open_rooms
		WHERE status IN ('ACTIVE', 'PENDING_DELETE')
		  AND ($1 = '' OR study_field = $1)
	`

	addParticipantQuery = `
		INSERT INTO open_room_participants (room_id, member_id, joined_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	removeParticipantQuery = `
		DELETE FROM open_room_participants WHERE room_id = $1 AND member_id = $2
	`

	removeAllParticipantsQuery = `
		DELETE FROM open_room_participants WHERE room_id = $1
	`

	participantExistsQuery = `
		SELECT EXISTS(SELECT 1 FROM open_room_participants WHERE room_id = $1 AND member_id = $2)
	`

	countParticipantsQuery = `
		SELECT COUNT(*) FROM open_room_participants WHERE room_id = $1
	`

	listParticipantsQuery = `
		SELECT id, room_id, member_id, joined_at
		FROM open_room_participants
		WHERE room_id = $1
		ORDER BY joined_at
	`

	activeRoomForMemberQuery = `
		SELECT p.room_id
		FROM open_room_participants p
		JOIN open_rooms r ON r.id = p.room_id
		WHERE p.member_id = $1 AND r.status IN ('ACTIVE', 'PENDING_DELETE')
		LIMIT 1
	`

	expiredAloneRoomsQuery = `
		SELECT id, title, study_field, max_members, current_members, creator_id, status,
		       delete_scheduled_at, alone_timer_started_at, created_at, updated_at
		FROM open_rooms
		WHERE alone_timer_started_at IS NOT NULL
		  AND alone_timer_started_at <= $1
		  AND current_members = 1
		  AND status = 'ACTIVE'
	`

	roomsToDeleteQuery = `
		SELECT id, title, study_field, max_members, current_members, creator_id, status,
		       delete_scheduled_at, alone_timer_started_at, created_at, updated_at
		FROM open_rooms
		WHERE status = 'PENDING_DELETE'
		  AND delete_scheduled_at IS NOT NULL
		  AND delete_scheduled_at <= $1
		  AND current_members <= 1
	`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateRoom(ctx context.Context, room *OpenRoom) error {
	err := s.pool.QueryRow(ctx, createRoomQuery,
		room.Title,
		room.StudyField,
		room.MaxMembers,
		room.CurrentMembers,
		room.CreatorID,
		room.Status,
		room.AloneTimerStartedAt,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetRoom(ctx context.Context, id uuid.UUID) (*OpenRoom, error) {
	room, err := scanRoom(s.pool.QueryRow(ctx, getRoomQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

func (s *PostgresStore) UpdateRoom(ctx context.Context, room *OpenRoom) error {
	result, err := s.pool.Exec(ctx, updateRoomQuery,
		room.ID,
		room.CurrentMembers,
		room.Status,
		room.DeleteScheduledAt,
		room.AloneTimerStartedAt,
	)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to update room: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRoomNotFound
	}

	return nil
}

func (s *PostgresStore) ListRooms(ctx context.Context, field StudyField, limit, offset int) ([]OpenRoom, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, countRoomsQuery, field).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count rooms: %w", err)
	}

	rows, err := s.pool.Query(ctx, listRoomsQuery, field, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []OpenRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, *room)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, total, nil
}

func (s *PostgresStore) AddParticipant(ctx context.Context, p *Participant) error {
	err := s.pool.QueryRow(ctx, addParticipantQuery, p.RoomID, p.MemberID, p.JoinedAt).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyInRoom
		}
		return fmt.Errorf("failed to add participant: %w", err)
	}

	return nil
}

func (s *PostgresStore) RemoveParticipant(ctx context.Context, roomID, memberID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, removeParticipantQuery, roomID, memberID)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotInRoom
	}

	return nil
}

func (s *PostgresStore) RemoveAllParticipants(ctx context.Context, roomID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, removeAllParticipantsQuery, roomID)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to remove participants: %w", err)
	}

	return nil
}

func (s *PostgresStore) ParticipantExists(ctx context.Context, roomID, memberID uuid.UUID) (bool, error) {
	var exists bool

	err := s.pool.QueryRow(ctx, participantExistsQuery, roomID, memberID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}

	return exists, nil
}

func (s *PostgresStore) CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int

	err := s.pool.QueryRow(ctx, countParticipantsQuery, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}

	return count, nil
}

func (s *PostgresStore) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]Participant, error) {
	rows, err := s.pool.Query(ctx, listParticipantsQuery, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.RoomID, &p.MemberID, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

func (s *PostgresStore) ActiveRoomForMember(ctx context.Context, memberID uuid.UUID) (uuid.UUID, bool, error) {
	var roomID uuid.UUID

	err := s.pool.QueryRow(ctx, activeRoomForMemberQuery, memberID).Scan(&roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to check room membership: %w", err)
	}

	return roomID, true, nil
}

func (s *PostgresStore) ExpiredAloneRooms(ctx context.Context, cutoff time.Time) ([]OpenRoom, error) {
	return s.queryRooms(ctx, expiredAloneRoomsQuery, cutoff)
}

func (s *PostgresStore) RoomsToDelete(ctx context.Context, now time.Time) ([]OpenRoom, error) {
	return s.queryRooms(ctx, roomsToDeleteQuery, now)
}

func (s *PostgresStore) queryRooms(ctx context.Context, query string, args ...any) ([]OpenRoom, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []OpenRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, *room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, nil
}

func scanRoom(row pgx.Row) (*OpenRoom, error) {
	var room OpenRoom

	err := row.Scan(
		&room.ID,
		&room.Title,
		&room.StudyField,
		&room.MaxMembers,
		&room.CurrentMembers,
		&room.CreatorID,
		&room.Status,
		&room.DeleteScheduledAt,
		&room.AloneTimerStartedAt,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &room, nil
}
