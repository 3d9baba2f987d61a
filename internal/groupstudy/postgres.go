package groupstudy

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
	createGroupQuery = `
		INSERT INTO study_groups (name, leader_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	getGroupQuery = `
		SELECT g.id, g.name, g.leader_id,
		       (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id),
		       g.created_at
		FROM study_groups g
		WHERE g.id = $1
	`

	listGroupsByLeaderQuery = `
		SELECT g.id, g.name, g.leader_id,
		       (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id),
		       g.created_at
		FROM study_groups g
		WHERE g.leader_id = $1
		ORDER BY g.created_at DESC
	`

	listGroupsQuery = `
		SELECT g.id, g.name, g.leader_id,
		       (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id),
		       g.created_at
		FROM study_groups g
		ORDER BY g.created_at DESC
	`

	deleteGroupQuery = `
		DELETE FROM study_groups WHERE id = $1
	`

	addGroupMemberQuery = `
		INSERT INTO group_members (group_id, member_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at
	`

	getGroupMemberQuery = `
		SELECT id, group_id, member_id, role, joined_at
		FROM group_members
		WHERE group_id = $1 AND member_id = $2
	`

	listGroupMembersQuery = `
		SELECT id, group_id, member_id, role, joined_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at
	`

	countGroupMembersQuery = `
		SELECT COUNT(*) FROM group_members WHERE group_id = $1
	`

	removeGroupMemberQuery = `
		DELETE FROM group_members WHERE group_id = $1 AND member_id = $2
	`

	createRoomQuery = `
		INSERT INTO group_study_rooms (group_id, room_name, study_field, study_hours, max_members, current_members, creator_id, status, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	getRoomQuery = `
		SELECT id, group_id, room_name, study_field, study_hours, max_members, current_members, creator_id, status, end_time, created_at, updated_at
		FROM group_study_rooms
		WHERE id = $1
	`

	updateRoomQuery = `
		UPDATE group_study_rooms
		SET current_members = $2, status = $3, updated_at = NOW()
		WHERE id = $1
	`

	deleteRoomQuery = `
		DELETE FROM group_study_rooms WHERE id = $1
	`

	listRoomsByGroupQuery = `
		SELECT id, group_id, room_name, study_field, study_hours, max_members, current_members, creator_id, status, end_time, created_at, updated_at
		FROM group_study_rooms
		WHERE group_id = $1
		ORDER BY created_at DESC
	`

	expiredRoomsQuery = `
		SELECT id, group_id, room_name, study_field, study_hours, max_members, current_members, creator_id, status, end_time, created_at, updated_at
		FROM group_study_rooms
		WHERE status = 'ACTIVE' AND end_time < $1
	`

	addRoomParticipantQuery = `
		INSERT INTO group_room_participants (room_id, member_id, joined_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	roomParticipantExistsQuery = `
		SELECT EXISTS(SELECT 1 FROM group_room_participants WHERE room_id = $1 AND member_id = $2)
	`

	listRoomParticipantsQuery = `
		SELECT id, room_id, member_id, joined_at
		FROM group_room_participants
		WHERE room_id = $1
		ORDER BY joined_at
	`

	countRoomParticipantsQuery = `
		SELECT COUNT(*) FROM group_room_participants WHERE room_id = $1
	`

	removeRoomParticipantQuery = `
		DELETE FROM group_room_participants WHERE room_id = $1 AND member_id = $2
	`

	removeAllRoomParticipantsQuery = `
		DELETE FROM group_room_participants WHERE room_id = $1
	`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateGroup(ctx context.Context, g *Group) error {
	err := s.pool.QueryRow(ctx, createGroupQuery, g.Name, g.LeaderID).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, id uuid.UUID) (*Group, error) {
	g, err := scanGroup(s.pool.QueryRow(ctx, getGroupQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return g, nil
}

func (s *PostgresStore) ListGroupsByLeader(ctx context.Context, leaderID uuid.UUID) ([]Group, error) {
	return s.queryGroups(ctx, listGroupsByLeaderQuery, leaderID)
}

func (s *PostgresStore) ListGroups(ctx context.Context) ([]Group, error) {
	return s.queryGroups(ctx, listGroupsQuery)
}

func (s *PostgresStore) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, deleteGroupQuery, id)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to delete group: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrGroupNotFound
	}

	return nil
}

func (s *PostgresStore) AddGroupMember(ctx context.Context, m *GroupMember) error {
	err := s.pool.QueryRow(ctx, addGroupMemberQuery, m.GroupID, m.MemberID, m.Role).Scan(&m.ID, &m.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyGroupMember
		}
		return fmt.Errorf("failed to add group member: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetGroupMember(ctx context.Context, groupID, memberID uuid.UUID) (*GroupMember, error) {
	var m GroupMember

	err := s.pool.QueryRow(ctx, getGroupMemberQuery, groupID, memberID).Scan(
		&m.ID, &m.GroupID, &m.MemberID, &m.Role, &m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotGroupMember
		}
		return nil, fmt.Errorf("failed to get group member: %w", err)
	}

	return &m, nil
}

func (s *PostgresStore) ListGroupMembers(ctx context.Context, groupID uuid.UUID) ([]GroupMember, error) {
	rows, err := s.pool.Query(ctx, listGroupMembersQuery, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var members []GroupMember
	for rows.Next() {
		var m GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.MemberID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return members, nil
}

func (s *PostgresStore) CountGroupMembers(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int

	err := s.pool.QueryRow(ctx, countGroupMembersQuery, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count group members: %w", err)
	}

	return count, nil
}

func (s *PostgresStore) RemoveGroupMember(ctx context.Context, groupID, memberID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, removeGroupMemberQuery, groupID, memberID)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to remove group member: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotGroupMember
	}

	return nil
}

func (s *PostgresStore) CreateRoom(ctx context.Context, r *StudyRoom) error {
	err := s.pool.QueryRow(ctx, createRoomQuery,
		r.GroupID,
		r.RoomName,
		r.StudyField,
		r.StudyHours,
		r.MaxMembers,
		r.CurrentMembers,
		r.CreatorID,
		r.Status,
		r.EndTime,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create study room: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetRoom(ctx context.Context, id uuid.UUID) (*StudyRoom, error) {
	r, err := scanStudyRoom(s.pool.QueryRow(ctx, getRoomQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get study room: %w", err)
	}

	return r, nil
}

func (s *PostgresStore) UpdateRoom(ctx context.Context, r *StudyRoom) error {
	result, err := s.pool.Exec(ctx, updateRoomQuery, r.ID, r.CurrentMembers, r.Status)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to update study room: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRoomNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, deleteRoomQuery, id)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to delete study room: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRoomNotFound
	}

	return nil
}

func (s *PostgresStore) ListRoomsByGroup(ctx context.Context, groupID uuid.UUID) ([]StudyRoom, error) {
	return s.queryRooms(ctx, listRoomsByGroupQuery, groupID)
}

func (s *PostgresStore) ExpiredRooms(ctx context.Context, now time.Time) ([]StudyRoom, error) {
	return s.queryRooms(ctx, expiredRoomsQuery, now)
}

func (s *PostgresStore) AddRoomParticipant(ctx context.Context, p *RoomParticipant) error {
	err := s.pool.QueryRow(ctx, addRoomParticipantQuery, p.RoomID, p.MemberID, p.JoinedAt).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyInRoom
		}
		return fmt.Errorf("failed to add room participant: %w", err)
	}

	return nil
}

func (s *PostgresStore) RoomParticipantExists(ctx context.Context, roomID, memberID uuid.UUID) (bool, error) {
	var exists bool

	err := s.pool.QueryRow(ctx, roomParticipantExistsQuery, roomID, memberID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check room participant: %w", err)
	}

	return exists, nil
}

func (s *PostgresStore) ListRoomParticipants(ctx context.Context, roomID uuid.UUID) ([]RoomParticipant, error) {
	rows, err := s.pool.Query(ctx, listRoomParticipantsQuery, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room participants: %w", err)
	}
	defer rows.Close()

	var participants []RoomParticipant
	for rows.Next() {
		var p RoomParticipant
		if err := rows.Scan(&p.ID, &p.RoomID, &p.MemberID, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room participant: %w", err)
		}
		participants = append(participants, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate room participants: %w", err)
	}

	return participants, nil
}

func (s *PostgresStore) CountRoomParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	var count int

	err := s.pool.QueryRow(ctx, countRoomParticipantsQuery, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count room participants: %w", err)
	}

	return count, nil
}

func (s *PostgresStore) RemoveRoomParticipant(ctx context.Context, roomID, memberID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, removeRoomParticipantQuery, roomID, memberID)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to remove room participant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotInRoom
	}

	return nil
}

func (s *PostgresStore) RemoveAllRoomParticipants(ctx context.Context, roomID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, removeAllRoomParticipantsQuery, roomID)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to remove room participants: %w", err)
	}

	return nil
}

func (s *PostgresStore) queryGroups(ctx context.Context, query string, args ...any) ([]Group, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, nil
}

func (s *PostgresStore) queryRooms(ctx context.Context, query string, args ...any) ([]StudyRoom, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query study rooms: %w", err)
	}
	defer rows.Close()

	var rooms []StudyRoom
	for rows.Next() {
		r, err := scanStudyRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study room: %w", err)
		}
		rooms = append(rooms, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study rooms: %w", err)
	}

	return rooms, nil
}

func scanGroup(row pgx.Row) (*Group, error) {
	var g Group
	if err := row.Scan(&g.ID, &g.Name, &g.LeaderID, &g.MemberCount, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanStudyRoom(row pgx.Row) (*StudyRoom, error) {
	var r StudyRoom

	err := row.Scan(
		&r.ID,
		&r.GroupID,
		&r.RoomName,
		&r.StudyField,
		&r.StudyHours,
		&r.MaxMembers,
		&r.CurrentMembers,
		&r.CreatorID,
		&r.Status,
		&r.EndTime,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}
