package postgres

import (
	"context"
	"database/sql"

	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/apperr"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, display_name, email, phone, created_at, updated_at FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.DisplayName, &u.Email, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, noRows(err, "user %s not found", id)
	}
	return u, nil
}

func (r *userRepository) Save(ctx context.Context, u *domain.User) error {
	ts := now()
	u.UpdatedAt = ts
	query := `INSERT INTO users (id, display_name, email, phone, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $5)
	          ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, email = EXCLUDED.email,
	          phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at
	          RETURNING created_at`
	logger.StoreCall(backend, "UPSERT", "users", "user_id", u.ID)
	err := r.db.QueryRowContext(ctx, query, u.ID, u.DisplayName, u.Email, u.Phone, ts).Scan(&u.CreatedAt)
	return logged("UPSERT", "users", mapError(err))
}

type adminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) repository.AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) Get(ctx context.Context, userID string) (*domain.AdminRecord, error) {
	rec := &domain.AdminRecord{}
	query := `SELECT user_id, is_admin, is_super_admin, temple_id, updated_at FROM admin_records WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rec.UserID, &rec.IsAdmin, &rec.IsSuperAdmin, &rec.TempleID, &rec.UpdatedAt)
	if err != nil {
		return nil, noRows(err, "no admin record for user %s", userID)
	}
	return rec, nil
}

func (r *adminRepository) Set(ctx context.Context, rec *domain.AdminRecord) error {
	rec.UpdatedAt = now()
	query := `INSERT INTO admin_records (user_id, is_admin, is_super_admin, temple_id, updated_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (user_id) DO UPDATE SET is_admin = EXCLUDED.is_admin, is_super_admin = EXCLUDED.is_super_admin,
	          temple_id = EXCLUDED.temple_id, updated_at = EXCLUDED.updated_at`
	logger.StoreCall(backend, "UPSERT", "admin_records", "user_id", rec.UserID, "is_admin", rec.IsAdmin, "is_super_admin", rec.IsSuperAdmin)
	_, err := r.db.ExecContext(ctx, query, rec.UserID, rec.IsAdmin, rec.IsSuperAdmin, rec.TempleID, rec.UpdatedAt)
	return logged("UPSERT", "admin_records", mapError(err))
}

func (r *adminRepository) Delete(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admin_records WHERE user_id = $1`, userID)
	if err != nil {
		return mapError(err)
	}
	return affected(res, "no admin record for user %s", userID)
}

func (r *adminRepository) ListByTemple(ctx context.Context, templeID string) ([]domain.AdminRecord, error) {
	query := `SELECT user_id, is_admin, is_super_admin, temple_id, updated_at FROM admin_records
	          WHERE temple_id = $1 AND is_admin ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, templeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.AdminRecord{}
	for rows.Next() {
		var rec domain.AdminRecord
		if err := rows.Scan(&rec.UserID, &rec.IsAdmin, &rec.IsSuperAdmin, &rec.TempleID, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Add(ctx context.Context, m *domain.TempleMember) error {
	m.JoinedAt = now()
	query := `INSERT INTO temple_members (temple_id, user_id, display_name, email, joined_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, m.TempleID, m.UserID, m.DisplayName, m.Email, m.JoinedAt)
	err = mapError(err)
	if apperr.Is(err, codes.AlreadyExists) {
		return apperr.WithReason(codes.AlreadyExists, apperr.ReasonAlreadyMember,
			"user %s is already a member of temple %s", m.UserID, m.TempleID)
	}
	return err
}

func (r *memberRepository) Get(ctx context.Context, templeID, userID string) (*domain.TempleMember, error) {
	m := &domain.TempleMember{}
	query := `SELECT temple_id, user_id, display_name, email, joined_at FROM temple_members WHERE temple_id = $1 AND user_id = $2`
	err := r.db.QueryRowContext(ctx, query, templeID, userID).Scan(&m.TempleID, &m.UserID, &m.DisplayName, &m.Email, &m.JoinedAt)
	if err != nil {
		return nil, noRows(err, "user %s is not a member of temple %s", userID, templeID)
	}
	return m, nil
}

func (r *memberRepository) Remove(ctx context.Context, templeID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM temple_members WHERE temple_id = $1 AND user_id = $2`, templeID, userID)
	if err != nil {
		return mapError(err)
	}
	return affected(res, "user %s is not a member of temple %s", userID, templeID)
}

func (r *memberRepository) List(ctx context.Context, templeID string) ([]domain.TempleMember, error) {
	query := `SELECT temple_id, user_id, display_name, email, joined_at FROM temple_members WHERE temple_id = $1 ORDER BY joined_at`
	rows, err := r.db.QueryContext(ctx, query, templeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []domain.TempleMember{}
	for rows.Next() {
		var m domain.TempleMember
		if err := rows.Scan(&m.TempleID, &m.UserID, &m.DisplayName, &m.Email, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
