package postgres

import (
	"context"
	"database/sql"

	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
)

type templeRepository struct {
	db *sql.DB
}

func NewTempleRepository(db *sql.DB) repository.TempleRepository {
	return &templeRepository{db: db}
}

func (r *templeRepository) Create(ctx context.Context, t *domain.Temple) error {
	t.ID = newID(t.ID)
	ts := now()
	t.CreatedAt, t.UpdatedAt = ts, ts
	logger.StoreCall(backend, "INSERT", "temples", "temple_id", t.ID)
	query := `INSERT INTO temples (id, name, description, address, contact_email, contact_phone, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.Description, t.Address, t.ContactEmail, t.ContactPhone,
		t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return logged("INSERT", "temples", mapError(err))
}

func (r *templeRepository) GetByID(ctx context.Context, id string) (*domain.Temple, error) {
	t := &domain.Temple{}
	query := `SELECT id, name, description, address, contact_email, contact_phone, created_by, created_at, updated_at
	          FROM temples WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.Description, &t.Address,
		&t.ContactEmail, &t.ContactPhone, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, noRows(err, "temple %s not found", id)
	}
	return t, nil
}

func (r *templeRepository) List(ctx context.Context) ([]domain.Temple, error) {
	query := `SELECT id, name, description, address, contact_email, contact_phone, created_by, created_at, updated_at
	          FROM temples ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	temples := []domain.Temple{}
	for rows.Next() {
		var t domain.Temple
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Address, &t.ContactEmail, &t.ContactPhone,
			&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		temples = append(temples, t)
	}
	return temples, rows.Err()
}

func (r *templeRepository) Update(ctx context.Context, t *domain.Temple) error {
	t.UpdatedAt = now()
	query := `UPDATE temples SET name = $1, description = $2, address = $3, contact_email = $4, contact_phone = $5, updated_at = $6
	          WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query, t.Name, t.Description, t.Address, t.ContactEmail, t.ContactPhone, t.UpdatedAt, t.ID)
	if err != nil {
		return mapError(err)
	}
	return affected(res, "temple %s not found", t.ID)
}

func (r *templeRepository) Delete(ctx context.Context, id string) error {
	logger.StoreCall(backend, "DELETE", "temples", "temple_id", id)
	res, err := r.db.ExecContext(ctx, `DELETE FROM temples WHERE id = $1`, id)
	if err != nil {
		return logged("DELETE", "temples", mapError(err))
	}
	return logged("DELETE", "temples", affected(res, "temple %s not found", id))
}

func (r *templeRepository) CreateServiceType(ctx context.Context, st *domain.ServiceType) error {
	st.ID = newID(st.ID)
	st.CreatedAt = now()
	query := `INSERT INTO service_types (id, temple_id, name, description, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, st.ID, st.TempleID, st.Name, st.Description, st.CreatedAt)
	return mapError(err)
}

func (r *templeRepository) ListServiceTypes(ctx context.Context, templeID string) ([]domain.ServiceType, error) {
	query := `SELECT id, temple_id, name, description, created_at FROM service_types WHERE temple_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, templeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []domain.ServiceType{}
	for rows.Next() {
		var st domain.ServiceType
		if err := rows.Scan(&st.ID, &st.TempleID, &st.Name, &st.Description, &st.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, st)
	}
	return types, rows.Err()
}

func (r *templeRepository) DeleteServiceType(ctx context.Context, templeID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM service_types WHERE temple_id = $1 AND id = $2`, templeID, id)
	if err != nil {
		return mapError(err)
	}
	return affected(res, "service type %s not found", id)
}
