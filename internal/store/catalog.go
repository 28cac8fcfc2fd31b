package store

import (
	"context"

	"github.com/google/uuid"

	"agendahof/internal/model"
)

// CatalogRepository covers the small lookup tables: patients and
// procedures.
type CatalogRepository struct {
	pool *Pool
}

func NewCatalogRepository(pool *Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreatePatient(ctx context.Context, p *model.Patient) (uuid.UUID, error) {
	var idText string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patients (name, phone, cpf)
		VALUES ($1, $2, $3)
		RETURNING id::text
	`, p.Name, p.Phone, p.CPF).Scan(&idText)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(idText)
}

func (r *CatalogRepository) GetPatient(ctx context.Context, id uuid.UUID) (model.Patient, error) {
	var p model.Patient
	var idText string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, COALESCE(phone, ''), COALESCE(cpf, ''), created_at
		FROM patients
		WHERE id = $1
	`, id.String()).Scan(&idText, &p.Name, &p.Phone, &p.CPF, &p.CreatedAt)
	if err != nil {
		return model.Patient{}, err
	}
	p.ID, err = uuid.Parse(idText)
	return p, err
}

func (r *CatalogRepository) ListPatients(ctx context.Context) ([]model.Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, COALESCE(phone, ''), COALESCE(cpf, ''), created_at
		FROM patients
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var p model.Patient
		var idText string
		if err := rows.Scan(&idText, &p.Name, &p.Phone, &p.CPF, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.ID, err = uuid.Parse(idText); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return patients, nil
}

func (r *CatalogRepository) CreateProcedure(ctx context.Context, p *model.Procedure) (uuid.UUID, error) {
	var idText string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO procedures (name, price_cents, duration_minutes)
		VALUES ($1, $2, $3)
		RETURNING id::text
	`, p.Name, p.PriceCents, p.DurationMinutes).Scan(&idText)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(idText)
}

func (r *CatalogRepository) ListProcedures(ctx context.Context) ([]model.Procedure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, price_cents, duration_minutes, created_at
		FROM procedures
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var procs []model.Procedure
	for rows.Next() {
		var p model.Procedure
		var idText string
		if err := rows.Scan(&idText, &p.Name, &p.PriceCents, &p.DurationMinutes, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.ID, err = uuid.Parse(idText); err != nil {
			return nil, err
		}
		procs = append(procs, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return procs, nil
}
