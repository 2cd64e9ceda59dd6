package postgres

import (
	"context"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/repository"
)

type directoryRepository struct {
	db DBTX
}

func NewDirectoryRepository(db DBTX) repository.DirectoryRepository {
	return &directoryRepository{db: db}
}

func (r *directoryRepository) GetApartment(ctx context.Context, id int64) (*domain.Apartment, error) {
	var a domain.Apartment
	err := r.db.QueryRowContext(ctx, `SELECT id, scope_id, number, tower FROM apartments WHERE id = $1`, id).
		Scan(&a.ID, &a.ScopeID, &a.Number, &a.Tower)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *directoryRepository) ListApartmentsByNumber(ctx context.Context, scopeID int64, number string) ([]domain.Apartment, error) {
	query := `SELECT id, scope_id, number, tower FROM apartments
	          WHERE scope_id = $1 AND (number = $2 OR tower || number = $2)
	          ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, scopeID, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apartments []domain.Apartment
	for rows.Next() {
		var a domain.Apartment
		if err := rows.Scan(&a.ID, &a.ScopeID, &a.Number, &a.Tower); err != nil {
			return nil, err
		}
		apartments = append(apartments, a)
	}
	return apartments, rows.Err()
}

func (r *directoryRepository) FindActiveOwnerByDocument(ctx context.Context, scopeID int64, normalizedDocument string) (*domain.Resident, error) {
	query := `SELECT id, scope_id, apartment_id, name, document_number, resident_type, active
	          FROM residents
	          WHERE scope_id = $1
	            AND ltrim(regexp_replace(document_number, '\D', '', 'g'), '0') = $2
	            AND resident_type = 'owner' AND active
	          ORDER BY id LIMIT 1`
	var res domain.Resident
	err := r.db.QueryRowContext(ctx, query, scopeID, normalizedDocument).
		Scan(&res.ID, &res.ScopeID, &res.ApartmentID, &res.Name, &res.DocumentNumber, &res.Type, &res.Active)
	if err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}
