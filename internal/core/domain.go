package core

import (
	"context"
	"fmt"

	"github.com/ryabich/flarecloud/internal/model"
)

type DomainService struct {
	db DB
}

func NewDomainService(db DB) *DomainService {
	return &DomainService{db: db}
}

func (s *DomainService) Create(ctx context.Context, domain *model.Domain) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO domains (id, name, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		domain.ID, domain.Name, domain.Status, domain.CreatedAt, domain.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert domain: %w", err)
	}
	return nil
}

func (s *DomainService) GetByID(ctx context.Context, id string) (*model.Domain, error) {
	var d model.Domain
	err := s.db.QueryRow(ctx,
		`SELECT id, name, status, created_at, updated_at FROM domains WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get domain %s: %w", id, err)
	}
	return &d, nil
}

func (s *DomainService) List(ctx context.Context, limit int, cursor string) ([]model.Domain, bool, error) {
	query := `SELECT id, name, status, created_at, updated_at FROM domains`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var domains []model.Domain
	for rows.Next() {
		var d model.Domain
		if err := rows.Scan(&d.ID, &d.Name, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate domains: %w", err)
	}

	hasMore := len(domains) > limit
	if hasMore {
		domains = domains[:limit]
	}
	return domains, hasMore, nil
}

// SetStatus suspends or reactivates a domain. Suspension blocks new
// certificate orders but leaves existing certificates alone.
func (s *DomainService) SetStatus(ctx context.Context, id string, status model.DomainStatus) error {
	_, err := s.db.Exec(ctx,
		`UPDATE domains SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("set domain %s status: %w", id, err)
	}
	return nil
}

func (s *DomainService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM domains WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete domain %s: %w", id, err)
	}
	return nil
}
