package catalog

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Products is the catalog store contract.
type Products interface {
	repository.Repository[*Product]

	// Search returns a filtered page plus the unpaginated total.
	Search(ctx context.Context, params ListParams) ([]*Product, int, error)

	// Categories returns the distinct non-empty category names.
	Categories(ctx context.Context) ([]string, error)

	// DeleteByID soft-deletes a product.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type products struct {
	repository.Repository[*Product]
	db *bun.DB
}

var _ Products = (*products)(nil)

// NewProductsRepository builds the bun-backed catalog store.
func NewProductsRepository(db *bun.DB) Products {
	repo := repository.NewRepository[*Product](db, repository.ModelHandlers[*Product]{
		NewRecord: func() *Product { return &Product{} },
		GetID: func(p *Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Product, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &products{
		Repository: repo,
		db:         db,
	}
}

func (r *products) Search(ctx context.Context, params ListParams) ([]*Product, int, error) {
	var records []*Product

	q := r.db.NewSelect().Model(&records)

	if params.Query != "" {
		needle := "%" + strings.ToLower(params.Query) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("LOWER(?TableAlias.title) LIKE ?", needle).
				WhereOr("LOWER(?TableAlias.description) LIKE ?", needle).
				WhereOr("LOWER(?TableAlias.category) LIKE ?", needle)
		})
	}

	if params.Category != "" {
		q = q.Where("?TableAlias.category = ?", params.Category)
	}

	if params.MinPrice != nil {
		q = q.Where("?TableAlias.price >= ?", *params.MinPrice)
	}
	if params.MaxPrice != nil {
		q = q.Where("?TableAlias.price <= ?", *params.MaxPrice)
	}

	for _, sort := range params.Sort {
		direction := "ASC"
		if sort.Desc {
			direction = "DESC"
		}
		q = q.OrderExpr("?TableAlias."+sort.Column+" "+direction)
	}

	total, err := q.
		Limit(params.Limit).
		Offset(params.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *products) Categories(ctx context.Context) ([]string, error) {
	var categories []string

	err := r.db.NewSelect().
		Model((*Product)(nil)).
		ColumnExpr("DISTINCT ?TableAlias.category").
		Where("?TableAlias.category IS NOT NULL").
		Where("?TableAlias.category != ''").
		OrderExpr("category ASC").
		Scan(ctx, &categories)
	if err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *products) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Product)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound()
	}
	return nil
}

// Update targets the record by primary key.
func (r *products) Update(ctx context.Context, record *Product, criteria ...repository.UpdateCriteria) (*Product, error) {
	if record != nil && len(criteria) == 0 {
		criteria = append(criteria, repository.UpdateByID(record.ID.String()))
	}
	return r.Repository.Update(ctx, record, criteria...)
}

// Create fills the id before insert when the caller did not.
func (r *products) Create(ctx context.Context, record *Product, criteria ...repository.InsertCriteria) (*Product, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.Create(ctx, record, criteria...)
}
