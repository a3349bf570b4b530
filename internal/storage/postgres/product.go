package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmart/storefront/internal/domain/cart"
	"github.com/freshmart/storefront/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const (
	listProductsSQL = `SELECT id, name, price, category FROM products ORDER BY id`

	getProductSQL = `SELECT id, name, price, category FROM products WHERE id = $1`
)

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return out, nil
}

// GetByID returns a single product. Returns product.ErrNotFound when no
// matching row exists.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, getProductSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, product.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var (
		p   product.Product
		cat string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &cat); err != nil {
		return product.Product{}, err
	}
	p.Category = cart.ParseCategory(cat)
	return p, nil
}
