package repositories

import (
	"context"
	"fmt"

	"inventoryflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, limit, offset int) ([]*models.Product, error)
	// FindBelowThreshold returns products with stock < threshold that are not
	// already flagged out-of-stock.
	FindBelowThreshold(ctx context.Context, threshold int) ([]models.LowStockItem, error)
	MarkOutOfStock(ctx context.Context, id uuid.UUID) error
	// UpdateStock sets the stock level and flips the product back to available
	// once it reaches the threshold again.
	UpdateStock(ctx context.Context, id uuid.UUID, stock, threshold int) (*models.Product, error)
}

type productRepo struct {
	db Database
}

func NewProductRepo(db Database) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `p.id, p.name, p.description, p.stock, p.status, p.created_by, p.created_at, p.updated_at`

func scanProduct(row pgx.Row, product *models.Product, extra ...any) error {
	dest := []any{&product.ID, &product.Name, &product.Description, &product.Stock, &product.Status, &product.CreatedBy, &product.CreatedAt, &product.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product := &models.Product{}
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.id = $1
	`
	if err := scanProduct(r.db.QueryRow(ctx, query, id), product); err != nil {
		return nil, notFound(err)
	}
	return product, nil
}

func (r *productRepo) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		product := &models.Product{}
		if err := scanProduct(rows, product); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepo) FindBelowThreshold(ctx context.Context, threshold int) ([]models.LowStockItem, error) {
	query := `
		SELECT ` + productColumns + `, COALESCE(u.name, '')
		FROM products p
		LEFT JOIN users u ON u.id = p.created_by
		WHERE p.stock < $1 AND p.status <> $2
		ORDER BY p.stock ASC, p.name ASC
	`
	rows, err := r.db.Query(ctx, query, threshold, string(models.ProductStatusOutOfStock))
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock products: %w", err)
	}
	defer rows.Close()

	var items []models.LowStockItem
	for rows.Next() {
		var item models.LowStockItem
		if err := scanProduct(rows, &item.Product, &item.OwnerName); err != nil {
			return nil, fmt.Errorf("failed to scan low stock product: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read low stock products: %w", err)
	}
	return items, nil
}

func (r *productRepo) MarkOutOfStock(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE products
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, string(models.ProductStatusOutOfStock), id)
	if err != nil {
		return fmt.Errorf("failed to mark product %s out of stock: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) UpdateStock(ctx context.Context, id uuid.UUID, stock, threshold int) (*models.Product, error) {
	query := `
		UPDATE products p
		SET stock = $1,
			status = CASE WHEN $1 >= $2 THEN $3 ELSE p.status END,
			updated_at = NOW()
		WHERE p.id = $4
		RETURNING ` + productColumns + `
	`
	product := &models.Product{}
	row := r.db.QueryRow(ctx, query, stock, threshold, string(models.ProductStatusAvailable), id)
	if err := scanProduct(row, product); err != nil {
		return nil, notFound(err)
	}
	return product, nil
}
