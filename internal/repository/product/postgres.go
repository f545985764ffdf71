package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mmdr-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

const productColumns = `id::text, name, description, price, original_price, category, stock, image, is_active,
rating, rating_count, discount, tags, featured, created_at, updated_at`

// sortColumns maps API sort keys to columns.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"price":     "price",
	"stock":     "stock",
	"rating":    "rating",
	"discount":  "discount",
}

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("product_repo")}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.Category, &p.Stock, &p.Image, &p.IsActive,
		&p.Rating, &p.RatingCount, &p.Discount, &p.Tags, &p.Featured, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

// whereClause builds the shared WHERE for List and its count query.
func whereClause(f ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if f.Featured != nil {
		args = append(args, *f.Featured)
		conds = append(conds, fmt.Sprintf("featured = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(f ListFilter) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id", col, dir)
}

// Normalize clamps paging values to what List will actually use.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	return f
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Product, int, error) {
	f = f.Normalize()
	where, args := whereClause(f)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		r.logger.Error("count failed", zap.Error(err))
		return nil, 0, err
	}

	q := "SELECT " + productColumns + " FROM products" + where + orderClause(f) +
		fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("list failed", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("list rows failed", zap.Error(err))
		return nil, 0, err
	}
	r.logger.Debug("list", zap.String("category", f.Category), zap.Int("count", len(result)), zap.Int("total", total))
	return result, total, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("get not found", zap.String("id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, description, price, original_price, category, stock, image, is_active, rating, rating_count, discount, tags, featured)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, '{}'::text[]), $13)
RETURNING ` + productColumns
	created, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.Name, p.Description, p.Price, p.OriginalPrice, p.Category, p.Stock, p.Image, p.IsActive,
		p.Rating, p.RatingCount, p.Discount, p.Tags, p.Featured,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("product %q: %w", p.Name, domain.ErrAlreadyExists)
		}
		r.logger.Error("create failed", zap.String("name", p.Name), zap.Error(err))
		return nil, err
	}
	r.logger.Info("created", zap.String("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if _, err := uuid.Parse(p.ID); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `
UPDATE products SET
    name = $2, description = $3, price = $4, original_price = $5, category = $6, stock = $7,
    image = $8, is_active = $9, discount = $10, tags = COALESCE($11, '{}'::text[]), featured = $12,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + productColumns
	updated, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Category, p.Stock,
		p.Image, p.IsActive, p.Discount, p.Tags, p.Featured,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("product %q: %w", p.Name, domain.ErrAlreadyExists)
		}
		r.logger.Error("update failed", zap.String("id", p.ID), zap.Error(err))
		return nil, err
	}
	r.logger.Info("updated", zap.String("id", updated.ID))
	return updated, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("delete failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("deleted", zap.String("id", id))
	return nil
}

// Upsert inserts or refreshes a product keyed by name. Rating fields are left alone on update.
func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, description, price, original_price, category, stock, image, is_active, discount, tags, featured)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, '{}'::text[]), $11)
ON CONFLICT (name) DO UPDATE SET
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    original_price = EXCLUDED.original_price,
    category = EXCLUDED.category,
    stock = EXCLUDED.stock,
    image = EXCLUDED.image,
    is_active = EXCLUDED.is_active,
    discount = EXCLUDED.discount,
    tags = EXCLUDED.tags,
    featured = EXCLUDED.featured,
    updated_at = NOW()
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.Name, p.Description, p.Price, p.OriginalPrice, p.Category, p.Stock, p.Image, p.IsActive,
		p.Discount, p.Tags, p.Featured,
	))
	if err != nil {
		r.logger.Error("upsert failed", zap.String("name", p.Name), zap.Error(err))
		return nil, err
	}
	r.logger.Info("upserted", zap.String("name", res.Name), zap.String("id", res.ID))
	return res, nil
}

// DecrementStock takes qty units from one product, failing when stock would go negative.
func (r *postgresRepo) DecrementStock(ctx context.Context, id string, qty int) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var name string
	var stock int
	err = tx.QueryRow(ctx, `SELECT name, stock FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&name, &stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if stock < qty {
		return &domain.StockError{ProductID: id, Name: name, Available: stock, Requested: qty}
	}
	if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1`, id, qty); err != nil {
		r.logger.Error("decrement failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Debug("stock decremented", zap.String("id", id), zap.Int("qty", qty), zap.Int("left", stock-qty))
	return nil
}

func (r *postgresRepo) UpdateRating(ctx context.Context, id string, avg float64, count int) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `UPDATE products SET rating = $2, rating_count = $3, updated_at = NOW() WHERE id = $1`, id, avg, count)
	if err != nil {
		r.logger.Error("rating update failed", zap.String("id", id), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Stats(ctx context.Context) (*domain.ProductStats, error) {
	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE is_active),
       COUNT(*) FILTER (WHERE NOT is_active),
       COUNT(*) FILTER (WHERE stock = 0)
FROM products`
	var s domain.ProductStats
	if err := r.pool.QueryRow(ctx, q).Scan(&s.Total, &s.Active, &s.Inactive, &s.OutOfStock); err != nil {
		r.logger.Error("stats failed", zap.Error(err))
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT category, COUNT(*) FROM products GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	s.ByCategory = []domain.CategoryCount{}
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		s.ByCategory = append(s.ByCategory, c)
	}
	return &s, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
