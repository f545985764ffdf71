package sale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mmdr-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const saleColumns = `id::text, order_number, customer_name, customer_email, customer_phone,
street, city, province, postal_code, subtotal, shipping, total,
payment_method, payment_status, paid_at, payment_reference,
status, channel, device_type, user_agent, notes, created_at, updated_at`

var sortColumns = map[string]string{
	"fechaCreacion":      "created_at",
	"fechaActualizacion": "updated_at",
	"numeroOrden":        "order_number",
	"total":              "total",
	"estado":             "status",
}

var periodFormats = map[domain.Granularity]string{
	domain.GranularityHour:  "YYYY-MM-DD HH24:00:00",
	domain.GranularityDay:   "YYYY-MM-DD",
	domain.GranularityMonth: "YYYY-MM",
	domain.GranularityYear:  "YYYY",
}

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("sale_repo")}
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var (
		s        domain.Sale
		devType  string
		agent    string
		method   string
		payState string
		status   string
	)
	err := row.Scan(&s.ID, &s.OrderNumber, &s.Customer.Name, &s.Customer.Email, &s.Customer.Phone,
		&s.Customer.Address.Street, &s.Customer.Address.City, &s.Customer.Address.Province, &s.Customer.Address.PostalCode,
		&s.Totals.Subtotal, &s.Totals.Shipping, &s.Totals.Total,
		&method, &payState, &s.Payment.PaidAt, &s.Payment.Reference,
		&status, &s.Channel, &devType, &agent, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Payment.Method = domain.PaymentMethod(method)
	s.Payment.Status = domain.PaymentStatus(payState)
	s.Status = domain.SaleStatus(status)
	if devType != "" || agent != "" {
		s.Device = &domain.Device{Type: devType, UserAgent: agent}
	}
	s.Lines = []domain.SaleLine{}
	return &s, nil
}

// Create stores the sale and its lines in one transaction.
func (r *postgresRepo) Create(ctx context.Context, s domain.Sale) (*domain.Sale, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var device domain.Device
	if s.Device != nil {
		device = *s.Device
	}
	if s.Channel == "" {
		s.Channel = domain.ChannelWeb
	}
	paidAt := s.Payment.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	const q = `
INSERT INTO sales (order_number, customer_name, customer_email, customer_phone, street, city, province, postal_code,
    subtotal, shipping, total, payment_method, payment_status, paid_at, payment_reference,
    status, channel, device_type, user_agent, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
RETURNING ` + saleColumns
	created, err := scanSale(tx.QueryRow(ctx, q,
		s.OrderNumber, s.Customer.Name, s.Customer.Email, s.Customer.Phone,
		s.Customer.Address.Street, s.Customer.Address.City, s.Customer.Address.Province, s.Customer.Address.PostalCode,
		s.Totals.Subtotal, s.Totals.Shipping, s.Totals.Total,
		string(s.Payment.Method), string(s.Payment.Status), paidAt, s.Payment.Reference,
		string(s.Status), s.Channel, device.Type, device.UserAgent, s.Notes,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("duplicate order number", zap.String("order", s.OrderNumber))
			return nil, fmt.Errorf("order %s: %w", s.OrderNumber, domain.ErrAlreadyExists)
		}
		r.logger.Error("create failed", zap.String("order", s.OrderNumber), zap.Error(err))
		return nil, err
	}

	for i, line := range s.Lines {
		if _, err := tx.Exec(ctx, `
INSERT INTO sale_lines (sale_id, position, product_id, name, unit_price, quantity, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, created.ID, i, line.ProductID, line.Name, line.UnitPrice, line.Quantity, line.Subtotal); err != nil {
			r.logger.Error("create line failed", zap.String("order", s.OrderNumber), zap.Int("position", i), zap.Error(err))
			return nil, err
		}
		created.Lines = append(created.Lines, line)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("created", zap.String("id", created.ID), zap.String("order", created.OrderNumber), zap.Int("lines", len(created.Lines)))
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.fetchOne(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = $1", id)
}

func (r *postgresRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Sale, error) {
	return r.fetchOne(ctx, "SELECT "+saleColumns+" FROM sales WHERE order_number = $1", orderNumber)
}

func (r *postgresRepo) fetchOne(ctx context.Context, q string, arg string) (*domain.Sale, error) {
	s, err := scanSale(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get failed", zap.String("key", arg), zap.Error(err))
		return nil, err
	}
	if err := r.attachLines(ctx, []*domain.Sale{s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepo) attachLines(ctx context.Context, sales []*domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sales))
	byID := make(map[string]*domain.Sale, len(sales))
	for _, s := range sales {
		ids = append(ids, s.ID)
		byID[s.ID] = s
	}
	rows, err := r.pool.Query(ctx, `
SELECT sale_id::text, product_id, name, unit_price, quantity, subtotal
FROM sale_lines
WHERE sale_id::text = ANY($1::text[])
ORDER BY sale_id, position
`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var saleID string
		var l domain.SaleLine
		if err := rows.Scan(&saleID, &l.ProductID, &l.Name, &l.UnitPrice, &l.Quantity, &l.Subtotal); err != nil {
			return err
		}
		if s, ok := byID[saleID]; ok {
			s.Lines = append(s.Lines, l)
		}
	}
	return rows.Err()
}

func rangeClause(rg Range, args []any) ([]string, []any) {
	var conds []string
	if rg.From != nil {
		args = append(args, *rg.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if rg.To != nil {
		args = append(args, *rg.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return conds, args
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Sale, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	conds, args := rangeClause(f.Range, nil)
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	w := where(conds)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sales"+w, args...).Scan(&total); err != nil {
		r.logger.Error("count failed", zap.Error(err))
		return nil, 0, err
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	q := fmt.Sprintf("SELECT %s FROM sales%s ORDER BY %s %s, id LIMIT %d OFFSET %d",
		saleColumns, w, col, dir, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("list failed", zap.Error(err))
		return nil, 0, err
	}
	var ptrs []*domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		ptrs = append(ptrs, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.attachLines(ctx, ptrs); err != nil {
		return nil, 0, err
	}

	result := make([]domain.Sale, 0, len(ptrs))
	for _, s := range ptrs {
		result = append(result, *s)
	}
	return result, total, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.SaleStatus, notes string) (*domain.Sale, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `
UPDATE sales
SET status = $2,
    notes = CASE WHEN $3 = '' THEN notes ELSE $3 END,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + saleColumns
	s, err := scanSale(r.pool.QueryRow(ctx, q, id, string(status), notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("update status failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if err := r.attachLines(ctx, []*domain.Sale{s}); err != nil {
		return nil, err
	}
	r.logger.Info("status updated", zap.String("id", id), zap.String("status", string(status)))
	return s, nil
}

// Stats leaves Average at zero; callers derive it from Revenue and Count.
func (r *postgresRepo) Stats(ctx context.Context, rg Range) (*domain.SaleStats, error) {
	conds, args := rangeClause(rg, nil)
	q := `
SELECT COUNT(*),
       COALESCE(SUM(total), 0)::bigint,
       COUNT(*) FILTER (WHERE status = 'completado'),
       COALESCE(SUM(total) FILTER (WHERE status = 'completado'), 0)::bigint
FROM sales` + where(conds)
	var s domain.SaleStats
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&s.Count, &s.Revenue, &s.CompletedCount, &s.CompletedRevenue); err != nil {
		r.logger.Error("stats failed", zap.Error(err))
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepo) CountByStatus(ctx context.Context, rg Range) ([]domain.StatusCount, error) {
	conds, args := rangeClause(rg, nil)
	rows, err := r.pool.Query(ctx, `
SELECT status, COUNT(*), COALESCE(SUM(total), 0)::bigint
FROM sales`+where(conds)+`
GROUP BY status
ORDER BY status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.StatusCount{}
	for rows.Next() {
		var c domain.StatusCount
		var status string
		if err := rows.Scan(&status, &c.Count, &c.Revenue); err != nil {
			return nil, err
		}
		c.Status = domain.SaleStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *postgresRepo) CountByMethod(ctx context.Context, rg Range) ([]domain.MethodCount, error) {
	conds, args := rangeClause(rg, nil)
	rows, err := r.pool.Query(ctx, `
SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)::bigint
FROM sales`+where(conds)+`
GROUP BY payment_method
ORDER BY payment_method`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.MethodCount{}
	for rows.Next() {
		var c domain.MethodCount
		var method string
		if err := rows.Scan(&method, &c.Count, &c.Revenue); err != nil {
			return nil, err
		}
		c.Method = domain.PaymentMethod(method)
		out = append(out, c)
	}
	return out, rows.Err()
}

// TopProducts ranks completed-sale lines by units sold.
func (r *postgresRepo) TopProducts(ctx context.Context, limit int, rg Range) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 10
	}
	conds, args := rangeClause(rg, nil)
	for i := range conds {
		conds[i] = "s." + conds[i]
	}
	conds = append(conds, "s.status = 'completado'")
	args = append(args, limit)
	q := `
SELECT l.product_id, l.name, SUM(l.quantity)::int, SUM(l.subtotal)::bigint, COUNT(*)::int
FROM sale_lines l
JOIN sales s ON s.id = l.sale_id` + where(conds) + fmt.Sprintf(`
GROUP BY l.product_id, l.name
ORDER BY 3 DESC, 4 DESC
LIMIT $%d`, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("top products failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()
	out := []domain.TopProduct{}
	for rows.Next() {
		var p domain.TopProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Units, &p.Revenue, &p.Orders); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ByPeriod buckets completed sales between from and to, in UTC.
func (r *postgresRepo) ByPeriod(ctx context.Context, from, to time.Time, g domain.Granularity) ([]domain.PeriodBucket, error) {
	format, ok := periodFormats[g]
	if !ok {
		format = periodFormats[domain.GranularityDay]
	}
	rows, err := r.pool.Query(ctx, `
SELECT to_char(created_at AT TIME ZONE 'UTC', $3) AS period, COUNT(*)::int, COALESCE(SUM(total), 0)::bigint
FROM sales
WHERE created_at >= $1 AND created_at <= $2 AND status = 'completado'
GROUP BY period
ORDER BY period`, from, to, format)
	if err != nil {
		r.logger.Error("by period failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()
	out := []domain.PeriodBucket{}
	for rows.Next() {
		var b domain.PeriodBucket
		if err := rows.Scan(&b.Period, &b.Count, &b.Revenue); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
