package sale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mmdr-storefront/internal/domain"
	"mmdr-storefront/internal/events"
	salerepo "mmdr-storefront/internal/repository/sale"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dashboardTopN = 5

// ProductStore is the catalog subset a sale needs.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) error
}

type Service struct {
	sales     salerepo.Repository
	products  ProductStore
	publisher events.Publisher
	logger    *zap.Logger
}

func New(sales salerepo.Repository, products ProductStore, publisher events.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sales: sales, products: products, publisher: publisher, logger: logger.Named("sale_service")}
}

// StatsReport is SaleStats plus the per-status and per-method breakdowns.
type StatsReport struct {
	domain.SaleStats
	ByStatus []domain.StatusCount `json:"ventasPorEstado"`
	ByMethod []domain.MethodCount `json:"ventasPorMetodoPago"`
}

// Create records an accepted sale. Every line is checked against current stock
// before anything is written; stock is then decremented one line at a time.
func (s *Service) Create(ctx context.Context, in domain.Sale) (*domain.Sale, error) {
	if err := validateSale(in); err != nil {
		return nil, err
	}

	for _, line := range in.Lines {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.Invalid("Producto con ID %s no encontrado", line.ProductID)
			}
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if p.Stock < line.Quantity {
			return nil, &domain.StockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: line.Quantity}
		}
	}

	in.Status = domain.SaleCompleted
	if in.Channel == "" {
		in.Channel = domain.ChannelWeb
	}
	if in.Payment.Status == "" {
		in.Payment.Status = domain.PaymentApproved
	}

	created, err := s.sales.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	for _, line := range created.Lines {
		if err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.logger.Error("stock decrement failed",
				zap.String("order", created.OrderNumber),
				zap.String("product", line.ProductID),
				zap.Int("qty", line.Quantity),
				zap.Error(err))
		}
	}

	if err := s.publisher.PublishSaleCreated(ctx, events.FromSale(*created)); err != nil {
		s.logger.Warn("sale event not published", zap.String("order", created.OrderNumber), zap.Error(err))
	}

	s.logger.Info("sale created", zap.String("order", created.OrderNumber), zap.Int64("total", created.Totals.Total))
	return created, nil
}

func validateSale(in domain.Sale) error {
	if strings.TrimSpace(in.OrderNumber) == "" || in.Customer.Name == "" || len(in.Lines) == 0 || in.Payment.Method == "" {
		return domain.Invalid("Faltan datos requeridos para crear la venta")
	}
	if in.Customer.Email == "" {
		return domain.Invalid("El email del cliente es requerido")
	}
	if !in.Payment.Method.Valid() {
		return domain.Invalid("Método de pago no válido: %s", in.Payment.Method)
	}
	if in.Channel != "" && !domain.ValidChannel(in.Channel) {
		return domain.Invalid("Canal no válido: %s", in.Channel)
	}

	var sum int64
	for _, l := range in.Lines {
		if l.ProductID == "" || l.Quantity < 1 || l.UnitPrice < 0 {
			return domain.Invalid("Línea de producto inválida")
		}
		if l.Subtotal != l.UnitPrice*int64(l.Quantity) {
			return domain.Invalid("Subtotal incorrecto para %s", l.Name)
		}
		sum += l.Subtotal
	}
	if in.Totals.Subtotal != sum {
		return domain.Invalid("El subtotal no coincide con los productos")
	}
	if in.Totals.Shipping < 0 || !in.Totals.Consistent() {
		return domain.Invalid("El total no coincide con subtotal más envío")
	}
	return nil
}

func (s *Service) List(ctx context.Context, f salerepo.ListFilter) ([]domain.Sale, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, domain.Invalid("Estado no válido: %s", f.Status)
	}
	return s.sales.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Sale, error) {
	return s.sales.GetByID(ctx, id)
}

func (s *Service) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Sale, error) {
	return s.sales.GetByOrderNumber(ctx, strings.TrimSpace(orderNumber))
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.SaleStatus, notes string) (*domain.Sale, error) {
	if status == "" {
		return nil, domain.Invalid("El estado es requerido")
	}
	if !status.Valid() {
		return nil, domain.Invalid("Estado no válido: %s", status)
	}
	return s.sales.UpdateStatus(ctx, id, status, strings.TrimSpace(notes))
}

func (s *Service) Stats(ctx context.Context, rg salerepo.Range) (*StatsReport, error) {
	stats, err := s.summary(ctx, rg)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.sales.CountByStatus(ctx, rg)
	if err != nil {
		return nil, err
	}
	byMethod, err := s.sales.CountByMethod(ctx, rg)
	if err != nil {
		return nil, err
	}
	return &StatsReport{SaleStats: stats, ByStatus: byStatus, ByMethod: byMethod}, nil
}

func (s *Service) summary(ctx context.Context, rg salerepo.Range) (domain.SaleStats, error) {
	stats, err := s.sales.Stats(ctx, rg)
	if err != nil {
		return domain.SaleStats{}, err
	}
	stats.Average = average(stats.Revenue, stats.Count)
	return *stats, nil
}

func (s *Service) TopProducts(ctx context.Context, limit int, rg salerepo.Range) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 10
	}
	return s.sales.TopProducts(ctx, limit, rg)
}

func (s *Service) ByPeriod(ctx context.Context, from, to time.Time, g domain.Granularity) ([]domain.PeriodBucket, error) {
	if from.IsZero() || to.IsZero() {
		return nil, domain.Invalid("fechaInicio y fechaFin son requeridos")
	}
	if to.Before(from) {
		return nil, domain.Invalid("fechaFin debe ser posterior a fechaInicio")
	}
	buckets, err := s.sales.ByPeriod(ctx, from, to, g)
	if err != nil {
		return nil, err
	}
	for i := range buckets {
		buckets[i].Average = average(buckets[i].Revenue, buckets[i].Count)
	}
	return buckets, nil
}

// Dashboard reports today, this week (from Sunday), this month and all time, relative to now.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (*domain.Dashboard, error) {
	y, m, d := now.Date()
	loc := now.Location()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)

	var (
		dash domain.Dashboard
		err  error
	)
	if dash.Day, err = s.summary(ctx, salerepo.Range{From: &dayStart}); err != nil {
		return nil, err
	}
	if dash.Week, err = s.summary(ctx, salerepo.Range{From: &weekStart}); err != nil {
		return nil, err
	}
	if dash.Month, err = s.summary(ctx, salerepo.Range{From: &monthStart}); err != nil {
		return nil, err
	}
	if dash.AllTime, err = s.summary(ctx, salerepo.Range{}); err != nil {
		return nil, err
	}
	if dash.TopProducts, err = s.sales.TopProducts(ctx, dashboardTopN, salerepo.Range{From: &monthStart}); err != nil {
		return nil, err
	}
	if dash.DailySales, err = s.ByPeriod(ctx, weekStart, now, domain.GranularityDay); err != nil {
		return nil, err
	}
	return &dash, nil
}

// average rounds half away from zero to whole pesos.
func average(total int64, count int) int64 {
	if count == 0 {
		return 0
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(count))).Round(0).IntPart()
}
