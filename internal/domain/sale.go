package domain

import "time"

type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit-card"
	PaymentDebitCard      PaymentMethod = "debit-card"
	PaymentPrepaidCard    PaymentMethod = "prepaid-card"
	PaymentPayPal         PaymentMethod = "paypal"
	PaymentApplePay       PaymentMethod = "apple-pay"
	PaymentGooglePay      PaymentMethod = "google-pay"
	PaymentBankTransfer   PaymentMethod = "bank-transfer"
	PaymentBNPL           PaymentMethod = "bnpl"
	PaymentCashOnDelivery PaymentMethod = "cash-on-delivery"
)

var PaymentMethods = []PaymentMethod{
	PaymentCreditCard, PaymentDebitCard, PaymentPrepaidCard,
	PaymentPayPal, PaymentApplePay, PaymentGooglePay,
	PaymentBankTransfer, PaymentBNPL, PaymentCashOnDelivery,
}

func (m PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if v == m {
			return true
		}
	}
	return false
}

// IsCard reports whether the method goes through the card sub-form.
func (m PaymentMethod) IsCard() bool {
	return m == PaymentCreditCard || m == PaymentDebitCard || m == PaymentPrepaidCard
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pendiente"
	PaymentApproved  PaymentStatus = "aprobado"
	PaymentRejected  PaymentStatus = "rechazado"
	PaymentCancelled PaymentStatus = "cancelado"
)

type SaleStatus string

const (
	SalePending    SaleStatus = "pendiente"
	SaleProcessing SaleStatus = "procesando"
	SaleCompleted  SaleStatus = "completado"
	SaleCancelled  SaleStatus = "cancelado"
	SaleRefunded   SaleStatus = "reembolsado"
)

var SaleStatuses = []SaleStatus{SalePending, SaleProcessing, SaleCompleted, SaleCancelled, SaleRefunded}

func (s SaleStatus) Valid() bool {
	for _, v := range SaleStatuses {
		if v == s {
			return true
		}
	}
	return false
}

const (
	ChannelWeb    = "web"
	ChannelMobile = "mobile"
	ChannelAdmin  = "admin"
)

func ValidChannel(c string) bool {
	return c == ChannelWeb || c == ChannelMobile || c == ChannelAdmin
}

type Address struct {
	Street     string `json:"calle"`
	City       string `json:"ciudad"`
	Province   string `json:"provincia"`
	PostalCode string `json:"codigoPostal"`
}

type Customer struct {
	Name    string  `json:"nombre"`
	Email   string  `json:"email"`
	Phone   string  `json:"telefono"`
	Address Address `json:"direccion"`
}

type SaleLine struct {
	ProductID string `json:"id"`
	Name      string `json:"nombre"`
	UnitPrice int64  `json:"precio"`
	Quantity  int    `json:"cantidad"`
	Subtotal  int64  `json:"subtotal"`
}

type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"envio"`
	Total    int64 `json:"total"`
}

// Consistent reports whether Total equals Subtotal plus Shipping.
func (t Totals) Consistent() bool {
	return t.Total == t.Subtotal+t.Shipping
}

type Payment struct {
	Method    PaymentMethod `json:"metodo"`
	Status    PaymentStatus `json:"estado"`
	PaidAt    time.Time     `json:"fecha"`
	Reference string        `json:"referencia,omitempty"`
}

type Device struct {
	Type      string `json:"tipo,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Sale is an order accepted (or about to be submitted) by the sales service.
type Sale struct {
	ID          string     `json:"_id,omitempty"`
	OrderNumber string     `json:"numeroOrden"`
	Customer    Customer   `json:"cliente"`
	Lines       []SaleLine `json:"productos"`
	Totals      Totals     `json:"totales"`
	Payment     Payment    `json:"pago"`
	Status      SaleStatus `json:"estado"`
	Channel     string     `json:"canal,omitempty"`
	Device      *Device    `json:"dispositivo,omitempty"`
	Notes       string     `json:"notas,omitempty"`
	CreatedAt   time.Time  `json:"fechaCreacion"`
	UpdatedAt   time.Time  `json:"fechaActualizacion"`
}

// SaleStats mirrors the aggregate returned by the analytics endpoints.
type SaleStats struct {
	Count            int   `json:"totalVentas"`
	Revenue          int64 `json:"totalIngresos"`
	Average          int64 `json:"promedioVenta"`
	CompletedCount   int   `json:"ventasCompletadas"`
	CompletedRevenue int64 `json:"ingresosCompletados"`
}

type StatusCount struct {
	Status  SaleStatus `json:"_id"`
	Count   int        `json:"count"`
	Revenue int64      `json:"ingresos"`
}

type MethodCount struct {
	Method  PaymentMethod `json:"_id"`
	Count   int           `json:"count"`
	Revenue int64         `json:"ingresos"`
}

type TopProduct struct {
	ProductID string `json:"id"`
	Name      string `json:"nombre"`
	Units     int    `json:"cantidadVendida"`
	Revenue   int64  `json:"ingresosGenerados"`
	Orders    int    `json:"vecesVendido"`
}

type PeriodBucket struct {
	Period  string `json:"periodo"`
	Count   int    `json:"totalVentas"`
	Revenue int64  `json:"totalIngresos"`
	Average int64  `json:"promedioVenta"`
}

// Granularity selects the bucket width of a sales-by-period report.
type Granularity string

const (
	GranularityHour  Granularity = "hora"
	GranularityDay   Granularity = "dia"
	GranularityMonth Granularity = "mes"
	GranularityYear  Granularity = "año"
)

// ParseGranularity falls back to days for unknown values.
func ParseGranularity(s string) Granularity {
	switch g := Granularity(s); g {
	case GranularityHour, GranularityDay, GranularityMonth, GranularityYear:
		return g
	case "anio", "ano":
		return GranularityYear
	default:
		return GranularityDay
	}
}

// Dashboard groups the storefront's headline sales figures.
type Dashboard struct {
	Day         SaleStats      `json:"dia"`
	Week        SaleStats      `json:"semana"`
	Month       SaleStats      `json:"mes"`
	AllTime     SaleStats      `json:"totales"`
	TopProducts []TopProduct   `json:"productosMasVendidos"`
	DailySales  []PeriodBucket `json:"ventasPorDia"`
}
