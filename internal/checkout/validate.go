package checkout

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"mmdr-storefront/internal/domain"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)
	zipRe   = regexp.MustCompile(`^\d{4,8}$`)
)

// ShippingInfo is the first checkout form. Field names follow the form inputs.
type ShippingInfo struct {
	FirstName     string               `json:"firstName"`
	LastName      string               `json:"lastName"`
	Email         string               `json:"email"`
	Phone         string               `json:"phone"`
	Street        string               `json:"street"`
	City          string               `json:"city"`
	Province      string               `json:"state"`
	PostalCode    string               `json:"zipCode"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
}

// Validate checks every field and returns a *domain.ValidationError keyed by form field.
func (s ShippingInfo) Validate() error {
	verr := domain.NewValidationError()
	if tooShort(s.FirstName, 2) {
		verr.Add("firstName", "Debe tener al menos 2 caracteres")
	}
	if tooShort(s.LastName, 2) {
		verr.Add("lastName", "Debe tener al menos 2 caracteres")
	}
	if !emailRe.MatchString(strings.TrimSpace(s.Email)) {
		verr.Add("email", "Email inválido")
	}
	phone := strings.TrimSpace(s.Phone)
	if !phoneRe.MatchString(phone) || len(phone) < 8 {
		verr.Add("phone", "Teléfono inválido")
	}
	if tooShort(s.Street, 5) {
		verr.Add("street", "Dirección muy corta")
	}
	if tooShort(s.City, 2) {
		verr.Add("city", "Ciudad inválida")
	}
	if strings.TrimSpace(s.Province) == "" {
		verr.Add("state", "Selecciona una provincia")
	}
	if !zipRe.MatchString(strings.TrimSpace(s.PostalCode)) {
		verr.Add("zipCode", "Código postal inválido")
	}
	switch {
	case s.PaymentMethod == "":
		verr.Add("paymentMethod", "Selecciona un método de pago")
	case !s.PaymentMethod.Valid():
		verr.Add("paymentMethod", "Método de pago inválido")
	}
	return verr.Err()
}

// Customer converts the form into the sale's customer block.
func (s ShippingInfo) Customer() domain.Customer {
	return domain.Customer{
		Name:  strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName)),
		Email: strings.ToLower(strings.TrimSpace(s.Email)),
		Phone: strings.TrimSpace(s.Phone),
		Address: domain.Address{
			Street:     strings.TrimSpace(s.Street),
			City:       strings.TrimSpace(s.City),
			Province:   strings.TrimSpace(s.Province),
			PostalCode: strings.TrimSpace(s.PostalCode),
		},
	}
}

// tooShort reports whether the trimmed value is shorter than n characters.
func tooShort(v string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(v)) < n
}
