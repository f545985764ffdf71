package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mmdr-storefront/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// fail maps service errors onto the JSON envelope. notFound is the message for ErrNotFound.
func fail(c *gin.Context, logger *zap.Logger, err error, notFound string) {
	var (
		verr     *domain.ValidationError
		stockErr *domain.StockError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, envelope{Message: "Error de validación", Errors: verr.Fields})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, envelope{Message: stockErr.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, envelope{Message: invalidMessage(err)})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, envelope{Message: notFound})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, envelope{Message: "El número de orden ya existe"})
	default:
		_ = c.Error(err)
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, envelope{Message: "Error interno del servidor"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, envelope{Message: msg})
}

func invalidMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, domain.ErrInvalidInput.Error()+": "); i >= 0 {
		return msg[i+len(domain.ErrInvalidInput.Error())+2:]
	}
	return msg
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func queryBool(c *gin.Context, key string) *bool {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	b := v == "true"
	return &b
}

// queryTime accepts RFC 3339 timestamps or bare dates (midnight UTC).
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, domain.Invalid("fecha inválida en %s: %s", key, v)
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
