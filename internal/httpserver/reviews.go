package httpserver

import (
	"net/http"

	reviewsvc "mmdr-storefront/internal/service/review"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type reviewHandler struct {
	svc    ReviewService
	logger *zap.Logger
}

type moderateRequest struct {
	IsApproved *bool `json:"isApproved"`
}

func (h *reviewHandler) list(c *gin.Context) {
	listing, err := h.svc.List(c.Request.Context(), c.Param("productId"))
	if err != nil {
		fail(c, h.logger, err, productNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    listing.Reviews,
		"stats":   listing.Stats,
	})
}

func (h *reviewHandler) create(c *gin.Context) {
	var in reviewsvc.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Nombre y calificación son requeridos")
		return
	}
	r, err := h.svc.Create(c.Request.Context(), c.Param("productId"), in)
	if err != nil {
		fail(c, h.logger, err, productNotFound)
		return
	}
	respond(c, http.StatusCreated, "Reseña publicada correctamente", r)
}

func (h *reviewHandler) update(c *gin.Context) {
	var in reviewsvc.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Cuerpo de la solicitud inválido")
		return
	}
	r, err := h.svc.Update(c.Request.Context(), c.Param("reviewId"), in)
	if err != nil {
		fail(c, h.logger, err, "Reseña no encontrada")
		return
	}
	respond(c, http.StatusOK, "Reseña actualizada", r)
}

func (h *reviewHandler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("reviewId")); err != nil {
		fail(c, h.logger, err, "Reseña no encontrada")
		return
	}
	respond(c, http.StatusOK, "Reseña eliminada", nil)
}

// moderate approves unless the body says isApproved=false.
func (h *reviewHandler) moderate(c *gin.Context) {
	var req moderateRequest
	_ = c.ShouldBindJSON(&req)
	approved := req.IsApproved == nil || *req.IsApproved
	r, err := h.svc.Moderate(c.Request.Context(), c.Param("reviewId"), approved)
	if err != nil {
		fail(c, h.logger, err, "Reseña no encontrada")
		return
	}
	respond(c, http.StatusOK, "Reseña moderada", r)
}
