package httpserver

import (
	"net/http"
	"time"

	"mmdr-storefront/internal/domain"
	salerepo "mmdr-storefront/internal/repository/sale"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const saleNotFound = "Venta no encontrada"

type saleHandler struct {
	svc    SaleService
	logger *zap.Logger
	now    func() time.Time
}

type salePagination struct {
	Page  int `json:"pagina"`
	Limit int `json:"limite"`
	Total int `json:"total"`
	Pages int `json:"paginas"`
}

type statusRequest struct {
	Status domain.SaleStatus `json:"estado"`
	Notes  string            `json:"notas"`
}

func (h *saleHandler) create(c *gin.Context) {
	var in domain.Sale
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Faltan datos requeridos para crear la venta")
		return
	}
	if in.Device == nil {
		if ua := c.Request.UserAgent(); ua != "" {
			in.Device = &domain.Device{UserAgent: ua}
		}
	}
	sale, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return
	}
	respond(c, http.StatusCreated, "Venta creada exitosamente", sale)
}

func (h *saleHandler) rangeFromQuery(c *gin.Context) (salerepo.Range, bool) {
	from, err := queryTime(c, "fechaInicio")
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return salerepo.Range{}, false
	}
	to, err := queryTime(c, "fechaFin")
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return salerepo.Range{}, false
	}
	return salerepo.Range{From: from, To: to}, true
}

func (h *saleHandler) list(c *gin.Context) {
	rg, ok := h.rangeFromQuery(c)
	if !ok {
		return
	}
	f := salerepo.ListFilter{
		Range:     rg,
		Status:    domain.SaleStatus(c.Query("estado")),
		SortBy:    c.DefaultQuery("ordenarPor", "fechaCreacion"),
		SortOrder: c.DefaultQuery("orden", "desc"),
		Page:      queryInt(c, "pagina", 1),
		Limit:     queryInt(c, "limite", 10),
	}
	items, total, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"paginacion": salePagination{Page: f.Page, Limit: f.Limit, Total: total, Pages: totalPages(total, f.Limit)},
	})
}

func (h *saleHandler) get(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return
	}
	respond(c, http.StatusOK, "", s)
}

func (h *saleHandler) getByOrderNumber(c *gin.Context) {
	s, err := h.svc.GetByOrderNumber(c.Request.Context(), c.Param("numeroOrden"))
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return
	}
	respond(c, http.StatusOK, "", s)
}

func (h *saleHandler) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		badRequest(c, "El estado es requerido")
		return
	}
	s, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Notes)
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return
	}
	respond(c, http.StatusOK, "Estado de venta actualizado", s)
}

func (h *saleHandler) stats(c *gin.Context) {
	rg, ok := h.rangeFromQuery(c)
	if !ok {
		return
	}
	report, err := h.svc.Stats(c.Request.Context(), rg)
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return
	}
	respond(c, http.StatusOK, "", report)
}

func (h *saleHandler) topProducts(c *gin.Context) {
	rg, ok := h.rangeFromQuery(c)
	if !ok {
		return
	}
	items, err := h.svc.TopProducts(c.Request.Context(), queryInt(c, "limite", 10), rg)
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return
	}
	respond(c, http.StatusOK, "", items)
}

func (h *saleHandler) byPeriod(c *gin.Context) {
	rg, ok := h.rangeFromQuery(c)
	if !ok {
		return
	}
	if rg.From == nil || rg.To == nil {
		badRequest(c, "fechaInicio y fechaFin son requeridos")
		return
	}
	g := domain.ParseGranularity(c.DefaultQuery("agrupacion", string(domain.GranularityDay)))
	items, err := h.svc.ByPeriod(c.Request.Context(), *rg.From, *rg.To, g)
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return
	}
	respond(c, http.StatusOK, "", items)
}

func (h *saleHandler) dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context(), h.now())
	if err != nil {
		fail(c, h.logger, err, saleNotFound)
		return
	}
	respond(c, http.StatusOK, "", d)
}
