package httpserver

import (
	"net/http"

	productrepo "mmdr-storefront/internal/repository/product"
	productsvc "mmdr-storefront/internal/service/product"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const productNotFound = "Producto no encontrado"

type productHandler struct {
	svc    ProductService
	logger *zap.Logger
}

type productPagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

func (h *productHandler) list(c *gin.Context) {
	f := productrepo.ListFilter{
		Category:  c.Query("category"),
		Search:    c.Query("search"),
		IsActive:  queryBool(c, "isActive"),
		Featured:  queryBool(c, "featured"),
		SortBy:    c.DefaultQuery("sortBy", "createdAt"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 10),
	}.Normalize()

	items, total, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		fail(c, h.logger, err, productNotFound)
		return
	}
	pages := totalPages(total, f.Limit)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"pagination": productPagination{
			CurrentPage:  f.Page,
			TotalPages:   pages,
			TotalItems:   total,
			ItemsPerPage: f.Limit,
			HasNextPage:  f.Page < pages,
			HasPrevPage:  f.Page > 1,
		},
	})
}

func (h *productHandler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err, productNotFound)
		return
	}
	respond(c, http.StatusOK, "", p)
}

func (h *productHandler) create(c *gin.Context) {
	var in productsvc.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Cuerpo de la solicitud inválido")
		return
	}
	p, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, h.logger, err, productNotFound)
		return
	}
	respond(c, http.StatusCreated, "Producto creado exitosamente", p)
}

func (h *productHandler) update(c *gin.Context) {
	var in productsvc.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Cuerpo de la solicitud inválido")
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, h.logger, err, productNotFound)
		return
	}
	respond(c, http.StatusOK, "Producto actualizado exitosamente", p)
}

func (h *productHandler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, h.logger, err, productNotFound)
		return
	}
	respond(c, http.StatusOK, "Producto eliminado exitosamente", nil)
}

func (h *productHandler) stats(c *gin.Context) {
	s, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err, productNotFound)
		return
	}
	respond(c, http.StatusOK, "", s)
}
