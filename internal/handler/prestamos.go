package handler

import (
	"net/http"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/service"

	"github.com/gin-gonic/gin"
)

type PrestamosHandler struct{ svc service.PrestamoService }

func NewPrestamosHandler(svc service.PrestamoService) *PrestamosHandler {
	return &PrestamosHandler{svc: svc}
}

// Solicitar godoc
// @Summary Solicita un prestamo de stock entre droguerias
// @Tags prestamos
// @Accept json
// @Produce json
// @Param request body dto.SolicitarPrestamoRequest true "Prestamo"
// @Success 201 {object} dto.PrestamoResponse
// @Failure 409 {object} apierror.APIError "Stock insuficiente en origen"
// @Router /v1/prestamos [post]
func (h *PrestamosHandler) Solicitar(c *gin.Context) {
	var req dto.SolicitarPrestamoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Solicitar(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PrestamosHandler) Aceptar(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req dto.ResolverPrestamoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Aceptar(c.Request.Context(), actorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PrestamosHandler) Rechazar(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req dto.ResolverPrestamoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Rechazar(c.Request.Context(), actorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PrestamosHandler) Obtener(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PrestamosHandler) Listar(c *gin.Context) {
	var filter dto.PrestamoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
