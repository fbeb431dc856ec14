package handler

import (
	"net/http"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/service"

	"github.com/gin-gonic/gin"
)

type FacturacionHandler struct{ svc service.FacturaService }

func NewFacturacionHandler(svc service.FacturaService) *FacturacionHandler {
	return &FacturacionHandler{svc: svc}
}

// RegistrarManual godoc
// @Summary Registra una venta de mostrador sin pedido previo
// @Tags facturacion
// @Accept json
// @Produce json
// @Param request body dto.CrearFacturaRequest true "Factura"
// @Success 201 {object} dto.FacturaResponse
// @Router /v1/facturas [post]
func (h *FacturacionHandler) RegistrarManual(c *gin.Context) {
	var req dto.CrearFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarManual(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *FacturacionHandler) Listar(c *gin.Context) {
	var filter dto.FacturaFilter
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

func (h *FacturacionHandler) Obtener(c *gin.Context) {
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

// DescargarPDF sirve el PDF de la factura; 409 si aun no fue generado.
func (h *FacturacionHandler) DescargarPDF(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	path, err := h.svc.ObtenerPDFPath(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}

func (h *FacturacionHandler) EnviarPorEmail(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req dto.EnviarFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.EnviarPorEmail(c.Request.Context(), actorFromContext(c), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"mensaje": "Envío de factura encolado"})
}
