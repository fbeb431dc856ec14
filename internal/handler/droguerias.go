package handler

import (
	"net/http"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/service"

	"github.com/gin-gonic/gin"
)

type DrogueriasHandler struct{ svc service.DrogueriaService }

func NewDrogueriasHandler(svc service.DrogueriaService) *DrogueriasHandler {
	return &DrogueriasHandler{svc: svc}
}

func (h *DrogueriasHandler) Crear(c *gin.Context) {
	var req dto.CrearDrogueriaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *DrogueriasHandler) Listar(c *gin.Context) {
	var filter dto.DrogueriaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DrogueriasHandler) Obtener(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DrogueriasHandler) Mias(c *gin.Context) {
	resp, err := h.svc.Mias(c.Request.Context(), actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DrogueriasHandler) Actualizar(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req dto.ActualizarDrogueriaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), actorFromContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DrogueriasHandler) Desactivar(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.svc.Desactivar(c.Request.Context(), actorFromContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetActiva fija la droguería sobre la que opera un admin.
func (h *DrogueriasHandler) SetActiva(c *gin.Context) {
	var req dto.SetActivaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, ok := parseUUID(c, req.DrogueriaID)
	if !ok {
		return
	}
	if err := h.svc.SetActiva(c.Request.Context(), actorFromContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DrogueriasHandler) GetActiva(c *gin.Context) {
	resp, err := h.svc.GetActiva(c.Request.Context(), actorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
