package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const precioCacheTTL = 4 * time.Hour

type MedicamentosHandler struct {
	svc service.MedicamentoService
	rdb *redis.Client
}

func NewMedicamentosHandler(svc service.MedicamentoService, rdb *redis.Client) *MedicamentosHandler {
	return &MedicamentosHandler{svc: svc, rdb: rdb}
}

func (h *MedicamentosHandler) Crear(c *gin.Context) {
	var req dto.CrearMedicamentoRequest
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

func (h *MedicamentosHandler) Listar(c *gin.Context) {
	var filter dto.MedicamentoFilter
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

func (h *MedicamentosHandler) Obtener(c *gin.Context) {
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

func (h *MedicamentosHandler) Actualizar(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req dto.ActualizarMedicamentoRequest
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

func (h *MedicamentosHandler) Desactivar(c *gin.Context) {
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

// ConsultarPrecio godoc
// @Summary Consulta publica de precio por codigo de barras (sin autenticacion)
// @Tags precio
// @Produce json
// @Param drogueria path string true "ID de la drogueria"
// @Param codigo path string true "Codigo de barras"
// @Success 200 {object} dto.ConsultaPrecioResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/public/droguerias/{drogueria}/precio/{codigo} [get]
func (h *MedicamentosHandler) ConsultarPrecio(c *gin.Context) {
	drogueriaID, err := uuid.Parse(c.Param("drogueria"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de droguería inválido"))
		return
	}
	codigo := c.Param("codigo")
	ctx := c.Request.Context()
	cacheKey := "precio:" + drogueriaID.String() + ":" + codigo

	// 1. Intento de cache en Redis
	if cached, cacheErr := h.rdb.Get(ctx, cacheKey).Bytes(); cacheErr == nil {
		var resp dto.ConsultaPrecioResponse
		if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	// 2. Cache miss, consulta a la base
	resp, err := h.svc.ConsultarPrecio(ctx, drogueriaID, codigo)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. Poblar la cache, best effort
	if b, jsonErr := json.Marshal(resp); jsonErr == nil {
		_ = h.rdb.Set(context.Background(), cacheKey, b, precioCacheTTL).Err()
	}

	c.JSON(http.StatusOK, resp)
}

// ── Categorías ────────────────────────────────────────────────────────────────

func (h *MedicamentosHandler) CrearCategoria(c *gin.Context) {
	var req dto.CrearCategoriaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearCategoria(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *MedicamentosHandler) ListarCategorias(c *gin.Context) {
	resp, err := h.svc.ListarCategorias(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
