package service

import (
	"context"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"
	"farmanet/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventarioService interface {
	// ObtenerAlertas recalcula las alertas de stock y vencimiento sobre el
	// estado actual del inventario. Nunca se cachean ni persisten.
	ObtenerAlertas(ctx context.Context, actor Actor) (*dto.AlertasResponse, error)
	ListarMovimientos(ctx context.Context, actor Actor, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error)
	AjustarStock(ctx context.Context, actor Actor, req dto.AjusteStockRequest) error
}

type inventarioService struct {
	medRepo  repository.MedicamentoRepository
	movRepo  repository.MovimientoRepository
	drogRepo repository.DrogueriaRepository
	// ventana en dias para la alerta de proximo vencimiento
	vencimientoDias int
}

func NewInventarioService(
	medRepo repository.MedicamentoRepository,
	movRepo repository.MovimientoRepository,
	drogRepo repository.DrogueriaRepository,
	vencimientoDias int,
) InventarioService {
	if vencimientoDias <= 0 {
		vencimientoDias = 7
	}
	return &inventarioService{
		medRepo:         medRepo,
		movRepo:         movRepo,
		drogRepo:        drogRepo,
		vencimientoDias: vencimientoDias,
	}
}

// ── Alertas ───────────────────────────────────────────────────────────────────

func (s *inventarioService) ObtenerAlertas(ctx context.Context, actor Actor) (*dto.AlertasResponse, error) {
	scope, err := s.alcance(ctx, actor)
	if err != nil {
		return nil, err
	}

	ahora := time.Now()
	hoy := time.Date(ahora.Year(), ahora.Month(), ahora.Day(), 0, 0, 0, 0, ahora.Location())
	hasta := hoy.AddDate(0, 0, s.vencimientoDias)

	stockBajo, err := s.medRepo.ListStockBajo(ctx, scope)
	if err != nil {
		return nil, err
	}
	porVencer, err := s.medRepo.ListPorVencer(ctx, scope, hoy, hasta)
	if err != nil {
		return nil, err
	}
	vencidos, err := s.medRepo.CountVencidos(ctx, scope, hoy)
	if err != nil {
		return nil, err
	}

	resp := &dto.AlertasResponse{
		StockBajo:          make([]dto.AlertaMedicamento, 0, len(stockBajo)),
		ProximoVencimiento: make([]dto.AlertaMedicamento, 0, len(porVencer)),
		VencidosCount:      vencidos,
		GeneradoEn:         ahora.UTC().Format(time.RFC3339),
	}
	for i := range stockBajo {
		resp.StockBajo = append(resp.StockBajo, alertaFromMedicamento(&stockBajo[i]))
	}
	for i := range porVencer {
		resp.ProximoVencimiento = append(resp.ProximoVencimiento, alertaFromMedicamento(&porVencer[i]))
	}
	return resp, nil
}

// alcance resuelve las sucursales visibles para el actor. Un slice vacio
// significa sin restriccion (admin y empleados ven todo el inventario).
func (s *inventarioService) alcance(ctx context.Context, actor Actor) ([]uuid.UUID, error) {
	if actor.Rol == model.RolCliente {
		return nil, apierror.Permission("el inventario es una operación interna")
	}
	if actor.EsAdmin() {
		return nil, nil
	}
	droguerias, err := s.drogRepo.ListByPropietario(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(droguerias) == 0 {
		// Empleado sin sucursales propias: ve todo, igual que en mostrador.
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(droguerias))
	for _, d := range droguerias {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func alertaFromMedicamento(m *model.Medicamento) dto.AlertaMedicamento {
	a := dto.AlertaMedicamento{
		ID:          m.ID.String(),
		Nombre:      m.Nombre,
		StockActual: m.StockActual,
		StockMinimo: m.StockMinimo,
	}
	if m.Drogueria != nil {
		a.Drogueria = m.Drogueria.Nombre
	}
	if m.FechaVencimiento != nil {
		fv := m.FechaVencimiento.Format("2006-01-02")
		a.FechaVencimiento = &fv
	}
	return a
}

// ── Movimientos ───────────────────────────────────────────────────────────────

func (s *inventarioService) ListarMovimientos(ctx context.Context, actor Actor, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error) {
	if actor.Rol == model.RolCliente {
		return nil, apierror.Permission("el inventario es una operación interna")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	movimientos, total, err := s.movRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovimientoResponse, 0, len(movimientos))
	for _, m := range movimientos {
		item := dto.MovimientoResponse{
			ID:            m.ID.String(),
			MedicamentoID: m.MedicamentoID.String(),
			Cantidad:      m.Cantidad,
			StockAnterior: m.StockAnterior,
			StockNuevo:    m.StockNuevo,
			Motivo:        m.Motivo,
			CreatedAt:     m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.ReferenciaID != nil {
			ref := m.ReferenciaID.String()
			item.ReferenciaID = &ref
		}
		items = append(items, item)
	}
	return &dto.MovimientoListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── AjustarStock ──────────────────────────────────────────────────────────────
// Correccion manual de inventario (recuento fisico, rotura, merma). El delta
// negativo pasa por la misma guardia condicional que las ventas.

func (s *inventarioService) AjustarStock(ctx context.Context, actor Actor, req dto.AjusteStockRequest) error {
	if !actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return apierror.Permission("solo el personal puede ajustar stock")
	}
	if req.Cantidad == 0 {
		return apierror.Validation("la cantidad del ajuste no puede ser cero")
	}
	mid, err := uuid.Parse(req.MedicamentoID)
	if err != nil {
		return apierror.Validation("medicamento_id inválido")
	}

	return runTx(ctx, s.medRepo.DB(), func(tx *gorm.DB) error {
		before, err := s.medRepo.FindByIDTx(tx, mid)
		if err != nil {
			return apierror.NotFound("medicamento %s no encontrado", req.MedicamentoID)
		}
		if req.Cantidad > 0 {
			if err := s.medRepo.ReponerStockTx(tx, mid, req.Cantidad); err != nil {
				return err
			}
		} else {
			if err := s.medRepo.DescontarStockTx(tx, mid, -req.Cantidad); err != nil {
				return err
			}
		}
		return s.movRepo.CreateTx(tx, &model.MovimientoInventario{
			MedicamentoID: mid,
			Cantidad:      req.Cantidad,
			StockAnterior: before.StockActual,
			StockNuevo:    before.StockActual + req.Cantidad,
			Motivo:        model.MovAjusteManual,
		})
	})
}
