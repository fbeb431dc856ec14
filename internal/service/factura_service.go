package service

import (
	"context"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"
	"farmanet/internal/repository"
	"farmanet/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FacturaService interface {
	// GenerarDesdePedido crea la factura de un pedido entregado. Idempotente:
	// si el pedido ya tiene factura devuelve la existente sin efectos.
	GenerarDesdePedido(ctx context.Context, pedido *model.Pedido, empleadoID *uuid.UUID) (*model.Factura, error)
	RegistrarManual(ctx context.Context, actor Actor, req dto.CrearFacturaRequest) (*dto.FacturaResponse, error)
	Obtener(ctx context.Context, actor Actor, facturaID uuid.UUID) (*dto.FacturaResponse, error)
	Listar(ctx context.Context, actor Actor, filter dto.FacturaFilter) (*dto.FacturaListResponse, error)
	// ObtenerPDFPath devuelve la ruta del PDF generado para su descarga.
	ObtenerPDFPath(ctx context.Context, actor Actor, facturaID uuid.UUID) (string, error)
	EnviarPorEmail(ctx context.Context, actor Actor, facturaID uuid.UUID, req dto.EnviarFacturaRequest) error
}

type facturaService struct {
	repo       repository.FacturaRepository
	medRepo    repository.MedicamentoRepository
	movRepo    repository.MovimientoRepository
	dispatcher *worker.Dispatcher
}

func NewFacturaService(
	repo repository.FacturaRepository,
	medRepo repository.MedicamentoRepository,
	movRepo repository.MovimientoRepository,
	dispatcher *worker.Dispatcher,
) FacturaService {
	return &facturaService{
		repo:       repo,
		medRepo:    medRepo,
		movRepo:    movRepo,
		dispatcher: dispatcher,
	}
}

// ── GenerarDesdePedido ────────────────────────────────────────────────────────
// El total y las lineas se congelan copiandolos del pedido: la factura nunca
// se recalcula aunque los precios del catalogo cambien despues.

func (s *facturaService) GenerarDesdePedido(ctx context.Context, pedido *model.Pedido, empleadoID *uuid.UUID) (*model.Factura, error) {
	if pedido.Estado != model.PedidoEntregado {
		return nil, apierror.InvalidState("solo se factura un pedido entregado, estado actual: %s", pedido.Estado)
	}

	// Chequeo de existencia previo: regenerar seria duplicar el cobro.
	if existente, err := s.repo.FindByPedidoID(ctx, pedido.ID); err == nil {
		return existente, nil
	}

	var factura model.Factura
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		numero := 0
		if tx != nil {
			n, err := s.repo.NextNumero(ctx, tx)
			if err != nil {
				return err
			}
			numero = n
		}

		pedidoRef := pedido.ID
		factura = model.Factura{
			Numero:           numero,
			PedidoID:         &pedidoRef,
			ClienteID:        pedido.ClienteID,
			EmpleadoID:       empleadoID,
			MetodoPago:       pedido.MetodoPago,
			DireccionEntrega: pedido.DireccionEntrega,
			Total:            pedido.Total,
			DocumentoEstado:  model.DocumentoPendiente,
		}
		for _, d := range pedido.Detalles {
			factura.Detalles = append(factura.Detalles, model.DetalleFactura{
				MedicamentoID:  d.MedicamentoID,
				Cantidad:       d.Cantidad,
				PrecioUnitario: d.PrecioUnitario,
				Subtotal:       d.Subtotal,
			})
		}
		return s.repo.Create(ctx, tx, &factura)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.encolarDocumento(ctx, factura.ID)
	return &factura, nil
}

// ── RegistrarManual ───────────────────────────────────────────────────────────
// Venta de mostrador sin pedido previo. Las lineas invalidas (medicamento
// inexistente o inactivo) se omiten y se registran en el log; la factura se
// emite con las restantes.

func (s *facturaService) RegistrarManual(ctx context.Context, actor Actor, req dto.CrearFacturaRequest) (*dto.FacturaResponse, error) {
	if !actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return nil, apierror.Permission("solo el personal puede registrar facturas manuales")
	}
	clienteID, err := uuid.Parse(req.ClienteID)
	if err != nil {
		return nil, apierror.Validation("cliente_id inválido")
	}

	type resolvedLine struct {
		medicamentoID uuid.UUID
		precio        decimal.Decimal
		cantidad      int
		subtotal      decimal.Decimal
	}

	var resolved []resolvedLine
	total := decimal.Zero

	for _, linea := range req.Detalles {
		mid, err := uuid.Parse(linea.MedicamentoID)
		if err != nil {
			log.Warn().Str("medicamento_id", linea.MedicamentoID).Msg("línea de factura omitida: id inválido")
			continue
		}
		m, err := s.medRepo.FindByID(ctx, mid)
		if err != nil || !m.Activo {
			log.Warn().Str("medicamento_id", linea.MedicamentoID).Msg("línea de factura omitida: medicamento no disponible")
			continue
		}
		lineSubtotal := m.PrecioVenta.Mul(decimal.NewFromInt(int64(linea.Cantidad)))
		total = total.Add(lineSubtotal)
		resolved = append(resolved, resolvedLine{
			medicamentoID: mid,
			precio:        m.PrecioVenta,
			cantidad:      linea.Cantidad,
			subtotal:      lineSubtotal,
		})
	}
	if len(resolved) == 0 {
		return nil, apierror.Validation("la factura no tiene líneas válidas")
	}

	empleadoRef := actor.ID
	var factura model.Factura
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		numero := 0
		if tx != nil {
			n, err := s.repo.NextNumero(ctx, tx)
			if err != nil {
				return err
			}
			numero = n
		}

		factura = model.Factura{
			Numero:          numero,
			ClienteID:       clienteID,
			EmpleadoID:      &empleadoRef,
			MetodoPago:      req.MetodoPago,
			Total:           total,
			DocumentoEstado: model.DocumentoPendiente,
		}
		for _, r := range resolved {
			factura.Detalles = append(factura.Detalles, model.DetalleFactura{
				MedicamentoID:  r.medicamentoID,
				Cantidad:       r.cantidad,
				PrecioUnitario: r.precio,
				Subtotal:       r.subtotal,
			})
		}
		if err := s.repo.Create(ctx, tx, &factura); err != nil {
			return err
		}

		// La venta directa descuenta stock en el acto.
		for _, r := range resolved {
			before, err := s.medRepo.FindByIDTx(tx, r.medicamentoID)
			if err != nil {
				return err
			}
			if err := s.medRepo.DescontarStockTx(tx, r.medicamentoID, r.cantidad); err != nil {
				return err
			}
			ref := factura.ID
			if err := s.movRepo.CreateTx(tx, &model.MovimientoInventario{
				MedicamentoID: r.medicamentoID,
				Cantidad:      -r.cantidad,
				StockAnterior: before.StockActual,
				StockNuevo:    before.StockActual - r.cantidad,
				Motivo:        model.MovVentaDirecta,
				ReferenciaID:  &ref,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.encolarDocumento(ctx, factura.ID)
	return facturaToResponse(&factura), nil
}

func (s *facturaService) encolarDocumento(ctx context.Context, facturaID uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	// Mejor esfuerzo: si Redis no responde, el cron de reintentos la retoma.
	_ = s.dispatcher.EnqueueDocumento(ctx, map[string]interface{}{
		"factura_id": facturaID.String(),
	})
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *facturaService) Obtener(ctx context.Context, actor Actor, facturaID uuid.UUID) (*dto.FacturaResponse, error) {
	factura, err := s.repo.FindByID(ctx, facturaID)
	if err != nil {
		return nil, apierror.NotFound("factura %s no encontrada", facturaID)
	}
	if actor.Rol == model.RolCliente && factura.ClienteID != actor.ID {
		return nil, apierror.Permission("la factura pertenece a otro cliente")
	}
	return facturaToResponse(factura), nil
}

func (s *facturaService) Listar(ctx context.Context, actor Actor, filter dto.FacturaFilter) (*dto.FacturaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}

	var (
		facturas []model.Factura
		total    int64
		err      error
	)
	if actor.Rol == model.RolCliente {
		facturas, total, err = s.repo.ListByCliente(ctx, actor.ID, filter)
	} else {
		facturas, total, err = s.repo.List(ctx, filter)
	}
	if err != nil {
		return nil, err
	}

	items := make([]dto.FacturaResponse, 0, len(facturas))
	for i := range facturas {
		items = append(items, *facturaToResponse(&facturas[i]))
	}
	return &dto.FacturaListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *facturaService) ObtenerPDFPath(ctx context.Context, actor Actor, facturaID uuid.UUID) (string, error) {
	factura, err := s.repo.FindByID(ctx, facturaID)
	if err != nil {
		return "", apierror.NotFound("factura %s no encontrada", facturaID)
	}
	if actor.Rol == model.RolCliente && factura.ClienteID != actor.ID {
		return "", apierror.Permission("la factura pertenece a otro cliente")
	}
	if factura.DocumentoEstado != model.DocumentoGenerado || factura.PDFPath == nil {
		return "", apierror.InvalidState("el documento de la factura aún no fue generado")
	}
	return *factura.PDFPath, nil
}

func (s *facturaService) EnviarPorEmail(ctx context.Context, actor Actor, facturaID uuid.UUID, req dto.EnviarFacturaRequest) error {
	factura, err := s.repo.FindByID(ctx, facturaID)
	if err != nil {
		return apierror.NotFound("factura %s no encontrada", facturaID)
	}
	if actor.Rol == model.RolCliente && factura.ClienteID != actor.ID {
		return apierror.Permission("la factura pertenece a otro cliente")
	}
	if s.dispatcher == nil {
		return apierror.InvalidState("el envío de emails no está disponible")
	}
	return s.dispatcher.EnqueueEmail(ctx, map[string]interface{}{
		"factura_id": factura.ID.String(),
		"email":      req.Email,
	})
}

func facturaToResponse(f *model.Factura) *dto.FacturaResponse {
	detalles := make([]dto.DetalleFacturaResponse, 0, len(f.Detalles))
	for _, d := range f.Detalles {
		nombre := ""
		if d.Medicamento != nil {
			nombre = d.Medicamento.Nombre
		}
		detalles = append(detalles, dto.DetalleFacturaResponse{
			ID:             d.ID.String(),
			MedicamentoID:  d.MedicamentoID.String(),
			Medicamento:    nombre,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Subtotal:       d.Subtotal,
		})
	}
	resp := &dto.FacturaResponse{
		ID:              f.ID.String(),
		Numero:          f.Numero,
		ClienteID:       f.ClienteID.String(),
		MetodoPago:      f.MetodoPago,
		Total:           f.Total,
		DocumentoEstado: f.DocumentoEstado,
		Detalles:        detalles,
		CreatedAt:       f.CreatedAt.UTC().Format(time.RFC3339),
	}
	if f.PedidoID != nil {
		pid := f.PedidoID.String()
		resp.PedidoID = &pid
	}
	if f.EmpleadoID != nil {
		eid := f.EmpleadoID.String()
		resp.EmpleadoID = &eid
	}
	return resp
}
