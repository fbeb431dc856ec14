package service

import (
	"context"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"
	"farmanet/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PedidoService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error)
	AgregarDetalle(ctx context.Context, actor Actor, pedidoID uuid.UUID, req dto.AgregarDetalleRequest) (*dto.PedidoResponse, error)
	CambiarEstado(ctx context.Context, actor Actor, pedidoID uuid.UUID, req dto.CambiarEstadoRequest) (*dto.PedidoResponse, error)
	Obtener(ctx context.Context, actor Actor, pedidoID uuid.UUID) (*dto.PedidoResponse, error)
	Listar(ctx context.Context, actor Actor, filter dto.PedidoFilter) (*dto.PedidoListResponse, error)
	Historial(ctx context.Context, actor Actor, pedidoID uuid.UUID) ([]dto.HistorialPedidoResponse, error)
}

type pedidoService struct {
	repo     repository.PedidoRepository
	medRepo  repository.MedicamentoRepository
	movRepo  repository.MovimientoRepository
	facturas FacturaService
}

func NewPedidoService(
	repo repository.PedidoRepository,
	medRepo repository.MedicamentoRepository,
	movRepo repository.MovimientoRepository,
	facturas FacturaService,
) PedidoService {
	return &pedidoService{
		repo:     repo,
		medRepo:  medRepo,
		movRepo:  movRepo,
		facturas: facturas,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// transiciones validas del pedido. Estados terminales no aparecen como clave.
var transicionesPedido = map[string][]string{
	model.PedidoPendiente: {model.PedidoProcesado, model.PedidoCancelado},
	model.PedidoProcesado: {model.PedidoEntregado, model.PedidoCancelado},
}

func transicionValida(desde, hacia string) bool {
	for _, t := range transicionesPedido[desde] {
		if t == hacia {
			return true
		}
	}
	return false
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// Flujo:
//   1. Resolver cliente (staff puede crear a nombre de otro; cliente solo propio)
//   2. Resolver lineas fuera de la tx: precio congelado, validaciones
//   3. TX: crear pedido + detalles, descontar stock con guardia condicional,
//      registrar un movimiento por linea, fijar totales
//   4. COMMIT: el pedido nace en estado pendiente

func (s *pedidoService) Crear(ctx context.Context, actor Actor, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error) {
	clienteID := actor.ID
	if req.ClienteID != nil {
		if !actor.HasRole(model.RolAdmin, model.RolEmpleado) {
			return nil, apierror.Permission("un cliente solo puede crear pedidos propios")
		}
		parsed, err := uuid.Parse(*req.ClienteID)
		if err != nil {
			return nil, apierror.Validation("cliente_id inválido")
		}
		clienteID = parsed
	}

	type resolvedLine struct {
		medicamentoID uuid.UUID
		nombre        string
		precio        decimal.Decimal
		cantidad      int
		subtotal      decimal.Decimal
	}

	var resolved []resolvedLine
	subtotal := decimal.Zero

	for _, linea := range req.Detalles {
		mid, err := uuid.Parse(linea.MedicamentoID)
		if err != nil {
			return nil, apierror.Validation("medicamento_id inválido: %s", linea.MedicamentoID)
		}
		m, err := s.medRepo.FindByID(ctx, mid)
		if err != nil {
			return nil, apierror.NotFound("medicamento %s no encontrado", linea.MedicamentoID)
		}
		if !m.Activo {
			return nil, apierror.Validation("el medicamento %s está inactivo", m.Nombre)
		}
		lineSubtotal := m.PrecioVenta.Mul(decimal.NewFromInt(int64(linea.Cantidad)))
		subtotal = subtotal.Add(lineSubtotal)
		resolved = append(resolved, resolvedLine{
			medicamentoID: mid,
			nombre:        m.Nombre,
			precio:        m.PrecioVenta,
			cantidad:      linea.Cantidad,
			subtotal:      lineSubtotal,
		})
	}

	if req.Descuento.GreaterThan(subtotal) {
		return nil, apierror.Validation("el descuento no puede superar el subtotal")
	}
	total := subtotal.Sub(req.Descuento)

	var pedido model.Pedido
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		pedido = model.Pedido{
			ClienteID:        clienteID,
			Estado:           model.PedidoPendiente,
			MetodoPago:       req.MetodoPago,
			DireccionEntrega: req.DireccionEntrega,
			TelefonoContacto: req.TelefonoContacto,
			Notas:            req.Notas,
			Subtotal:         subtotal,
			Descuento:        req.Descuento,
			Total:            total,
		}
		for _, r := range resolved {
			pedido.Detalles = append(pedido.Detalles, model.DetallePedido{
				MedicamentoID:  r.medicamentoID,
				Cantidad:       r.cantidad,
				PrecioUnitario: r.precio,
				Subtotal:       r.subtotal,
			})
		}
		if err := s.repo.Create(ctx, tx, &pedido); err != nil {
			return err
		}

		// Reservar stock: una linea que no alcanza aborta toda la tx.
		for _, r := range resolved {
			if err := s.reservarStockTx(tx, r.medicamentoID, r.cantidad, pedido.ID, model.MovReservaPedido); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.Obtener(ctx, actor, pedido.ID)
}

// reservarStockTx decrements stock under the conditional guard and writes the
// matching ledger row in the same transaction.
func (s *pedidoService) reservarStockTx(tx *gorm.DB, medicamentoID uuid.UUID, cantidad int, refID uuid.UUID, motivo string) error {
	before, err := s.medRepo.FindByIDTx(tx, medicamentoID)
	if err != nil {
		return apierror.NotFound("medicamento %s no encontrado", medicamentoID)
	}
	if err := s.medRepo.DescontarStockTx(tx, medicamentoID, cantidad); err != nil {
		return err
	}
	ref := refID
	return s.movRepo.CreateTx(tx, &model.MovimientoInventario{
		MedicamentoID: medicamentoID,
		Cantidad:      -cantidad,
		StockAnterior: before.StockActual,
		StockNuevo:    before.StockActual - cantidad,
		Motivo:        motivo,
		ReferenciaID:  &ref,
	})
}

// ── AgregarDetalle ────────────────────────────────────────────────────────────

func (s *pedidoService) AgregarDetalle(ctx context.Context, actor Actor, pedidoID uuid.UUID, req dto.AgregarDetalleRequest) (*dto.PedidoResponse, error) {
	pedido, err := s.repo.FindByID(ctx, pedidoID)
	if err != nil {
		return nil, apierror.NotFound("pedido %s no encontrado", pedidoID)
	}
	if err := s.puedeVer(actor, pedido); err != nil {
		return nil, err
	}
	if pedido.Estado != model.PedidoPendiente {
		return nil, apierror.InvalidState("solo se pueden agregar líneas a un pedido pendiente, estado actual: %s", pedido.Estado)
	}

	mid, err := uuid.Parse(req.MedicamentoID)
	if err != nil {
		return nil, apierror.Validation("medicamento_id inválido")
	}
	m, err := s.medRepo.FindByID(ctx, mid)
	if err != nil {
		return nil, apierror.NotFound("medicamento %s no encontrado", req.MedicamentoID)
	}
	if !m.Activo {
		return nil, apierror.Validation("el medicamento %s está inactivo", m.Nombre)
	}

	lineSubtotal := m.PrecioVenta.Mul(decimal.NewFromInt(int64(req.Cantidad)))

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Releer dentro de la tx: el estado y las lineas pueden haber
		// cambiado desde el chequeo previo.
		actual, err := s.repo.FindByIDTx(tx, pedido.ID)
		if err != nil {
			return err
		}
		if actual.Estado != model.PedidoPendiente {
			return apierror.InvalidState("solo se pueden agregar líneas a un pedido pendiente, estado actual: %s", actual.Estado)
		}

		if err := s.reservarStockTx(tx, mid, req.Cantidad, pedido.ID, model.MovReservaPedido); err != nil {
			return err
		}
		detalle := model.DetallePedido{
			PedidoID:       pedido.ID,
			MedicamentoID:  mid,
			Cantidad:       req.Cantidad,
			PrecioUnitario: m.PrecioVenta,
			Subtotal:       lineSubtotal,
		}
		if err := s.repo.CreateDetalleTx(tx, &detalle); err != nil {
			return err
		}

		// Los totales derivan de las lineas leidas en esta misma tx, nunca
		// de un snapshot previo.
		nuevoSubtotal := lineSubtotal
		for _, d := range actual.Detalles {
			nuevoSubtotal = nuevoSubtotal.Add(d.Subtotal)
		}
		nuevoTotal := nuevoSubtotal.Sub(actual.Descuento)
		return s.repo.UpdateTotalesTx(tx, pedido.ID, nuevoSubtotal, actual.Descuento, nuevoTotal)
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.Obtener(ctx, actor, pedido.ID)
}

// ── CambiarEstado ─────────────────────────────────────────────────────────────
// Transiciones: pendiente→{procesado,cancelado}, procesado→{entregado,cancelado}.
// Cancelar devuelve el stock reservado. Entregar dispara la generación de
// factura fuera de la tx; su fallo se registra pero nunca revierte la entrega.

func (s *pedidoService) CambiarEstado(ctx context.Context, actor Actor, pedidoID uuid.UUID, req dto.CambiarEstadoRequest) (*dto.PedidoResponse, error) {
	pedido, err := s.repo.FindByID(ctx, pedidoID)
	if err != nil {
		return nil, apierror.NotFound("pedido %s no encontrado", pedidoID)
	}
	if err := s.puedeTransicionar(actor, pedido, req.Estado); err != nil {
		return nil, err
	}
	if !transicionValida(pedido.Estado, req.Estado) {
		return nil, apierror.InvalidTransition("transición inválida: %s → %s", pedido.Estado, req.Estado)
	}

	estadoAnterior := pedido.Estado
	usuarioRef := actor.ID

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Transición condicional sobre el estado previo: de dos escritores
		// concurrentes solo uno pasa, el otro aborta sin tocar stock.
		if err := s.repo.UpdateEstadoTx(tx, pedido.ID, estadoAnterior, req.Estado); err != nil {
			return err
		}

		if req.Estado == model.PedidoCancelado {
			// Devolver lo reservado, linea por linea, con su asiento.
			for _, d := range pedido.Detalles {
				before, err := s.medRepo.FindByIDTx(tx, d.MedicamentoID)
				if err != nil {
					return err
				}
				if err := s.medRepo.ReponerStockTx(tx, d.MedicamentoID, d.Cantidad); err != nil {
					return err
				}
				ref := pedido.ID
				if err := s.movRepo.CreateTx(tx, &model.MovimientoInventario{
					MedicamentoID: d.MedicamentoID,
					Cantidad:      d.Cantidad,
					StockAnterior: before.StockActual,
					StockNuevo:    before.StockActual + d.Cantidad,
					Motivo:        model.MovRestoreCancelado,
					ReferenciaID:  &ref,
				}); err != nil {
					return err
				}
			}
		}

		return s.repo.CreateHistorialTx(tx, &model.HistorialPedido{
			PedidoID:       pedido.ID,
			EstadoAnterior: estadoAnterior,
			EstadoNuevo:    req.Estado,
			Comentario:     req.Comentario,
			UsuarioID:      &usuarioRef,
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	// Generación automática de factura al entregar. Mejor esfuerzo: un fallo
	// aquí deja el pedido entregado y sin factura, recuperable manualmente.
	if req.Estado == model.PedidoEntregado && s.facturas != nil {
		pedido.Estado = model.PedidoEntregado
		if _, err := s.facturas.GenerarDesdePedido(ctx, pedido, &usuarioRef); err != nil {
			log.Warn().Err(err).
				Str("pedido_id", pedido.ID.String()).
				Msg("no se pudo generar la factura del pedido entregado")
		}
	}

	return s.Obtener(ctx, actor, pedido.ID)
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *pedidoService) Obtener(ctx context.Context, actor Actor, pedidoID uuid.UUID) (*dto.PedidoResponse, error) {
	pedido, err := s.repo.FindByID(ctx, pedidoID)
	if err != nil {
		return nil, apierror.NotFound("pedido %s no encontrado", pedidoID)
	}
	if err := s.puedeVer(actor, pedido); err != nil {
		return nil, err
	}
	return pedidoToResponse(pedido), nil
}

func (s *pedidoService) Listar(ctx context.Context, actor Actor, filter dto.PedidoFilter) (*dto.PedidoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	// Los clientes solo ven sus propios pedidos.
	if actor.Rol == model.RolCliente {
		filter.Cliente = actor.ID.String()
	}
	pedidos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.PedidoResponse, 0, len(pedidos))
	for i := range pedidos {
		items = append(items, *pedidoToResponse(&pedidos[i]))
	}
	return &dto.PedidoListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *pedidoService) Historial(ctx context.Context, actor Actor, pedidoID uuid.UUID) ([]dto.HistorialPedidoResponse, error) {
	pedido, err := s.repo.FindByID(ctx, pedidoID)
	if err != nil {
		return nil, apierror.NotFound("pedido %s no encontrado", pedidoID)
	}
	if err := s.puedeVer(actor, pedido); err != nil {
		return nil, err
	}
	historial, err := s.repo.ListHistorial(ctx, pedidoID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.HistorialPedidoResponse, 0, len(historial))
	for _, h := range historial {
		item := dto.HistorialPedidoResponse{
			ID:             h.ID.String(),
			EstadoAnterior: h.EstadoAnterior,
			EstadoNuevo:    h.EstadoNuevo,
			Comentario:     h.Comentario,
			CreatedAt:      h.CreatedAt.UTC().Format(time.RFC3339),
		}
		if h.UsuarioID != nil {
			uid := h.UsuarioID.String()
			item.UsuarioID = &uid
		}
		items = append(items, item)
	}
	return items, nil
}

// ── Permisos ──────────────────────────────────────────────────────────────────

func (s *pedidoService) puedeVer(actor Actor, p *model.Pedido) error {
	if actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return nil
	}
	if p.ClienteID == actor.ID {
		return nil
	}
	return apierror.Permission("el pedido pertenece a otro cliente")
}

func (s *pedidoService) puedeTransicionar(actor Actor, p *model.Pedido, hacia string) error {
	if actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return nil
	}
	// Un cliente solo puede cancelar su propio pedido pendiente.
	if p.ClienteID == actor.ID && hacia == model.PedidoCancelado && p.Estado == model.PedidoPendiente {
		return nil
	}
	return apierror.Permission("no tiene permisos para cambiar el estado del pedido")
}

func pedidoToResponse(p *model.Pedido) *dto.PedidoResponse {
	detalles := make([]dto.DetallePedidoResponse, 0, len(p.Detalles))
	for _, d := range p.Detalles {
		nombre := ""
		if d.Medicamento != nil {
			nombre = d.Medicamento.Nombre
		}
		detalles = append(detalles, dto.DetallePedidoResponse{
			ID:             d.ID.String(),
			MedicamentoID:  d.MedicamentoID.String(),
			Medicamento:    nombre,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Subtotal:       d.Subtotal,
		})
	}
	return &dto.PedidoResponse{
		ID:               p.ID.String(),
		ClienteID:        p.ClienteID.String(),
		Estado:           p.Estado,
		MetodoPago:       p.MetodoPago,
		DireccionEntrega: p.DireccionEntrega,
		TelefonoContacto: p.TelefonoContacto,
		Notas:            p.Notas,
		Subtotal:         p.Subtotal,
		Descuento:        p.Descuento,
		Total:            p.Total,
		Detalles:         detalles,
		CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
