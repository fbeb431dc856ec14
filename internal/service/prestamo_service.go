package service

import (
	"context"
	"errors"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"
	"farmanet/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PrestamoService interface {
	Solicitar(ctx context.Context, actor Actor, req dto.SolicitarPrestamoRequest) (*dto.PrestamoResponse, error)
	Aceptar(ctx context.Context, actor Actor, prestamoID uuid.UUID, req dto.ResolverPrestamoRequest) (*dto.PrestamoResponse, error)
	Rechazar(ctx context.Context, actor Actor, prestamoID uuid.UUID, req dto.ResolverPrestamoRequest) (*dto.PrestamoResponse, error)
	Obtener(ctx context.Context, actor Actor, prestamoID uuid.UUID) (*dto.PrestamoResponse, error)
	Listar(ctx context.Context, actor Actor, filter dto.PrestamoFilter) (*dto.PrestamoListResponse, error)
}

type prestamoService struct {
	repo     repository.PrestamoRepository
	medRepo  repository.MedicamentoRepository
	movRepo  repository.MovimientoRepository
	drogRepo repository.DrogueriaRepository
}

func NewPrestamoService(
	repo repository.PrestamoRepository,
	medRepo repository.MedicamentoRepository,
	movRepo repository.MovimientoRepository,
	drogRepo repository.DrogueriaRepository,
) PrestamoService {
	return &prestamoService{
		repo:     repo,
		medRepo:  medRepo,
		movRepo:  movRepo,
		drogRepo: drogRepo,
	}
}

// ── Solicitar ─────────────────────────────────────────────────────────────────
// El stock sale de la sucursal origen al momento de la solicitud (reserva
// pesimista). Mientras el prestamo esté pendiente, esas unidades no existen
// en ninguna sucursal: solo en la fila del prestamo.

func (s *prestamoService) Solicitar(ctx context.Context, actor Actor, req dto.SolicitarPrestamoRequest) (*dto.PrestamoResponse, error) {
	if !actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return nil, apierror.Permission("solo el personal puede solicitar préstamos entre sucursales")
	}
	if req.OrigenID == req.DestinoID {
		return nil, apierror.Validation("origen y destino deben ser sucursales distintas")
	}

	origenID, err := uuid.Parse(req.OrigenID)
	if err != nil {
		return nil, apierror.Validation("origen_id inválido")
	}
	destinoID, err := uuid.Parse(req.DestinoID)
	if err != nil {
		return nil, apierror.Validation("destino_id inválido")
	}
	medicamentoID, err := uuid.Parse(req.MedicamentoID)
	if err != nil {
		return nil, apierror.Validation("medicamento_id inválido")
	}

	origen, err := s.drogRepo.FindByID(ctx, origenID)
	if err != nil || !origen.Activo {
		return nil, apierror.NotFound("droguería origen %s no encontrada", req.OrigenID)
	}
	destino, err := s.drogRepo.FindByID(ctx, destinoID)
	if err != nil || !destino.Activo {
		return nil, apierror.NotFound("droguería destino %s no encontrada", req.DestinoID)
	}

	medicamento, err := s.medRepo.FindByID(ctx, medicamentoID)
	if err != nil {
		return nil, apierror.NotFound("medicamento %s no encontrado", req.MedicamentoID)
	}
	if medicamento.DrogueriaID != origenID {
		return nil, apierror.Validation("el medicamento no pertenece a la droguería origen")
	}
	if !medicamento.Activo {
		return nil, apierror.Validation("el medicamento %s está inactivo", medicamento.Nombre)
	}

	var prestamo model.Prestamo
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		prestamo = model.Prestamo{
			OrigenID:      origenID,
			DestinoID:     destinoID,
			MedicamentoID: medicamentoID,
			SolicitanteID: actor.ID,
			Cantidad:      req.Cantidad,
			Estado:        model.PrestamoPendiente,
			Nota:          req.Nota,
		}
		if err := s.repo.Create(ctx, tx, &prestamo); err != nil {
			return err
		}

		before, err := s.medRepo.FindByIDTx(tx, medicamentoID)
		if err != nil {
			return err
		}
		if err := s.medRepo.DescontarStockTx(tx, medicamentoID, req.Cantidad); err != nil {
			return err
		}
		ref := prestamo.ID
		return s.movRepo.CreateTx(tx, &model.MovimientoInventario{
			MedicamentoID: medicamentoID,
			Cantidad:      -req.Cantidad,
			StockAnterior: before.StockActual,
			StockNuevo:    before.StockActual - req.Cantidad,
			Motivo:        model.MovReservaPrestamo,
			ReferenciaID:  &ref,
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.Obtener(ctx, actor, prestamo.ID)
}

// ── Aceptar ───────────────────────────────────────────────────────────────────
// Acredita las unidades reservadas en la sucursal destino. Si el destino no
// tiene el medicamento (mismo codigo de barras) se clona la ficha con stock
// cero antes de acreditar.

func (s *prestamoService) Aceptar(ctx context.Context, actor Actor, prestamoID uuid.UUID, req dto.ResolverPrestamoRequest) (*dto.PrestamoResponse, error) {
	prestamo, err := s.repo.FindByID(ctx, prestamoID)
	if err != nil {
		return nil, apierror.NotFound("préstamo %s no encontrado", prestamoID)
	}
	if err := s.puedeResolver(ctx, actor, prestamo); err != nil {
		return nil, err
	}
	if prestamo.Estado != model.PrestamoPendiente {
		return nil, apierror.InvalidState("el préstamo ya fue resuelto: %s", prestamo.Estado)
	}

	origenMed, err := s.medRepo.FindByID(ctx, prestamo.MedicamentoID)
	if err != nil {
		return nil, apierror.NotFound("medicamento %s no encontrado", prestamo.MedicamentoID)
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// La resolución es condicional sobre estado=pendiente. Si otra
		// resolución ganó la carrera, la tx aborta antes de mover stock.
		if err := s.repo.ResolverTx(tx, prestamo, model.PrestamoAceptado, actor.ID, req.Nota); err != nil {
			return err
		}

		destinoMed, err := s.medRepo.FindByCodigoBarraTx(tx, prestamo.DestinoID, origenMed.CodigoBarra)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// El destino no maneja este medicamento: se clona la ficha.
			destinoMed = &model.Medicamento{
				DrogueriaID:      prestamo.DestinoID,
				CategoriaID:      origenMed.CategoriaID,
				CodigoBarra:      origenMed.CodigoBarra,
				Nombre:           origenMed.Nombre,
				Descripcion:      origenMed.Descripcion,
				Proveedor:        origenMed.Proveedor,
				Lote:             origenMed.Lote,
				PrecioCompra:     origenMed.PrecioCompra,
				PrecioVenta:      origenMed.PrecioVenta,
				StockActual:      0,
				StockMinimo:      origenMed.StockMinimo,
				FechaVencimiento: origenMed.FechaVencimiento,
				Activo:           true,
			}
			if err := s.medRepo.CreateTx(tx, destinoMed); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := s.medRepo.ReponerStockTx(tx, destinoMed.ID, prestamo.Cantidad); err != nil {
			return err
		}
		ref := prestamo.ID
		return s.movRepo.CreateTx(tx, &model.MovimientoInventario{
			MedicamentoID: destinoMed.ID,
			Cantidad:      prestamo.Cantidad,
			StockAnterior: destinoMed.StockActual,
			StockNuevo:    destinoMed.StockActual + prestamo.Cantidad,
			Motivo:        model.MovEntradaPrestamo,
			ReferenciaID:  &ref,
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.Obtener(ctx, actor, prestamo.ID)
}

// ── Rechazar ──────────────────────────────────────────────────────────────────
// Devuelve las unidades reservadas a la sucursal origen.

func (s *prestamoService) Rechazar(ctx context.Context, actor Actor, prestamoID uuid.UUID, req dto.ResolverPrestamoRequest) (*dto.PrestamoResponse, error) {
	prestamo, err := s.repo.FindByID(ctx, prestamoID)
	if err != nil {
		return nil, apierror.NotFound("préstamo %s no encontrado", prestamoID)
	}
	if err := s.puedeResolver(ctx, actor, prestamo); err != nil {
		return nil, err
	}
	if prestamo.Estado != model.PrestamoPendiente {
		return nil, apierror.InvalidState("el préstamo ya fue resuelto: %s", prestamo.Estado)
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Mismo compare-and-set que en Aceptar: las unidades reservadas
		// vuelven al origen exactamente una vez.
		if err := s.repo.ResolverTx(tx, prestamo, model.PrestamoRechazado, actor.ID, req.Nota); err != nil {
			return err
		}

		before, err := s.medRepo.FindByIDTx(tx, prestamo.MedicamentoID)
		if err != nil {
			return err
		}
		if err := s.medRepo.ReponerStockTx(tx, prestamo.MedicamentoID, prestamo.Cantidad); err != nil {
			return err
		}
		ref := prestamo.ID
		return s.movRepo.CreateTx(tx, &model.MovimientoInventario{
			MedicamentoID: prestamo.MedicamentoID,
			Cantidad:      prestamo.Cantidad,
			StockAnterior: before.StockActual,
			StockNuevo:    before.StockActual + prestamo.Cantidad,
			Motivo:        model.MovDevolucionPrest,
			ReferenciaID:  &ref,
		})
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.Obtener(ctx, actor, prestamo.ID)
}

// puedeResolver: admin, o propietario de la sucursal origen o destino.
func (s *prestamoService) puedeResolver(ctx context.Context, actor Actor, p *model.Prestamo) error {
	if actor.EsAdmin() {
		return nil
	}
	origen, err := s.drogRepo.FindByID(ctx, p.OrigenID)
	if err == nil && actor.Owns(origen) {
		return nil
	}
	destino, err := s.drogRepo.FindByID(ctx, p.DestinoID)
	if err == nil && actor.Owns(destino) {
		return nil
	}
	return apierror.Permission("no tiene permisos para resolver este préstamo")
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *prestamoService) Obtener(ctx context.Context, actor Actor, prestamoID uuid.UUID) (*dto.PrestamoResponse, error) {
	if actor.Rol == model.RolCliente {
		return nil, apierror.Permission("los préstamos son una operación interna")
	}
	prestamo, err := s.repo.FindByID(ctx, prestamoID)
	if err != nil {
		return nil, apierror.NotFound("préstamo %s no encontrado", prestamoID)
	}
	return prestamoToResponse(prestamo), nil
}

func (s *prestamoService) Listar(ctx context.Context, actor Actor, filter dto.PrestamoFilter) (*dto.PrestamoListResponse, error) {
	if actor.Rol == model.RolCliente {
		return nil, apierror.Permission("los préstamos son una operación interna")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	prestamos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.PrestamoResponse, 0, len(prestamos))
	for i := range prestamos {
		items = append(items, *prestamoToResponse(&prestamos[i]))
	}
	return &dto.PrestamoListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func prestamoToResponse(p *model.Prestamo) *dto.PrestamoResponse {
	resp := &dto.PrestamoResponse{
		ID:            p.ID.String(),
		OrigenID:      p.OrigenID.String(),
		DestinoID:     p.DestinoID.String(),
		MedicamentoID: p.MedicamentoID.String(),
		SolicitanteID: p.SolicitanteID.String(),
		Cantidad:      p.Cantidad,
		Estado:        p.Estado,
		Nota:          p.Nota,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.Origen != nil {
		resp.Origen = p.Origen.Nombre
	}
	if p.Destino != nil {
		resp.Destino = p.Destino.Nombre
	}
	if p.Medicamento != nil {
		resp.Medicamento = p.Medicamento.Nombre
	}
	if p.ResueltoPorID != nil {
		rid := p.ResueltoPorID.String()
		resp.ResueltoPorID = &rid
	}
	if p.ResueltoEn != nil {
		t := p.ResueltoEn.UTC().Format(time.RFC3339)
		resp.ResueltoEn = &t
	}
	return resp
}
