package service

import (
	"context"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"
	"farmanet/internal/repository"

	"github.com/google/uuid"
)

type MedicamentoService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearMedicamentoRequest) (*dto.MedicamentoResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.MedicamentoResponse, error)
	Listar(ctx context.Context, filter dto.MedicamentoFilter) (*dto.MedicamentoListResponse, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarMedicamentoRequest) (*dto.MedicamentoResponse, error)
	Desactivar(ctx context.Context, actor Actor, id uuid.UUID) error
	// ConsultarPrecio es la consulta publica de precio por codigo de barras.
	ConsultarPrecio(ctx context.Context, drogueriaID uuid.UUID, codigoBarra string) (*dto.ConsultaPrecioResponse, error)

	CrearCategoria(ctx context.Context, actor Actor, req dto.CrearCategoriaRequest) (*dto.CategoriaResponse, error)
	ListarCategorias(ctx context.Context) ([]dto.CategoriaResponse, error)
}

type medicamentoService struct {
	repo     repository.MedicamentoRepository
	catRepo  repository.CategoriaRepository
	drogRepo repository.DrogueriaRepository
}

func NewMedicamentoService(
	repo repository.MedicamentoRepository,
	catRepo repository.CategoriaRepository,
	drogRepo repository.DrogueriaRepository,
) MedicamentoService {
	return &medicamentoService{repo: repo, catRepo: catRepo, drogRepo: drogRepo}
}

func (s *medicamentoService) Crear(ctx context.Context, actor Actor, req dto.CrearMedicamentoRequest) (*dto.MedicamentoResponse, error) {
	if !actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return nil, apierror.Permission("solo el personal puede cargar medicamentos")
	}
	drogueriaID, err := uuid.Parse(req.DrogueriaID)
	if err != nil {
		return nil, apierror.Validation("drogueria_id inválido")
	}
	d, err := s.drogRepo.FindByID(ctx, drogueriaID)
	if err != nil || !d.Activo {
		return nil, apierror.NotFound("droguería %s no encontrada", req.DrogueriaID)
	}
	if !actor.EsAdmin() && !actor.Owns(d) && actor.Rol != model.RolEmpleado {
		return nil, apierror.Permission("no tiene permisos sobre esta droguería")
	}
	if existente, err := s.repo.FindByCodigoBarra(ctx, drogueriaID, req.CodigoBarra); err == nil && existente != nil {
		return nil, apierror.Validation("la droguería ya tiene un medicamento con código %s", req.CodigoBarra)
	}

	m := &model.Medicamento{
		DrogueriaID:  drogueriaID,
		CodigoBarra:  req.CodigoBarra,
		Nombre:       req.Nombre,
		Descripcion:  req.Descripcion,
		Proveedor:    req.Proveedor,
		Lote:         req.Lote,
		PrecioCompra: req.PrecioCompra,
		PrecioVenta:  req.PrecioVenta,
		StockActual:  req.StockActual,
		StockMinimo:  req.StockMinimo,
		Activo:       true,
	}
	if req.CategoriaID != nil {
		cid, err := uuid.Parse(*req.CategoriaID)
		if err != nil {
			return nil, apierror.Validation("categoria_id inválido")
		}
		m.CategoriaID = &cid
	}
	if req.FechaVencimiento != nil {
		fv, err := time.Parse("2006-01-02", *req.FechaVencimiento)
		if err != nil {
			return nil, apierror.Validation("fecha_vencimiento inválida, formato esperado AAAA-MM-DD")
		}
		m.FechaVencimiento = &fv
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return medicamentoToResponse(m), nil
}

func (s *medicamentoService) Obtener(ctx context.Context, id uuid.UUID) (*dto.MedicamentoResponse, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("medicamento %s no encontrado", id)
	}
	return medicamentoToResponse(m), nil
}

func (s *medicamentoService) Listar(ctx context.Context, filter dto.MedicamentoFilter) (*dto.MedicamentoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	medicamentos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MedicamentoResponse, 0, len(medicamentos))
	for i := range medicamentos {
		items = append(items, *medicamentoToResponse(&medicamentos[i]))
	}
	return &dto.MedicamentoListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *medicamentoService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarMedicamentoRequest) (*dto.MedicamentoResponse, error) {
	if !actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return nil, apierror.Permission("solo el personal puede modificar medicamentos")
	}
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("medicamento %s no encontrado", id)
	}

	if req.Nombre != "" {
		m.Nombre = req.Nombre
	}
	if req.Descripcion != nil {
		m.Descripcion = req.Descripcion
	}
	if req.Proveedor != nil {
		m.Proveedor = req.Proveedor
	}
	if req.Lote != nil {
		m.Lote = req.Lote
	}
	if req.PrecioCompra != nil {
		m.PrecioCompra = *req.PrecioCompra
	}
	if req.PrecioVenta != nil {
		m.PrecioVenta = *req.PrecioVenta
	}
	if req.StockMinimo != nil {
		m.StockMinimo = *req.StockMinimo
	}
	if req.CategoriaID != nil {
		cid, err := uuid.Parse(*req.CategoriaID)
		if err != nil {
			return nil, apierror.Validation("categoria_id inválido")
		}
		m.CategoriaID = &cid
	}
	if req.FechaVencimiento != nil {
		fv, err := time.Parse("2006-01-02", *req.FechaVencimiento)
		if err != nil {
			return nil, apierror.Validation("fecha_vencimiento inválida, formato esperado AAAA-MM-DD")
		}
		m.FechaVencimiento = &fv
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return medicamentoToResponse(m), nil
}

func (s *medicamentoService) Desactivar(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return apierror.Permission("solo el personal puede dar de baja medicamentos")
	}
	// Baja logica unicamente: las facturas referencian al medicamento.
	return s.repo.SoftDelete(ctx, id)
}

func (s *medicamentoService) ConsultarPrecio(ctx context.Context, drogueriaID uuid.UUID, codigoBarra string) (*dto.ConsultaPrecioResponse, error) {
	m, err := s.repo.FindByCodigoBarra(ctx, drogueriaID, codigoBarra)
	if err != nil {
		return nil, apierror.NotFound("no hay medicamento con código %s en la droguería", codigoBarra)
	}
	resp := &dto.ConsultaPrecioResponse{
		Nombre:          m.Nombre,
		PrecioVenta:     m.PrecioVenta,
		StockDisponible: m.StockActual,
	}
	if d, err := s.drogRepo.FindByID(ctx, drogueriaID); err == nil {
		resp.Drogueria = d.Nombre
	}
	return resp, nil
}

func (s *medicamentoService) CrearCategoria(ctx context.Context, actor Actor, req dto.CrearCategoriaRequest) (*dto.CategoriaResponse, error) {
	if !actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return nil, apierror.Permission("solo el personal puede crear categorías")
	}
	c := &model.Categoria{
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Activo:      true,
	}
	if err := s.catRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return &dto.CategoriaResponse{
		ID:          c.ID.String(),
		Nombre:      c.Nombre,
		Descripcion: c.Descripcion,
		Activo:      c.Activo,
	}, nil
}

func (s *medicamentoService) ListarCategorias(ctx context.Context) ([]dto.CategoriaResponse, error) {
	categorias, err := s.catRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CategoriaResponse, 0, len(categorias))
	for _, c := range categorias {
		items = append(items, dto.CategoriaResponse{
			ID:          c.ID.String(),
			Nombre:      c.Nombre,
			Descripcion: c.Descripcion,
			Activo:      c.Activo,
		})
	}
	return items, nil
}

func medicamentoToResponse(m *model.Medicamento) *dto.MedicamentoResponse {
	resp := &dto.MedicamentoResponse{
		ID:           m.ID.String(),
		DrogueriaID:  m.DrogueriaID.String(),
		CodigoBarra:  m.CodigoBarra,
		Nombre:       m.Nombre,
		Descripcion:  m.Descripcion,
		Proveedor:    m.Proveedor,
		Lote:         m.Lote,
		PrecioCompra: m.PrecioCompra,
		PrecioVenta:  m.PrecioVenta,
		StockActual:  m.StockActual,
		StockMinimo:  m.StockMinimo,
		Activo:       m.Activo,
	}
	if m.CategoriaID != nil {
		cid := m.CategoriaID.String()
		resp.CategoriaID = &cid
	}
	if m.Categoria != nil {
		resp.Categoria = &m.Categoria.Nombre
	}
	if m.FechaVencimiento != nil {
		fv := m.FechaVencimiento.Format("2006-01-02")
		resp.FechaVencimiento = &fv
	}
	return resp
}
