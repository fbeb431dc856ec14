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

type DrogueriaService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearDrogueriaRequest) (*dto.DrogueriaResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.DrogueriaResponse, error)
	Listar(ctx context.Context, filter dto.DrogueriaFilter) (*dto.DrogueriaListResponse, error)
	// Mias lista las sucursales cuyo propietario es el actor.
	Mias(ctx context.Context, actor Actor) ([]dto.DrogueriaResponse, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarDrogueriaRequest) (*dto.DrogueriaResponse, error)
	Desactivar(ctx context.Context, actor Actor, id uuid.UUID) error
	// SetActiva fija la sucursal sobre la que opera un admin.
	SetActiva(ctx context.Context, actor Actor, drogueriaID uuid.UUID) error
	GetActiva(ctx context.Context, actor Actor) (*dto.DrogueriaResponse, error)
}

type drogueriaService struct {
	repo     repository.DrogueriaRepository
	userRepo repository.UsuarioRepository
}

func NewDrogueriaService(repo repository.DrogueriaRepository, userRepo repository.UsuarioRepository) DrogueriaService {
	return &drogueriaService{repo: repo, userRepo: userRepo}
}

func (s *drogueriaService) Crear(ctx context.Context, actor Actor, req dto.CrearDrogueriaRequest) (*dto.DrogueriaResponse, error) {
	if !actor.HasRole(model.RolAdmin, model.RolEmpleado) {
		return nil, apierror.Permission("solo el personal puede registrar droguerías")
	}
	if existente, err := s.repo.FindByCodigo(ctx, req.Codigo); err == nil && existente != nil {
		return nil, apierror.Validation("ya existe una droguería con el código %s", req.Codigo)
	}

	propietarioID := actor.ID
	if req.PropietarioID != nil {
		if !actor.EsAdmin() {
			return nil, apierror.Permission("solo un admin puede asignar otro propietario")
		}
		parsed, err := uuid.Parse(*req.PropietarioID)
		if err != nil {
			return nil, apierror.Validation("propietario_id inválido")
		}
		propietarioID = parsed
	}

	d := &model.Drogueria{
		Codigo:        req.Codigo,
		Nombre:        req.Nombre,
		Direccion:     req.Direccion,
		Ciudad:        req.Ciudad,
		Telefono:      req.Telefono,
		Email:         req.Email,
		Horarios:      req.Horarios,
		PropietarioID: &propietarioID,
		Activo:        true,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return drogueriaToResponse(d), nil
}

func (s *drogueriaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.DrogueriaResponse, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("droguería %s no encontrada", id)
	}
	return drogueriaToResponse(d), nil
}

func (s *drogueriaService) Listar(ctx context.Context, filter dto.DrogueriaFilter) (*dto.DrogueriaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	droguerias, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.DrogueriaResponse, 0, len(droguerias))
	for i := range droguerias {
		items = append(items, *drogueriaToResponse(&droguerias[i]))
	}
	return &dto.DrogueriaListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *drogueriaService) Mias(ctx context.Context, actor Actor) ([]dto.DrogueriaResponse, error) {
	droguerias, err := s.repo.ListByPropietario(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.DrogueriaResponse, 0, len(droguerias))
	for i := range droguerias {
		items = append(items, *drogueriaToResponse(&droguerias[i]))
	}
	return items, nil
}

func (s *drogueriaService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarDrogueriaRequest) (*dto.DrogueriaResponse, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("droguería %s no encontrada", id)
	}
	if !actor.EsAdmin() && !actor.Owns(d) {
		return nil, apierror.Permission("solo el propietario o un admin pueden modificar la droguería")
	}

	if req.Nombre != "" {
		d.Nombre = req.Nombre
	}
	if req.Direccion != nil {
		d.Direccion = req.Direccion
	}
	if req.Ciudad != nil {
		d.Ciudad = req.Ciudad
	}
	if req.Telefono != nil {
		d.Telefono = req.Telefono
	}
	if req.Email != nil {
		d.Email = req.Email
	}
	if req.Horarios != nil {
		d.Horarios = req.Horarios
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return drogueriaToResponse(d), nil
}

func (s *drogueriaService) Desactivar(ctx context.Context, actor Actor, id uuid.UUID) error {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return apierror.NotFound("droguería %s no encontrada", id)
	}
	if !actor.EsAdmin() && !actor.Owns(d) {
		return apierror.Permission("solo el propietario o un admin pueden desactivar la droguería")
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *drogueriaService) SetActiva(ctx context.Context, actor Actor, drogueriaID uuid.UUID) error {
	if !actor.EsAdmin() {
		return apierror.Permission("solo un admin puede fijar su droguería activa")
	}
	d, err := s.repo.FindByID(ctx, drogueriaID)
	if err != nil || !d.Activo {
		return apierror.NotFound("droguería %s no encontrada", drogueriaID)
	}
	return s.userRepo.SetActiveDrogueria(ctx, actor.ID, &d.ID)
}

func (s *drogueriaService) GetActiva(ctx context.Context, actor Actor) (*dto.DrogueriaResponse, error) {
	user, err := s.userRepo.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, apierror.NotFound("usuario %s no encontrado", actor.ID)
	}
	if user.ActiveDrogueriaID == nil {
		return nil, apierror.NotFound("no hay droguería activa seleccionada")
	}
	return s.Obtener(ctx, *user.ActiveDrogueriaID)
}

func drogueriaToResponse(d *model.Drogueria) *dto.DrogueriaResponse {
	resp := &dto.DrogueriaResponse{
		ID:        d.ID.String(),
		Codigo:    d.Codigo,
		Nombre:    d.Nombre,
		Direccion: d.Direccion,
		Ciudad:    d.Ciudad,
		Telefono:  d.Telefono,
		Email:     d.Email,
		Horarios:  d.Horarios,
		Activo:    d.Activo,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if d.PropietarioID != nil {
		pid := d.PropietarioID.String()
		resp.PropietarioID = &pid
	}
	return resp
}
