package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"
	"farmanet/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository stubs. DB() returns nil, so runTx executes the closure
// without a transaction and the services behave exactly as in production
// minus the SQL.

// ── Medicamentos ──────────────────────────────────────────────────────────────

type stubMedicamentoRepo struct {
	meds map[uuid.UUID]*model.Medicamento
}

func newStubMedicamentoRepo() *stubMedicamentoRepo {
	return &stubMedicamentoRepo{meds: make(map[uuid.UUID]*model.Medicamento)}
}

func (r *stubMedicamentoRepo) Create(_ context.Context, m *model.Medicamento) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.meds[m.ID] = m
	return nil
}

func (r *stubMedicamentoRepo) CreateTx(_ *gorm.DB, m *model.Medicamento) error {
	return r.Create(context.Background(), m)
}

func (r *stubMedicamentoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Medicamento, error) {
	m, ok := r.meds[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *m
	return &cp, nil
}

func (r *stubMedicamentoRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Medicamento, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubMedicamentoRepo) FindByCodigoBarra(_ context.Context, drogueriaID uuid.UUID, codigo string) (*model.Medicamento, error) {
	for _, m := range r.meds {
		if m.DrogueriaID == drogueriaID && m.CodigoBarra == codigo && m.Activo {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubMedicamentoRepo) FindByCodigoBarraTx(_ *gorm.DB, drogueriaID uuid.UUID, codigo string) (*model.Medicamento, error) {
	return r.FindByCodigoBarra(context.Background(), drogueriaID, codigo)
}

func (r *stubMedicamentoRepo) List(_ context.Context, _ dto.MedicamentoFilter) ([]model.Medicamento, int64, error) {
	out := make([]model.Medicamento, 0, len(r.meds))
	for _, m := range r.meds {
		out = append(out, *m)
	}
	return out, int64(len(out)), nil
}

func (r *stubMedicamentoRepo) Update(_ context.Context, m *model.Medicamento) error {
	r.meds[m.ID] = m
	return nil
}

func (r *stubMedicamentoRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if m, ok := r.meds[id]; ok {
		m.Activo = false
	}
	return nil
}

func (r *stubMedicamentoRepo) DescontarStockTx(_ *gorm.DB, id uuid.UUID, cantidad int) error {
	m, ok := r.meds[id]
	if !ok || !m.Activo || m.StockActual < cantidad {
		return apierror.InsufficientStock("stock insuficiente para el medicamento %s", id)
	}
	m.StockActual -= cantidad
	return nil
}

func (r *stubMedicamentoRepo) ReponerStockTx(_ *gorm.DB, id uuid.UUID, cantidad int) error {
	m, ok := r.meds[id]
	if !ok {
		return errors.New("not found")
	}
	m.StockActual += cantidad
	return nil
}

func (r *stubMedicamentoRepo) ListStockBajo(_ context.Context, drogueriaIDs []uuid.UUID) ([]model.Medicamento, error) {
	var out []model.Medicamento
	for _, m := range r.meds {
		if m.Activo && m.StockActual <= m.StockMinimo && enAlcance(m.DrogueriaID, drogueriaIDs) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubMedicamentoRepo) ListPorVencer(_ context.Context, drogueriaIDs []uuid.UUID, desde, hasta time.Time) ([]model.Medicamento, error) {
	var out []model.Medicamento
	for _, m := range r.meds {
		if !m.Activo || m.FechaVencimiento == nil || !enAlcance(m.DrogueriaID, drogueriaIDs) {
			continue
		}
		fv := *m.FechaVencimiento
		if !fv.Before(desde) && !fv.After(hasta) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubMedicamentoRepo) CountVencidos(_ context.Context, drogueriaIDs []uuid.UUID, hoy time.Time) (int64, error) {
	var count int64
	for _, m := range r.meds {
		if m.Activo && m.FechaVencimiento != nil && m.FechaVencimiento.Before(hoy) && enAlcance(m.DrogueriaID, drogueriaIDs) {
			count++
		}
	}
	return count, nil
}

func (r *stubMedicamentoRepo) DB() *gorm.DB { return nil }

func enAlcance(id uuid.UUID, scope []uuid.UUID) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		if s == id {
			return true
		}
	}
	return false
}

var _ repository.MedicamentoRepository = (*stubMedicamentoRepo)(nil)

// ── Movimientos ───────────────────────────────────────────────────────────────

type stubMovimientoRepo struct {
	movimientos []model.MovimientoInventario
}

func (r *stubMovimientoRepo) Create(_ context.Context, m *model.MovimientoInventario) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubMovimientoRepo) CreateTx(_ *gorm.DB, m *model.MovimientoInventario) error {
	return r.Create(context.Background(), m)
}

func (r *stubMovimientoRepo) List(_ context.Context, filter dto.MovimientoFilter) ([]model.MovimientoInventario, int64, error) {
	var out []model.MovimientoInventario
	for _, m := range r.movimientos {
		if filter.Motivo != "" && m.Motivo != filter.Motivo {
			continue
		}
		if filter.MedicamentoID != "" && m.MedicamentoID.String() != filter.MedicamentoID {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

// porMotivo filters captured ledger rows for assertions.
func (r *stubMovimientoRepo) porMotivo(motivo string) []model.MovimientoInventario {
	var out []model.MovimientoInventario
	for _, m := range r.movimientos {
		if m.Motivo == motivo {
			out = append(out, m)
		}
	}
	return out
}

var _ repository.MovimientoRepository = (*stubMovimientoRepo)(nil)

// ── Pedidos ───────────────────────────────────────────────────────────────────

type stubPedidoRepo struct {
	pedidos   map[uuid.UUID]*model.Pedido
	historial map[uuid.UUID][]model.HistorialPedido
}

func newStubPedidoRepo() *stubPedidoRepo {
	return &stubPedidoRepo{
		pedidos:   make(map[uuid.UUID]*model.Pedido),
		historial: make(map[uuid.UUID][]model.HistorialPedido),
	}
}

func (r *stubPedidoRepo) Create(_ context.Context, _ *gorm.DB, p *model.Pedido) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for i := range p.Detalles {
		if p.Detalles[i].ID == uuid.Nil {
			p.Detalles[i].ID = uuid.New()
		}
		p.Detalles[i].PedidoID = p.ID
	}
	cp := *p
	cp.Detalles = append([]model.DetallePedido(nil), p.Detalles...)
	r.pedidos[p.ID] = &cp
	return nil
}

func (r *stubPedidoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Pedido, error) {
	p, ok := r.pedidos[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *p
	cp.Detalles = append([]model.DetallePedido(nil), p.Detalles...)
	return &cp, nil
}

func (r *stubPedidoRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Pedido, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubPedidoRepo) List(_ context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error) {
	var out []model.Pedido
	for _, p := range r.pedidos {
		if filter.Estado != "" && p.Estado != filter.Estado {
			continue
		}
		if filter.Cliente != "" && p.ClienteID.String() != filter.Cliente {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubPedidoRepo) CreateDetalleTx(_ *gorm.DB, d *model.DetallePedido) error {
	p, ok := r.pedidos[d.PedidoID]
	if !ok {
		return errors.New("not found")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	p.Detalles = append(p.Detalles, *d)
	return nil
}

func (r *stubPedidoRepo) UpdateTotalesTx(_ *gorm.DB, id uuid.UUID, subtotal, descuento, total decimal.Decimal) error {
	p, ok := r.pedidos[id]
	if !ok {
		return errors.New("not found")
	}
	p.Subtotal = subtotal
	p.Descuento = descuento
	p.Total = total
	return nil
}

func (r *stubPedidoRepo) UpdateEstadoTx(_ *gorm.DB, id uuid.UUID, desde, hacia string) error {
	p, ok := r.pedidos[id]
	if !ok {
		return errors.New("not found")
	}
	// Misma guardia condicional que el repositorio real.
	if p.Estado != desde {
		return apierror.InvalidTransition("el pedido ya no está en estado %s", desde)
	}
	p.Estado = hacia
	return nil
}

func (r *stubPedidoRepo) CreateHistorialTx(_ *gorm.DB, h *model.HistorialPedido) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	r.historial[h.PedidoID] = append(r.historial[h.PedidoID], *h)
	return nil
}

func (r *stubPedidoRepo) ListHistorial(_ context.Context, pedidoID uuid.UUID) ([]model.HistorialPedido, error) {
	return r.historial[pedidoID], nil
}

func (r *stubPedidoRepo) DB() *gorm.DB { return nil }

var _ repository.PedidoRepository = (*stubPedidoRepo)(nil)

// ── Prestamos ─────────────────────────────────────────────────────────────────

type stubPrestamoRepo struct {
	prestamos map[uuid.UUID]*model.Prestamo
}

func newStubPrestamoRepo() *stubPrestamoRepo {
	return &stubPrestamoRepo{prestamos: make(map[uuid.UUID]*model.Prestamo)}
}

func (r *stubPrestamoRepo) Create(_ context.Context, _ *gorm.DB, p *model.Prestamo) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.prestamos[p.ID] = &cp
	return nil
}

func (r *stubPrestamoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Prestamo, error) {
	p, ok := r.prestamos[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *p
	return &cp, nil
}

func (r *stubPrestamoRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Prestamo, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubPrestamoRepo) ResolverTx(_ *gorm.DB, p *model.Prestamo, estado string, resueltoPor uuid.UUID, nota *string) error {
	stored, ok := r.prestamos[p.ID]
	if !ok {
		return errors.New("not found")
	}
	// Guardia condicional: la fila almacenada manda, no el snapshot recibido.
	if stored.Estado != model.PrestamoPendiente {
		return apierror.InvalidState("el préstamo ya fue resuelto")
	}
	ahora := time.Now()
	stored.Estado = estado
	stored.ResueltoPorID = &resueltoPor
	stored.ResueltoEn = &ahora
	if nota != nil {
		stored.Nota = nota
	}
	p.Estado = estado
	p.ResueltoPorID = &resueltoPor
	p.ResueltoEn = &ahora
	if nota != nil {
		p.Nota = nota
	}
	return nil
}

func (r *stubPrestamoRepo) List(_ context.Context, filter dto.PrestamoFilter) ([]model.Prestamo, int64, error) {
	var out []model.Prestamo
	for _, p := range r.prestamos {
		if filter.Estado != "" && p.Estado != filter.Estado {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubPrestamoRepo) DB() *gorm.DB { return nil }

var _ repository.PrestamoRepository = (*stubPrestamoRepo)(nil)

// ── Facturas ──────────────────────────────────────────────────────────────────

type stubFacturaRepo struct {
	facturas map[uuid.UUID]*model.Factura
	seq      int
}

func newStubFacturaRepo() *stubFacturaRepo {
	return &stubFacturaRepo{facturas: make(map[uuid.UUID]*model.Factura)}
}

func (r *stubFacturaRepo) Create(_ context.Context, _ *gorm.DB, f *model.Factura) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	for i := range f.Detalles {
		if f.Detalles[i].ID == uuid.Nil {
			f.Detalles[i].ID = uuid.New()
		}
		f.Detalles[i].FacturaID = f.ID
	}
	cp := *f
	cp.Detalles = append([]model.DetalleFactura(nil), f.Detalles...)
	r.facturas[f.ID] = &cp
	return nil
}

func (r *stubFacturaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Factura, error) {
	f, ok := r.facturas[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *f
	return &cp, nil
}

func (r *stubFacturaRepo) FindByPedidoID(_ context.Context, pedidoID uuid.UUID) (*model.Factura, error) {
	for _, f := range r.facturas {
		if f.PedidoID != nil && *f.PedidoID == pedidoID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *stubFacturaRepo) NextNumero(_ context.Context, _ *gorm.DB) (int, error) {
	r.seq++
	return r.seq, nil
}

func (r *stubFacturaRepo) List(_ context.Context, _ dto.FacturaFilter) ([]model.Factura, int64, error) {
	var out []model.Factura
	for _, f := range r.facturas {
		out = append(out, *f)
	}
	return out, int64(len(out)), nil
}

func (r *stubFacturaRepo) ListByCliente(_ context.Context, clienteID uuid.UUID, _ dto.FacturaFilter) ([]model.Factura, int64, error) {
	var out []model.Factura
	for _, f := range r.facturas {
		if f.ClienteID == clienteID {
			out = append(out, *f)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubFacturaRepo) Update(_ context.Context, f *model.Factura) error {
	cp := *f
	r.facturas[f.ID] = &cp
	return nil
}

func (r *stubFacturaRepo) ListPendientesDocumento(_ context.Context, now time.Time, limit int) ([]model.Factura, error) {
	var out []model.Factura
	for _, f := range r.facturas {
		if len(out) >= limit {
			break
		}
		if f.DocumentoEstado == model.DocumentoGenerado {
			continue
		}
		if f.NextRetryAt != nil && f.NextRetryAt.After(now) {
			continue
		}
		out = append(out, *f)
	}
	return out, nil
}

func (r *stubFacturaRepo) DB() *gorm.DB { return nil }

var _ repository.FacturaRepository = (*stubFacturaRepo)(nil)

// ── Droguerias ────────────────────────────────────────────────────────────────

type stubDrogueriaRepo struct {
	droguerias map[uuid.UUID]*model.Drogueria
}

func newStubDrogueriaRepo() *stubDrogueriaRepo {
	return &stubDrogueriaRepo{droguerias: make(map[uuid.UUID]*model.Drogueria)}
}

func (r *stubDrogueriaRepo) Create(_ context.Context, d *model.Drogueria) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.droguerias[d.ID] = d
	return nil
}

func (r *stubDrogueriaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Drogueria, error) {
	d, ok := r.droguerias[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *d
	return &cp, nil
}

func (r *stubDrogueriaRepo) FindByCodigo(_ context.Context, codigo string) (*model.Drogueria, error) {
	for _, d := range r.droguerias {
		if d.Codigo == codigo {
			cp := *d
			return &cp, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *stubDrogueriaRepo) List(_ context.Context, _ dto.DrogueriaFilter) ([]model.Drogueria, int64, error) {
	var out []model.Drogueria
	for _, d := range r.droguerias {
		out = append(out, *d)
	}
	return out, int64(len(out)), nil
}

func (r *stubDrogueriaRepo) ListByPropietario(_ context.Context, propietarioID uuid.UUID) ([]model.Drogueria, error) {
	var out []model.Drogueria
	for _, d := range r.droguerias {
		if d.PropietarioID != nil && *d.PropietarioID == propietarioID && d.Activo {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *stubDrogueriaRepo) Update(_ context.Context, d *model.Drogueria) error {
	r.droguerias[d.ID] = d
	return nil
}

func (r *stubDrogueriaRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if d, ok := r.droguerias[id]; ok {
		d.Activo = false
	}
	return nil
}

var _ repository.DrogueriaRepository = (*stubDrogueriaRepo)(nil)

// ── Seed helpers ──────────────────────────────────────────────────────────────

func seedDrogueria(repo *stubDrogueriaRepo, codigo, nombre string, propietarioID *uuid.UUID) *model.Drogueria {
	d := &model.Drogueria{
		ID:            uuid.New(),
		Codigo:        codigo,
		Nombre:        nombre,
		PropietarioID: propietarioID,
		Activo:        true,
	}
	repo.droguerias[d.ID] = d
	return d
}

func seedMedicamento(repo *stubMedicamentoRepo, drogueriaID uuid.UUID, nombre, codigoBarra string, precio float64, stock, minimo int) *model.Medicamento {
	m := &model.Medicamento{
		ID:          uuid.New(),
		DrogueriaID: drogueriaID,
		CodigoBarra: codigoBarra,
		Nombre:      nombre,
		PrecioVenta: decimal.NewFromFloat(precio),
		StockActual: stock,
		StockMinimo: minimo,
		Activo:      true,
	}
	repo.meds[m.ID] = m
	return m
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("uuid inválido %q: %v", s, err)
	}
	return id
}

func adminActor() Actor {
	return Actor{ID: uuid.New(), Username: "admin@farmanet.com", Rol: model.RolAdmin}
}

func empleadoActor() Actor {
	return Actor{ID: uuid.New(), Username: "empleado", Rol: model.RolEmpleado}
}

func clienteActor() Actor {
	return Actor{ID: uuid.New(), Username: "cliente", Rol: model.RolCliente}
}
