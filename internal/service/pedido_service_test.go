package service

import (
	"context"
	"testing"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalePedidoSnapshotRepo devuelve siempre el mismo snapshot desde FindByID,
// simulando una lectura hecha antes de que otra transición comiteara. Las
// operaciones dentro de la tx (promovidas del stub embebido) ven la fila real.
type stalePedidoSnapshotRepo struct {
	*stubPedidoRepo
	snapshot model.Pedido
}

func (r *stalePedidoSnapshotRepo) FindByID(_ context.Context, _ uuid.UUID) (*model.Pedido, error) {
	cp := r.snapshot
	cp.Detalles = append([]model.DetallePedido(nil), r.snapshot.Detalles...)
	return &cp, nil
}

func buildPedidoSvc() (PedidoService, *stubPedidoRepo, *stubMedicamentoRepo, *stubMovimientoRepo, *stubFacturaRepo) {
	pedidoRepo := newStubPedidoRepo()
	medRepo := newStubMedicamentoRepo()
	movRepo := &stubMovimientoRepo{}
	facturaRepo := newStubFacturaRepo()
	facturaSvc := NewFacturaService(facturaRepo, medRepo, movRepo, nil)
	svc := NewPedidoService(pedidoRepo, medRepo, movRepo, facturaSvc)
	return svc, pedidoRepo, medRepo, movRepo, facturaRepo
}

func TestCrearPedido_ReservaStockYCongelaTotales(t *testing.T) {
	svc, _, medRepo, movRepo, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	ibu := seedMedicamento(medRepo, d.ID, "Ibuprofeno 400mg", "779100000001", 150.50, 20, 5)
	amox := seedMedicamento(medRepo, d.ID, "Amoxicilina 500mg", "779100000002", 320, 10, 3)

	cliente := clienteActor()
	resp, err := svc.Crear(context.Background(), cliente, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Descuento:  decimal.NewFromInt(100),
		Detalles: []dto.DetallePedidoRequest{
			{MedicamentoID: ibu.ID.String(), Cantidad: 3},
			{MedicamentoID: amox.ID.String(), Cantidad: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.PedidoPendiente, resp.Estado)
	assert.Equal(t, cliente.ID.String(), resp.ClienteID)
	// subtotal = 3*150.50 + 2*320 = 1091.50
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromFloat(1091.50)), "subtotal %s", resp.Subtotal)
	assert.True(t, resp.Total.Equal(decimal.NewFromFloat(991.50)), "total %s", resp.Total)
	assert.Len(t, resp.Detalles, 2)

	// El stock queda reservado en el acto.
	assert.Equal(t, 17, medRepo.meds[ibu.ID].StockActual)
	assert.Equal(t, 8, medRepo.meds[amox.ID].StockActual)

	reservas := movRepo.porMotivo(model.MovReservaPedido)
	require.Len(t, reservas, 2)
	assert.Equal(t, -3, reservas[0].Cantidad)
	assert.Equal(t, 20, reservas[0].StockAnterior)
	assert.Equal(t, 17, reservas[0].StockNuevo)
}

func TestCrearPedido_StockInsuficiente(t *testing.T) {
	svc, _, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 2, 5)

	_, err := svc.Crear(context.Background(), clienteActor(), dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 5}},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInsufficientStock))
	// El stock no se toca cuando la reserva falla.
	assert.Equal(t, 2, medRepo.meds[m.ID].StockActual)
}

func TestCrearPedido_DescuentoMayorQueSubtotal(t *testing.T) {
	svc, _, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 10, 5)

	_, err := svc.Crear(context.Background(), clienteActor(), dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Descuento:  decimal.NewFromInt(1000),
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 1}},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestCrearPedido_ClienteNoPuedeCrearParaOtro(t *testing.T) {
	svc, _, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 10, 5)

	otro := clienteActor()
	otroID := otro.ID.String()
	_, err := svc.Crear(context.Background(), clienteActor(), dto.CrearPedidoRequest{
		ClienteID:  &otroID,
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 1}},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindPermission))
}

func TestAgregarDetalle_SoloPendiente(t *testing.T) {
	svc, _, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 1}},
	})
	require.NoError(t, err)

	pid := mustUUID(t, resp.ID)
	resp, err = svc.AgregarDetalle(context.Background(), empleado, pid, dto.AgregarDetalleRequest{
		MedicamentoID: m.ID.String(),
		Cantidad:      2,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Detalles, 2)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(240)))
	assert.Equal(t, 17, medRepo.meds[m.ID].StockActual)

	// Pasado a procesado, el pedido queda cerrado a nuevas lineas.
	_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoProcesado})
	require.NoError(t, err)
	_, err = svc.AgregarDetalle(context.Background(), empleado, pid, dto.AgregarDetalleRequest{
		MedicamentoID: m.ID.String(),
		Cantidad:      1,
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidState))
}

func TestCambiarEstado_TransicionInvalida(t *testing.T) {
	svc, _, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 1}},
	})
	require.NoError(t, err)
	pid := mustUUID(t, resp.ID)

	// pendiente → entregado no existe: hay que pasar por procesado.
	_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoEntregado})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidTransition))
}

func TestCambiarEstado_EstadosTerminalesCerrados(t *testing.T) {
	svc, _, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 1}},
	})
	require.NoError(t, err)
	pid := mustUUID(t, resp.ID)

	_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoCancelado})
	require.NoError(t, err)

	for _, hacia := range []string{model.PedidoPendiente, model.PedidoProcesado, model.PedidoEntregado} {
		_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: hacia})
		require.Error(t, err, "cancelado → %s debería rechazarse", hacia)
		assert.True(t, apierror.IsKind(err, apierror.KindInvalidTransition))
	}
}

func TestCambiarEstado_CancelarRestauraStock(t *testing.T) {
	svc, _, medRepo, movRepo, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, 13, medRepo.meds[m.ID].StockActual)

	pid := mustUUID(t, resp.ID)
	resp, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoCancelado})
	require.NoError(t, err)
	assert.Equal(t, model.PedidoCancelado, resp.Estado)
	assert.Equal(t, 20, medRepo.meds[m.ID].StockActual)

	restores := movRepo.porMotivo(model.MovRestoreCancelado)
	require.Len(t, restores, 1)
	assert.Equal(t, 7, restores[0].Cantidad)
	assert.Equal(t, 13, restores[0].StockAnterior)
	assert.Equal(t, 20, restores[0].StockNuevo)
}

func TestCambiarEstado_EntregadoGeneraFactura(t *testing.T) {
	svc, _, medRepo, _, facturaRepo := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoTarjeta,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 2}},
	})
	require.NoError(t, err)
	pid := mustUUID(t, resp.ID)

	_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoProcesado})
	require.NoError(t, err)
	_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoEntregado})
	require.NoError(t, err)

	factura, err := facturaRepo.FindByPedidoID(context.Background(), pid)
	require.NoError(t, err, "la entrega debe generar la factura")
	assert.True(t, factura.Total.Equal(decimal.NewFromInt(160)))
	assert.Equal(t, model.PagoTarjeta, factura.MetodoPago)
	assert.Equal(t, model.DocumentoPendiente, factura.DocumentoEstado)
	require.Len(t, factura.Detalles, 1)
	assert.Equal(t, 2, factura.Detalles[0].Cantidad)
}

func TestCambiarEstado_ClienteSoloCancelaPropioPendiente(t *testing.T) {
	svc, _, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	cliente := clienteActor()
	resp, err := svc.Crear(context.Background(), cliente, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 1}},
	})
	require.NoError(t, err)
	pid := mustUUID(t, resp.ID)

	// El cliente no puede avanzar el flujo, solo cancelar.
	_, err = svc.CambiarEstado(context.Background(), cliente, pid, dto.CambiarEstadoRequest{Estado: model.PedidoProcesado})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindPermission))

	// Otro cliente no puede tocar el pedido.
	_, err = svc.CambiarEstado(context.Background(), clienteActor(), pid, dto.CambiarEstadoRequest{Estado: model.PedidoCancelado})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindPermission))

	resp, err = svc.CambiarEstado(context.Background(), cliente, pid, dto.CambiarEstadoRequest{Estado: model.PedidoCancelado})
	require.NoError(t, err)
	assert.Equal(t, model.PedidoCancelado, resp.Estado)
}

func TestListar_ClienteSoloVeLosPropios(t *testing.T) {
	svc, _, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 50, 5)

	clienteA := clienteActor()
	clienteB := clienteActor()
	for _, actor := range []Actor{clienteA, clienteA, clienteB} {
		_, err := svc.Crear(context.Background(), actor, dto.CrearPedidoRequest{
			MetodoPago: model.PagoEfectivo,
			Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 1}},
		})
		require.NoError(t, err)
	}

	lista, err := svc.Listar(context.Background(), clienteA, dto.PedidoFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, lista.Total)

	lista, err = svc.Listar(context.Background(), adminActor(), dto.PedidoFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, lista.Total)
}

func TestHistorial_RegistraCadaTransicion(t *testing.T) {
	svc, _, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 1}},
	})
	require.NoError(t, err)
	pid := mustUUID(t, resp.ID)

	comentario := "listo para retirar"
	_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoProcesado, Comentario: &comentario})
	require.NoError(t, err)
	_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoEntregado})
	require.NoError(t, err)

	historial, err := svc.Historial(context.Background(), empleado, pid)
	require.NoError(t, err)
	require.Len(t, historial, 2)
	assert.Equal(t, model.PedidoPendiente, historial[0].EstadoAnterior)
	assert.Equal(t, model.PedidoProcesado, historial[0].EstadoNuevo)
	require.NotNil(t, historial[0].Comentario)
	assert.Equal(t, comentario, *historial[0].Comentario)
	assert.Equal(t, model.PedidoProcesado, historial[1].EstadoAnterior)
	assert.Equal(t, model.PedidoEntregado, historial[1].EstadoNuevo)
}

func TestCambiarEstado_CancelacionConLecturaObsoleta(t *testing.T) {
	svc, pedidoRepo, medRepo, movRepo, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 50, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 10}},
	})
	require.NoError(t, err)
	pid := mustUUID(t, resp.ID)
	assert.Equal(t, 40, medRepo.meds[m.ID].StockActual)

	// Snapshot pendiente, como lo vería un segundo proceso antes del commit
	// de la primera cancelación.
	snapshot, err := pedidoRepo.FindByID(context.Background(), pid)
	require.NoError(t, err)
	staleSvc := NewPedidoService(
		&stalePedidoSnapshotRepo{stubPedidoRepo: pedidoRepo, snapshot: *snapshot},
		medRepo, movRepo, nil,
	)

	_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoCancelado})
	require.NoError(t, err)
	assert.Equal(t, 50, medRepo.meds[m.ID].StockActual)

	// La segunda cancelación pasa el chequeo previo con su lectura vieja,
	// pero la guardia condicional la rechaza sin volver a reponer stock.
	_, err = staleSvc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoCancelado})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidTransition))
	assert.Equal(t, 50, medRepo.meds[m.ID].StockActual, "el stock se repone exactamente una vez")

	restores := movRepo.porMotivo(model.MovRestoreCancelado)
	assert.Len(t, restores, 1)
	historial, err := svc.Historial(context.Background(), empleado, pid)
	require.NoError(t, err)
	assert.Len(t, historial, 1, "una transición lógica, un asiento de historial")
}

func TestAgregarDetalle_EstadoReleidoDentroDeLaTx(t *testing.T) {
	svc, pedidoRepo, medRepo, movRepo, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 2}},
	})
	require.NoError(t, err)
	pid := mustUUID(t, resp.ID)

	snapshot, err := pedidoRepo.FindByID(context.Background(), pid)
	require.NoError(t, err)
	staleSvc := NewPedidoService(
		&stalePedidoSnapshotRepo{stubPedidoRepo: pedidoRepo, snapshot: *snapshot},
		medRepo, movRepo, nil,
	)

	_, err = svc.CambiarEstado(context.Background(), empleado, pid, dto.CambiarEstadoRequest{Estado: model.PedidoCancelado})
	require.NoError(t, err)
	stockTrasCancelar := medRepo.meds[m.ID].StockActual

	// El snapshot viejo dice pendiente; la relectura dentro de la tx ve el
	// pedido cancelado y no reserva nada.
	_, err = staleSvc.AgregarDetalle(context.Background(), empleado, pid, dto.AgregarDetalleRequest{
		MedicamentoID: m.ID.String(),
		Cantidad:      3,
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidState))
	assert.Equal(t, stockTrasCancelar, medRepo.meds[m.ID].StockActual)
}

func TestAgregarDetalle_TotalesDerivanDeLasLineas(t *testing.T) {
	svc, pedidoRepo, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 2}},
	})
	require.NoError(t, err)
	pid := mustUUID(t, resp.ID)

	// Un subtotal almacenado corrupto no debe propagarse: los totales se
	// recalculan desde las lineas leidas dentro de la tx.
	pedidoRepo.pedidos[pid].Subtotal = decimal.NewFromInt(9999)

	resp, err = svc.AgregarDetalle(context.Background(), empleado, pid, dto.AgregarDetalleRequest{
		MedicamentoID: m.ID.String(),
		Cantidad:      1,
	})
	require.NoError(t, err)
	// 2*80 + 1*80 = 240, nunca 9999 + 80
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(240)), "subtotal %s", resp.Subtotal)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(240)))
}

func TestPedidoResponse_FechasEnUTC(t *testing.T) {
	svc, pedidoRepo, medRepo, _, _ := buildPedidoSvc()
	drogRepo := newStubDrogueriaRepo()
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Paracetamol", "779100000003", 80, 20, 5)

	empleado := empleadoActor()
	resp, err := svc.Crear(context.Background(), empleado, dto.CrearPedidoRequest{
		MetodoPago: model.PagoEfectivo,
		Detalles:   []dto.DetallePedidoRequest{{MedicamentoID: m.ID.String(), Cantidad: 1}},
	})
	require.NoError(t, err)
	pid := mustUUID(t, resp.ID)

	// Una hora con offset local se normaliza a UTC en la respuesta.
	buenosAires := time.FixedZone("-03", -3*3600)
	pedidoRepo.pedidos[pid].CreatedAt = time.Date(2026, 3, 1, 10, 30, 0, 0, buenosAires)

	resp, err = svc.Obtener(context.Background(), empleado, pid)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T13:30:00Z", resp.CreatedAt)
}
