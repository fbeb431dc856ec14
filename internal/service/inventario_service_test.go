package service

import (
	"context"
	"testing"
	"time"

	"farmanet/internal/apierror"
	"farmanet/internal/dto"
	"farmanet/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildInventarioSvc(vencimientoDias int) (InventarioService, *stubMedicamentoRepo, *stubMovimientoRepo, *stubDrogueriaRepo) {
	medRepo := newStubMedicamentoRepo()
	movRepo := &stubMovimientoRepo{}
	drogRepo := newStubDrogueriaRepo()
	svc := NewInventarioService(medRepo, movRepo, drogRepo, vencimientoDias)
	return svc, medRepo, movRepo, drogRepo
}

func fechaEnDias(dias int) *time.Time {
	t := time.Now().AddDate(0, 0, dias)
	return &t
}

func TestObtenerAlertas_UmbralesYVentana(t *testing.T) {
	svc, medRepo, _, drogRepo := buildInventarioSvc(7)
	d := seedDrogueria(drogRepo, "D001", "Central", nil)

	bajo := seedMedicamento(medRepo, d.ID, "Ibuprofeno 400mg", "779100000001", 150, 3, 5)
	seedMedicamento(medRepo, d.ID, "Amoxicilina 500mg", "779100000002", 320, 50, 5)
	porVencer := seedMedicamento(medRepo, d.ID, "Insulina", "779100000003", 900, 20, 5)
	porVencer.FechaVencimiento = fechaEnDias(3)
	lejano := seedMedicamento(medRepo, d.ID, "Aspirina", "779100000004", 60, 20, 5)
	lejano.FechaVencimiento = fechaEnDias(60)
	vencido := seedMedicamento(medRepo, d.ID, "Jarabe", "779100000005", 120, 20, 5)
	vencido.FechaVencimiento = fechaEnDias(-2)

	resp, err := svc.ObtenerAlertas(context.Background(), adminActor())
	require.NoError(t, err)

	require.Len(t, resp.StockBajo, 1)
	assert.Equal(t, bajo.ID.String(), resp.StockBajo[0].ID)

	require.Len(t, resp.ProximoVencimiento, 1)
	assert.Equal(t, porVencer.ID.String(), resp.ProximoVencimiento[0].ID)

	assert.EqualValues(t, 1, resp.VencidosCount)
	assert.NotEmpty(t, resp.GeneradoEn)
}

func TestObtenerAlertas_LimiteExactoDeStock(t *testing.T) {
	svc, medRepo, _, drogRepo := buildInventarioSvc(7)
	d := seedDrogueria(drogRepo, "D001", "Central", nil)

	// stock == minimo también dispara la alerta.
	justo := seedMedicamento(medRepo, d.ID, "Ibuprofeno 400mg", "779100000001", 150, 5, 5)

	resp, err := svc.ObtenerAlertas(context.Background(), adminActor())
	require.NoError(t, err)
	require.Len(t, resp.StockBajo, 1)
	assert.Equal(t, justo.ID.String(), resp.StockBajo[0].ID)
}

func TestObtenerAlertas_AlcancePorPropietario(t *testing.T) {
	svc, medRepo, _, drogRepo := buildInventarioSvc(7)
	duenio := empleadoActor()
	propia := seedDrogueria(drogRepo, "D001", "Central", &duenio.ID)
	ajena := seedDrogueria(drogRepo, "D002", "Sucursal Norte", nil)

	mia := seedMedicamento(medRepo, propia.ID, "Ibuprofeno 400mg", "779100000001", 150, 2, 5)
	seedMedicamento(medRepo, ajena.ID, "Amoxicilina 500mg", "779100000002", 320, 1, 5)

	resp, err := svc.ObtenerAlertas(context.Background(), duenio)
	require.NoError(t, err)
	require.Len(t, resp.StockBajo, 1, "el propietario solo ve sus sucursales")
	assert.Equal(t, mia.ID.String(), resp.StockBajo[0].ID)

	// El admin ve el inventario completo.
	resp, err = svc.ObtenerAlertas(context.Background(), adminActor())
	require.NoError(t, err)
	assert.Len(t, resp.StockBajo, 2)
}

func TestObtenerAlertas_ClienteProhibido(t *testing.T) {
	svc, _, _, _ := buildInventarioSvc(7)
	_, err := svc.ObtenerAlertas(context.Background(), clienteActor())
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindPermission))
}

func TestAjustarStock_PositivoYNegativo(t *testing.T) {
	svc, medRepo, movRepo, drogRepo := buildInventarioSvc(7)
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Ibuprofeno 400mg", "779100000001", 150, 10, 5)

	empleado := empleadoActor()
	require.NoError(t, svc.AjustarStock(context.Background(), empleado, dto.AjusteStockRequest{
		MedicamentoID: m.ID.String(),
		Cantidad:      5,
	}))
	assert.Equal(t, 15, medRepo.meds[m.ID].StockActual)

	require.NoError(t, svc.AjustarStock(context.Background(), empleado, dto.AjusteStockRequest{
		MedicamentoID: m.ID.String(),
		Cantidad:      -3,
	}))
	assert.Equal(t, 12, medRepo.meds[m.ID].StockActual)

	ajustes := movRepo.porMotivo(model.MovAjusteManual)
	require.Len(t, ajustes, 2)
	assert.Equal(t, 5, ajustes[0].Cantidad)
	assert.Equal(t, -3, ajustes[1].Cantidad)
}

func TestAjustarStock_NegativoConGuardia(t *testing.T) {
	svc, medRepo, _, drogRepo := buildInventarioSvc(7)
	d := seedDrogueria(drogRepo, "D001", "Central", nil)
	m := seedMedicamento(medRepo, d.ID, "Ibuprofeno 400mg", "779100000001", 150, 4, 5)

	err := svc.AjustarStock(context.Background(), empleadoActor(), dto.AjusteStockRequest{
		MedicamentoID: m.ID.String(),
		Cantidad:      -10,
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInsufficientStock))
	assert.Equal(t, 4, medRepo.meds[m.ID].StockActual)
}

func TestAjustarStock_CantidadCero(t *testing.T) {
	svc, _, _, _ := buildInventarioSvc(7)
	err := svc.AjustarStock(context.Background(), adminActor(), dto.AjusteStockRequest{
		MedicamentoID: "00000000-0000-0000-0000-000000000001",
		Cantidad:      0,
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestAjustarStock_SoloPersonal(t *testing.T) {
	svc, _, _, _ := buildInventarioSvc(7)
	err := svc.AjustarStock(context.Background(), clienteActor(), dto.AjusteStockRequest{
		MedicamentoID: "00000000-0000-0000-0000-000000000001",
		Cantidad:      1,
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindPermission))
}
