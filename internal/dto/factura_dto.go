package dto

import "github.com/shopspring/decimal"

type CrearFacturaRequest struct {
	ClienteID  string                  `json:"cliente_id" validate:"required,uuid"`
	MetodoPago string                  `json:"metodo_pago" validate:"required,oneof=efectivo tarjeta transferencia"`
	Detalles   []DetalleFacturaRequest `json:"detalles" validate:"required,min=1,dive"`
}

type DetalleFacturaRequest struct {
	MedicamentoID string `json:"medicamento_id" validate:"required,uuid"`
	Cantidad      int    `json:"cantidad"       validate:"required,gt=0"`
}

type EnviarFacturaRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type FacturaFilter struct {
	Cliente string `form:"cliente"`
	Desde   string `form:"desde" validate:"omitempty,datetime=2006-01-02"`
	Hasta   string `form:"hasta" validate:"omitempty,datetime=2006-01-02"`
	Page    int    `form:"page,default=1"   validate:"min=1"`
	Limit   int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type DetalleFacturaResponse struct {
	ID             string          `json:"id"`
	MedicamentoID  string          `json:"medicamento_id"`
	Medicamento    string          `json:"medicamento"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type FacturaResponse struct {
	ID              string                   `json:"id"`
	Numero          int                      `json:"numero"`
	PedidoID        *string                  `json:"pedido_id,omitempty"`
	ClienteID       string                   `json:"cliente_id"`
	EmpleadoID      *string                  `json:"empleado_id,omitempty"`
	MetodoPago      string                   `json:"metodo_pago"`
	Total           decimal.Decimal          `json:"total"`
	DocumentoEstado string                   `json:"documento_estado"`
	Detalles        []DetalleFacturaResponse `json:"detalles"`
	CreatedAt       string                   `json:"created_at"`
}

type FacturaListResponse struct {
	Data  []FacturaResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
