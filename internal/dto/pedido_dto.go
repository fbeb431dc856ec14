package dto

import "github.com/shopspring/decimal"

type CrearPedidoRequest struct {
	ClienteID        *string                `json:"cliente_id" validate:"omitempty,uuid"`
	MetodoPago       string                 `json:"metodo_pago" validate:"required,oneof=efectivo tarjeta transferencia"`
	DireccionEntrega *string                `json:"direccion_entrega"`
	TelefonoContacto *string                `json:"telefono_contacto"`
	Notas            *string                `json:"notas"`
	Descuento        decimal.Decimal        `json:"descuento" validate:"min=0"`
	Detalles         []DetallePedidoRequest `json:"detalles" validate:"required,min=1,dive"`
}

type DetallePedidoRequest struct {
	MedicamentoID string `json:"medicamento_id" validate:"required,uuid"`
	Cantidad      int    `json:"cantidad"       validate:"required,gt=0"`
}

type AgregarDetalleRequest struct {
	MedicamentoID string `json:"medicamento_id" validate:"required,uuid"`
	Cantidad      int    `json:"cantidad"       validate:"required,gt=0"`
}

type CambiarEstadoRequest struct {
	Estado     string  `json:"estado" validate:"required,oneof=pendiente procesado entregado cancelado"`
	Comentario *string `json:"comentario"`
}

type PedidoFilter struct {
	Estado  string `form:"estado" validate:"omitempty,oneof=pendiente procesado entregado cancelado"`
	Cliente string `form:"cliente"`
	Desde   string `form:"desde" validate:"omitempty,datetime=2006-01-02"`
	Hasta   string `form:"hasta" validate:"omitempty,datetime=2006-01-02"`
	Page    int    `form:"page,default=1"   validate:"min=1"`
	Limit   int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type DetallePedidoResponse struct {
	ID             string          `json:"id"`
	MedicamentoID  string          `json:"medicamento_id"`
	Medicamento    string          `json:"medicamento"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PedidoResponse struct {
	ID               string                  `json:"id"`
	ClienteID        string                  `json:"cliente_id"`
	Estado           string                  `json:"estado"`
	MetodoPago       string                  `json:"metodo_pago"`
	DireccionEntrega *string                 `json:"direccion_entrega,omitempty"`
	TelefonoContacto *string                 `json:"telefono_contacto,omitempty"`
	Notas            *string                 `json:"notas,omitempty"`
	Subtotal         decimal.Decimal         `json:"subtotal"`
	Descuento        decimal.Decimal         `json:"descuento"`
	Total            decimal.Decimal         `json:"total"`
	Detalles         []DetallePedidoResponse `json:"detalles"`
	CreatedAt        string                  `json:"created_at"`
}

type PedidoListResponse struct {
	Data  []PedidoResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

type HistorialPedidoResponse struct {
	ID             string  `json:"id"`
	EstadoAnterior string  `json:"estado_anterior"`
	EstadoNuevo    string  `json:"estado_nuevo"`
	Comentario     *string `json:"comentario,omitempty"`
	UsuarioID      *string `json:"usuario_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}
