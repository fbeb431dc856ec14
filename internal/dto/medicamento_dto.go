package dto

import "github.com/shopspring/decimal"

type CrearMedicamentoRequest struct {
	DrogueriaID      string          `json:"drogueria_id" validate:"required,uuid"`
	CategoriaID      *string         `json:"categoria_id" validate:"omitempty,uuid"`
	CodigoBarra      string          `json:"codigo_barra" validate:"required"`
	Nombre           string          `json:"nombre"       validate:"required"`
	Descripcion      *string         `json:"descripcion"`
	Proveedor        *string         `json:"proveedor"`
	Lote             *string         `json:"lote"`
	PrecioCompra     decimal.Decimal `json:"precio_compra" validate:"min=0"`
	PrecioVenta      decimal.Decimal `json:"precio_venta"  validate:"required,gt=0"`
	StockActual      int             `json:"stock_actual"  validate:"min=0"`
	StockMinimo      int             `json:"stock_minimo"  validate:"min=0"`
	FechaVencimiento *string         `json:"fecha_vencimiento" validate:"omitempty,datetime=2006-01-02"`
}

type ActualizarMedicamentoRequest struct {
	CategoriaID      *string          `json:"categoria_id" validate:"omitempty,uuid"`
	Nombre           string           `json:"nombre"`
	Descripcion      *string          `json:"descripcion"`
	Proveedor        *string          `json:"proveedor"`
	Lote             *string          `json:"lote"`
	PrecioCompra     *decimal.Decimal `json:"precio_compra" validate:"omitempty,min=0"`
	PrecioVenta      *decimal.Decimal `json:"precio_venta"  validate:"omitempty,gt=0"`
	StockMinimo      *int             `json:"stock_minimo"  validate:"omitempty,min=0"`
	FechaVencimiento *string          `json:"fecha_vencimiento" validate:"omitempty,datetime=2006-01-02"`
}

type MedicamentoFilter struct {
	Nombre      string `form:"nombre"`
	CodigoBarra string `form:"codigo_barra"`
	Categoria   string `form:"categoria"`
	Drogueria   string `form:"drogueria"`
	Estado      string `form:"estado"` // "false" = inactivos, "all" = todos, default activos
	StockBajo   string `form:"stock_bajo"`
	Page        int    `form:"page,default=1"   validate:"min=1"`
	Limit       int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type MedicamentoResponse struct {
	ID               string          `json:"id"`
	DrogueriaID      string          `json:"drogueria_id"`
	CategoriaID      *string         `json:"categoria_id,omitempty"`
	Categoria        *string         `json:"categoria,omitempty"`
	CodigoBarra      string          `json:"codigo_barra"`
	Nombre           string          `json:"nombre"`
	Descripcion      *string         `json:"descripcion,omitempty"`
	Proveedor        *string         `json:"proveedor,omitempty"`
	Lote             *string         `json:"lote,omitempty"`
	PrecioCompra     decimal.Decimal `json:"precio_compra"`
	PrecioVenta      decimal.Decimal `json:"precio_venta"`
	StockActual      int             `json:"stock_actual"`
	StockMinimo      int             `json:"stock_minimo"`
	FechaVencimiento *string         `json:"fecha_vencimiento,omitempty"`
	Activo           bool            `json:"activo"`
}

type MedicamentoListResponse struct {
	Data  []MedicamentoResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// ConsultaPrecioResponse is the public, cacheable price lookup payload.
type ConsultaPrecioResponse struct {
	Nombre          string          `json:"nombre"`
	PrecioVenta     decimal.Decimal `json:"precio_venta"`
	StockDisponible int             `json:"stock_disponible"`
	Drogueria       string          `json:"drogueria"`
}

type CrearCategoriaRequest struct {
	Nombre      string  `json:"nombre" validate:"required,max=100"`
	Descripcion *string `json:"descripcion"`
}

type CategoriaResponse struct {
	ID          string  `json:"id"`
	Nombre      string  `json:"nombre"`
	Descripcion *string `json:"descripcion,omitempty"`
	Activo      bool    `json:"activo"`
}
