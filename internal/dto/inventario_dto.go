package dto

type AjusteStockRequest struct {
	MedicamentoID string  `json:"medicamento_id" validate:"required,uuid"`
	Cantidad      int     `json:"cantidad" validate:"required"` // signed: positivo entra, negativo sale
	Motivo        *string `json:"motivo"`
}

type MovimientoFilter struct {
	MedicamentoID string `form:"medicamento_id" validate:"omitempty,uuid"`
	Motivo        string `form:"motivo"`
	Desde         string `form:"desde" validate:"omitempty,datetime=2006-01-02"`
	Hasta         string `form:"hasta" validate:"omitempty,datetime=2006-01-02"`
	Page          int    `form:"page,default=1"    validate:"min=1"`
	Limit         int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type MovimientoResponse struct {
	ID            string  `json:"id"`
	MedicamentoID string  `json:"medicamento_id"`
	Cantidad      int     `json:"cantidad"`
	StockAnterior int     `json:"stock_anterior"`
	StockNuevo    int     `json:"stock_nuevo"`
	Motivo        string  `json:"motivo"`
	ReferenciaID  *string `json:"referencia_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type MovimientoListResponse struct {
	Data  []MovimientoResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// AlertaMedicamento is one row inside a stock or expiry alert listing.
type AlertaMedicamento struct {
	ID               string  `json:"id"`
	Nombre           string  `json:"nombre"`
	Drogueria        string  `json:"drogueria"`
	StockActual      int     `json:"stock_actual"`
	StockMinimo      int     `json:"stock_minimo"`
	FechaVencimiento *string `json:"fecha_vencimiento,omitempty"`
}

// AlertasResponse is the recomputed alert snapshot for the caller's branches.
type AlertasResponse struct {
	StockBajo          []AlertaMedicamento `json:"stock_bajo"`
	ProximoVencimiento []AlertaMedicamento `json:"proximo_vencimiento"`
	VencidosCount      int64               `json:"vencidos_count"`
	GeneradoEn         string              `json:"generado_en"`
}
