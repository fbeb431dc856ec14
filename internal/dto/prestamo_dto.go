package dto

type SolicitarPrestamoRequest struct {
	OrigenID      string  `json:"origen_id"      validate:"required,uuid"`
	DestinoID     string  `json:"destino_id"     validate:"required,uuid"`
	MedicamentoID string  `json:"medicamento_id" validate:"required,uuid"`
	Cantidad      int     `json:"cantidad"       validate:"required,gt=0"`
	Nota          *string `json:"nota"`
}

type ResolverPrestamoRequest struct {
	Nota *string `json:"nota"`
}

type PrestamoFilter struct {
	Estado    string `form:"estado" validate:"omitempty,oneof=pendiente aceptado rechazado"`
	Drogueria string `form:"drogueria"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type PrestamoResponse struct {
	ID            string  `json:"id"`
	OrigenID      string  `json:"origen_id"`
	Origen        string  `json:"origen"`
	DestinoID     string  `json:"destino_id"`
	Destino       string  `json:"destino"`
	MedicamentoID string  `json:"medicamento_id"`
	Medicamento   string  `json:"medicamento"`
	SolicitanteID string  `json:"solicitante_id"`
	Cantidad      int     `json:"cantidad"`
	Estado        string  `json:"estado"`
	Nota          *string `json:"nota,omitempty"`
	ResueltoPorID *string `json:"resuelto_por_id,omitempty"`
	ResueltoEn    *string `json:"resuelto_en,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type PrestamoListResponse struct {
	Data  []PrestamoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
