package dto

type CrearDrogueriaRequest struct {
	Codigo    string  `json:"codigo" validate:"required,max=30"`
	Nombre    string  `json:"nombre" validate:"required,max=150"`
	Direccion *string `json:"direccion"`
	Ciudad    *string `json:"ciudad"`
	Telefono  *string `json:"telefono"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Horarios  *string `json:"horarios"`
	// PropietarioID optional: non-admin creators become owners automatically.
	PropietarioID *string `json:"propietario_id" validate:"omitempty,uuid"`
}

type ActualizarDrogueriaRequest struct {
	Nombre    string  `json:"nombre"`
	Direccion *string `json:"direccion"`
	Ciudad    *string `json:"ciudad"`
	Telefono  *string `json:"telefono"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Horarios  *string `json:"horarios"`
}

type DrogueriaFilter struct {
	Search string `form:"search"`
	Activa string `form:"activa"` // "true" | "false" | "" (all)
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type SetActivaRequest struct {
	DrogueriaID string `json:"drogueria_id" validate:"required,uuid"`
}

type DrogueriaResponse struct {
	ID            string  `json:"id"`
	Codigo        string  `json:"codigo"`
	Nombre        string  `json:"nombre"`
	Direccion     *string `json:"direccion,omitempty"`
	Ciudad        *string `json:"ciudad,omitempty"`
	Telefono      *string `json:"telefono,omitempty"`
	Email         *string `json:"email,omitempty"`
	Horarios      *string `json:"horarios,omitempty"`
	PropietarioID *string `json:"propietario_id,omitempty"`
	Activo        bool    `json:"activo"`
	CreatedAt     string  `json:"created_at"`
}

type DrogueriaListResponse struct {
	Data  []DrogueriaResponse `json:"data"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}
