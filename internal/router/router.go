package router

import (
	"time"

	"farmanet/internal/config"
	"farmanet/internal/handler"
	"farmanet/internal/infra"
	"farmanet/internal/middleware"
	"farmanet/internal/repository"
	"farmanet/internal/service"
	"farmanet/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	drogueriaRepo := repository.NewDrogueriaRepository(db)
	categoriaRepo := repository.NewCategoriaRepository(db)
	medicamentoRepo := repository.NewMedicamentoRepository(db)
	pedidoRepo := repository.NewPedidoRepository(db)
	prestamoRepo := repository.NewPrestamoRepository(db)
	facturaRepo := repository.NewFacturaRepository(db)
	movimientoRepo := repository.NewMovimientoRepository(db)

	// Worker dispatcher: injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	drogueriaSvc := service.NewDrogueriaService(drogueriaRepo, usuarioRepo)
	medicamentoSvc := service.NewMedicamentoService(medicamentoRepo, categoriaRepo, drogueriaRepo)
	facturaSvc := service.NewFacturaService(facturaRepo, medicamentoRepo, movimientoRepo, dispatcher)
	pedidoSvc := service.NewPedidoService(pedidoRepo, medicamentoRepo, movimientoRepo, facturaSvc)
	prestamoSvc := service.NewPrestamoService(prestamoRepo, medicamentoRepo, movimientoRepo, drogueriaRepo)
	inventarioSvc := service.NewInventarioService(medicamentoRepo, movimientoRepo, drogueriaRepo, cfg.AlertaVencimientoDias)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	drogueriasH := handler.NewDrogueriasHandler(drogueriaSvc)
	medicamentosH := handler.NewMedicamentosHandler(medicamentoSvc, rdb)
	pedidosH := handler.NewPedidosHandler(pedidoSvc)
	prestamosH := handler.NewPrestamosHandler(prestamoSvc)
	facturacionH := handler.NewFacturacionHandler(facturaSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Consulta de precio: sin autenticacion, sin efectos
	r.GET("/v1/public/droguerias/:drogueria/precio/:codigo", medicamentosH.ConsultarPrecio)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	staff := middleware.RequireRole("admin", "empleado")
	todos := middleware.RequireRole("admin", "empleado", "cliente")

	v1 := r.Group("/v1", jwtMW)
	{
		// Droguerías: lectura para todo el personal, escritura admin/dueño
		v1.GET("/droguerias", staff, drogueriasH.Listar)
		v1.GET("/droguerias/mias", staff, drogueriasH.Mias)
		v1.GET("/droguerias/activa", middleware.RequireRole("admin"), drogueriasH.GetActiva)
		v1.PUT("/droguerias/activa", middleware.RequireRole("admin"), drogueriasH.SetActiva)
		v1.GET("/droguerias/:id", staff, drogueriasH.Obtener)
		v1.POST("/droguerias", staff, drogueriasH.Crear)
		v1.PUT("/droguerias/:id", staff, drogueriasH.Actualizar)
		v1.DELETE("/droguerias/:id", staff, drogueriasH.Desactivar)

		// Medicamentos: catalogo visible para todos los autenticados
		v1.GET("/medicamentos", todos, medicamentosH.Listar)
		v1.GET("/medicamentos/:id", todos, medicamentosH.Obtener)
		meds := v1.Group("/medicamentos", staff)
		{
			meds.POST("", medicamentosH.Crear)
			meds.PUT("/:id", medicamentosH.Actualizar)
			meds.DELETE("/:id", medicamentosH.Desactivar)
		}

		// Categorías
		v1.GET("/categorias", todos, medicamentosH.ListarCategorias)
		v1.POST("/categorias", staff, medicamentosH.CrearCategoria)

		// Pedidos: los clientes crean y consultan los propios
		ped := v1.Group("/pedidos", todos)
		{
			ped.POST("", pedidosH.Crear)
			ped.GET("", pedidosH.Listar)
			ped.GET("/:id", pedidosH.Obtener)
			ped.POST("/:id/detalles", pedidosH.AgregarDetalle)
			ped.PATCH("/:id/estado", pedidosH.CambiarEstado)
			ped.GET("/:id/historial", pedidosH.Historial)
		}

		// Préstamos entre droguerías: solo personal
		prest := v1.Group("/prestamos", staff)
		{
			prest.POST("", prestamosH.Solicitar)
			prest.GET("", prestamosH.Listar)
			prest.GET("/:id", prestamosH.Obtener)
			prest.POST("/:id/aceptar", prestamosH.Aceptar)
			prest.POST("/:id/rechazar", prestamosH.Rechazar)
		}

		// Facturación: los clientes solo leen las propias
		v1.POST("/facturas", staff, facturacionH.RegistrarManual)
		v1.GET("/facturas", todos, facturacionH.Listar)
		v1.GET("/facturas/:id", todos, facturacionH.Obtener)
		v1.GET("/facturas/:id/pdf", todos, facturacionH.DescargarPDF)
		v1.POST("/facturas/:id/email", staff, facturacionH.EnviarPorEmail)

		// Inventario
		inv := v1.Group("/inventario", staff)
		{
			inv.GET("/alertas", inventarioH.Alertas)
			inv.GET("/movimientos", inventarioH.Movimientos)
			inv.POST("/ajustes", inventarioH.AjustarStock)
		}

		// Usuarios: solo admin
		usuarios := v1.Group("/usuarios", middleware.RequireRole("admin"))
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
		}
	}

	// Swagger UI: only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
