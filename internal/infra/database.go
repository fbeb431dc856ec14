package infra

import (
	"fmt"

	"farmanet/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that
// AutoMigrate cannot express (sequences, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates the schema. Also used by integration tests
// against a disposable container database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Drogueria{},
		&model.Categoria{},
		&model.Medicamento{},
		&model.Pedido{},
		&model.DetallePedido{},
		&model.HistorialPedido{},
		&model.Factura{},
		&model.DetalleFactura{},
		&model.Prestamo{},
		&model.MovimientoInventario{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM cannot express. Safe to
// re-run on an already-patched database.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// numeracion atomica de facturas
		`CREATE SEQUENCE IF NOT EXISTS facturas_numero_seq`,
		// indice parcial para el cron de reintentos de documentos
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_facturas_documento_retry') THEN
		    CREATE INDEX idx_facturas_documento_retry
		        ON facturas (next_retry_at)
		        WHERE documento_estado IN ('pendiente', 'error');
		  END IF;
		END $$`,
		// una sucursal no repite codigo de barras entre medicamentos activos
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_medicamentos_drogueria_codigo') THEN
		    CREATE UNIQUE INDEX idx_medicamentos_drogueria_codigo
		        ON medicamentos (drogueria_id, codigo_barra)
		        WHERE activo = true;
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("schema patch: %w", err)
		}
	}
	return nil
}
