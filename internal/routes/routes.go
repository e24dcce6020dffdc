package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/crestbank/crest_bank/internal/account"
	"github.com/crestbank/crest_bank/internal/banking"
	"github.com/crestbank/crest_bank/internal/config"
	"github.com/crestbank/crest_bank/internal/events"
	"github.com/crestbank/crest_bank/internal/fieldcrypt"
	"github.com/crestbank/crest_bank/internal/ledger"
	"github.com/crestbank/crest_bank/internal/middleware"
	"github.com/crestbank/crest_bank/internal/payee"
	"github.com/crestbank/crest_bank/internal/statement"
	"github.com/crestbank/crest_bank/internal/storage"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.DB == nil {
		return fmt.Errorf("database is required")
	}

	codec, err := fieldcrypt.New(d.Cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("build field codec: %w", err)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores and services
	db := storage.NewPostgres(d.DB, d.Cfg.LockTimeout)
	accounts := account.NewPostgresStore(d.DB, codec, account.NewNumberGenerator(nil))
	log := ledger.NewPostgresLog(d.DB, codec)
	payees := payee.NewPostgresDirectory(d.DB)
	refs := ledger.NewReferenceGenerator(nil, nil)

	var publisher events.Publisher = events.NewLogPublisher(d.Logger)
	if len(d.Cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(d.Cfg.KafkaBrokers, d.Cfg.KafkaTopic)
	}

	engine := banking.NewService(db, accounts, log, payees, refs, publisher, d.Logger)
	statements := statement.NewBuilder(log)

	accountHandler := account.NewHandler(accounts)
	bankingHandler := banking.NewHandler(engine, log)
	statementHandler := statement.NewHandler(statements)
	payeeHandler := payee.NewHandler(payees)

	// API routes
	api := app.Group("/api/v1")
	RegisterAccountRoutes(api, accountHandler, bankingHandler, statementHandler)
	RegisterTransactionRoutes(api, bankingHandler)
	RegisterPayeeRoutes(api, payeeHandler)

	return nil
}
