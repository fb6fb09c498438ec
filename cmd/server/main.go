package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/guardware"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("accounts"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	logger := lgr.GetLogger("app")

	cfg, err := accounts.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := setupDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to set up database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := accounts.NewRepositoryManager(db, accounts.WithAccountsLogger(lgr.GetLogger("repo")))
	repo.MustValidate()

	provider := accounts.NewAccountProvider(repo.Accounts()).
		WithLogger(lgr.GetLogger("provider"))

	auther := accounts.NewAuthenticator(provider, cfg).
		WithLogger(lgr.GetLogger("auther"))

	engine := django.New("./templates", ".html")
	mailer := accounts.NewLogDispatcher(engine, lgr.GetLogger("mailer"))

	issuer := accounts.NewConfirmationIssuer(cfg.ConfirmationTokenTTL)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			AppName:       "accounts",
		}))
	})

	guard := guardware.New(guardware.Config{
		Logger:         lgr.GetLogger("guard"),
		TokenValidator: tokenValidatorAdapter{auther.TokenService()},
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
		AuthScheme:     cfg.GetAuthScheme(),
		IdentityResolver: func(ctx context.Context, claims guardware.AuthClaims) (any, error) {
			return provider.FindIdentityByID(ctx, claims.UserID())
		},
		ContextEnricher: func(c context.Context, claims guardware.AuthClaims) context.Context {
			if ac, ok := claims.(accounts.AuthClaims); ok {
				return accounts.WithClaimsContext(c, ac)
			}
			return c
		},
	})

	app := srv.Router().Group("/")

	accounts.RegisterAccountRoutes(app, guard,
		accounts.WithControllerLogger(lgr.GetLogger("http")),
		accounts.WithControllerRepo(repo),
		accounts.WithControllerAuther(auther),
		accounts.WithControllerMailer(mailer),
		accounts.WithControllerIssuer(issuer),
		accounts.WithControllerFrontendURL(cfg.FrontendURL),
	)

	accounts.RegisterCarRoutes(app, guard,
		accounts.NewCarController(repo, lgr.GetLogger("cars")),
	)

	logger.Info("listening", "addr", cfg.HTTPAddr)

	srv.Serve(cfg.HTTPAddr)

	WaitExitSignal()
}

// tokenValidatorAdapter bridges accounts.TokenService to
// guardware.TokenValidator, whose Validate returns the guard's mirrored
// AuthClaims interface.
type tokenValidatorAdapter struct {
	ts accounts.TokenService
}

func (a tokenValidatorAdapter) Validate(tokenString string) (guardware.AuthClaims, error) {
	claims, err := a.ts.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func setupDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*accounts.Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, err
	}

	if _, err := db.NewCreateTable().
		Model((*accounts.Car)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
