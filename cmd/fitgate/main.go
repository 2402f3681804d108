package main

import (
	"context"
	"log/slog"
	"os"

	"fitgate/config"
	"fitgate/internal/delivery"
	"fitgate/internal/delivery/http"
	"fitgate/internal/delivery/http/middleware"
	"fitgate/internal/delivery/http/router/handler"
	"fitgate/internal/infra/auth"
	"fitgate/internal/infra/auth/google"
	"fitgate/internal/infra/cache"
	logs "fitgate/internal/infra/log"
	"fitgate/internal/infra/persistence/postgres"
	"fitgate/internal/infra/qrcode"
	"fitgate/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
		postgres.NewTransactionManager,
		cache.NewRedisClient,
		cache.NewRedisLeaseStore,
		cache.NewRedisTicketStore,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewJWTIssuer,
			auth.NewTestAccountVerifier,
			google.NewOAuthClient,
			google.NewCodeVerifier,
			google.NewFitnessTokenClient,
			qrcode.NewQRCodeService,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
			impl.NewCredentialService,
			impl.NewHandoffService,
			impl.NewDirectoryService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewFitnessHandler,
			handler.NewHandoffHandler,
			handler.NewInternalHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
