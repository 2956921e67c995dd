//go:build wireinject
// +build wireinject

package di

import (
	"RegimeAPI/internal/usecase"
	"RegimeAPI/pkg/config"
	"RegimeAPI/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProviderSet,
		ProvideRateLimiter,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeRegimeUseCase wires the regime pipeline without the HTTP layer, for the CLI.
func InitializeRegimeUseCase(cfg *config.Config) (*usecase.RegimeUseCase, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
