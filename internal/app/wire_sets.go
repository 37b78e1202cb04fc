//go:build wireinject
// +build wireinject

package app

import "github.com/google/wire"

var CoreInfraSet = wire.NewSet(
	NewLogger,
	NewConfig,
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
)

var RuntimeSet = wire.NewSet(
	NewStateStore,
	NewPathGuard,
	NewExecutor,
	NewCatalog,
	NewInitialVisibility,
	NewHub,
	NewConfigWatcher,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	RuntimeSet,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
