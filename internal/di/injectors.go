//go:build wireinject
// +build wireinject

package di

import (
	"aprsd/internal"
	"aprsd/internal/channel"
	"aprsd/internal/controllers"
	"aprsd/internal/dupcheck"
	"aprsd/internal/history"
	"aprsd/internal/providers"
	"aprsd/internal/services"
	"aprsd/internal/stationdb"
	"aprsd/internal/stationdb/interfaces"
	"aprsd/internal/structures"
	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewPacketLogProvider,

		dupcheck.NewChecker,
		channel.NewManager,
		wire.Bind(new(channel.ManagerInterface), new(*channel.Manager)),

		history.NewHistory,
		history.AsHistory,
		services.NewMessageProcessor,
		wire.Bind(new(interfaces.MessageProcessorInterface), new(*services.MessageProcessor)),
		wire.Bind(new(services.MessageProcessorInterface), new(*services.MessageProcessor)),
		services.NewOwnObjects,
		wire.Bind(new(interfaces.OwnObjectsInterface), new(*services.OwnObjects)),

		stationdb.NewZstdCompressor,
		stationdb.NewFileManager,
		stationdb.NewStore,
		wire.Bind(new(stationdb.StoreInterface), new(*stationdb.Store)),
		stationdb.NewScheduler,
		services.NewStationUpdater,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
