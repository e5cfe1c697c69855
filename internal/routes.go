package internal

import (
	"aprsd/internal/controllers"
	"aprsd/internal/providers"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/channels", http.HandlerFunc(apiController.GetChannels))
	routers.Post("/channels/restart", http.HandlerFunc(apiController.RestartChannel))
	routers.Get("/stations", http.HandlerFunc(apiController.SearchStations))
	routers.Get("/station", http.HandlerFunc(apiController.GetStation))
	routers.Get("/messages", http.HandlerFunc(apiController.GetMessages))
	routers.Get("/objects", http.HandlerFunc(apiController.ListObjects))
	routers.Post("/objects", http.HandlerFunc(apiController.AddObject))
	routers.Post("/objects/delete", http.HandlerFunc(apiController.DeleteObject))
	return routers
}
