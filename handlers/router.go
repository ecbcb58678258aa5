package handlers

import (
	"cluster-dashboard-go/logging"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every API route onto a gin engine
func NewRouter(h *APIHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.GinLogger(h.Logger))

	api := router.Group("/api")
	{
		// View state
		api.GET("/view", h.GetState)
		api.POST("/view", h.UpdateView)

		// Clustering runs
		api.POST("/clusters/official/refresh", h.RefreshOfficial)
		api.POST("/clusters/playground/run", h.RunPlayground)
		api.POST("/clusters/pairwise/run", h.RunPairwise)

		// Current datasets
		api.GET("/clusters/:mode", h.GetCurrent)
		api.GET("/clusters/:mode/export", h.ExportCurrent)

		// Classification
		api.GET("/classify", h.Classify)
		api.GET("/rules", h.GetRules)
		api.GET("/features", h.GetFeatures)
		api.GET("/municipalities/upland", h.GetUplandMunicipalities)

		api.GET("/ping", PingHandler)
	}
	return router
}
