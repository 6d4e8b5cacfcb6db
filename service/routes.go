package service

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(handlers *Handlers) *gin.Engine {
	routes := gin.New()
	routes.Use(gin.Recovery())
	routes.Use(handlers.LogRequest)

	routes.GET("/health", Health)

	routes.GET("/books", handlers.FindBooks)
	routes.PATCH("/books/:title/price", handlers.UpdatePrice)
	routes.DELETE("/books/:title", handlers.DeleteBook)

	stats := routes.Group("/stats")
	{
		stats.GET("", handlers.Summary)
		stats.GET("/genres", handlers.AveragePriceByGenre)
		stats.GET("/authors", handlers.TopAuthors)
		stats.GET("/decades", handlers.CountByDecade)
	}

	routes.POST("/indexes", handlers.CreateIndex)
	routes.GET("/indexes", handlers.ListIndexes)
	routes.GET("/explain", handlers.Explain)

	return routes
}
