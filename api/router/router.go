package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"autoblog/api/handlers"
	"autoblog/api/middleware"
	_ "autoblog/docs"
	"autoblog/flash"
	"autoblog/metrics"
	"autoblog/services"
	"autoblog/web"
)

// Deps are the process-wide singletons the routes close over.
type Deps struct {
	Posts  *services.PostService
	Flash  *flash.Store
	Health map[string]handlers.Pinger
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace(), middleware.RequestMetrics())
	r.SetHTMLTemplate(web.Templates())

	// Health check
	r.GET("/health", handlers.HealthHandler(d.Posts, d.Health))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// pages
	r.GET("/", handlers.IndexPage(d.Posts, d.Flash))
	r.POST("/", handlers.SubmitPost(d.Posts, d.Flash))
	r.POST("/import", handlers.ImportPost(d.Posts, d.Flash))
	r.POST("/import/feed", handlers.ImportFeedPosts(d.Posts, d.Flash))
	r.GET("/result/:id", handlers.ResultPage(d.Posts, d.Flash))
	r.GET("/blogs", handlers.AllBlogsPage(d.Posts, d.Flash))
	r.POST("/delete/:id", handlers.DeletePost(d.Posts, d.Flash))
	r.NoRoute(handlers.NotFound(d.Flash))

	// v1 routes
	api := r.Group("/api/v1")
	{
		api.GET("/posts", handlers.ListPostsHandler(d.Posts))
		api.POST("/posts", handlers.CreatePostHandler(d.Posts))
		api.GET("/posts/:id", handlers.GetPostHandler(d.Posts))
		api.DELETE("/posts/:id", handlers.DeletePostHandler(d.Posts))
	}

	return r
}

// WithCORS wraps h so browsers on the given origins may call the JSON API.
// With no origins h is returned unchanged.
func WithCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return h
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID},
	}).Handler(h)
}
