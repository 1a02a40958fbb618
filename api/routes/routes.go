package routes

import (
	"github.com/gin-gonic/gin"

	"docrewriter/api/handlers"
	"docrewriter/api/middleware"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	// 全局中间件
	r.Use(middleware.CORS())

	// API 版本组
	v1 := r.Group("/api/v1")

	// 健康检查
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 文档重写路由组
	docs := v1.Group("/documents")
	{
		docs.POST("/rewrite", h.Document.RewriteDocument)
		docs.POST("/batch", h.Document.RewriteBatch)
		docs.GET("/status/:taskId", h.Document.GetStatus)
		docs.GET("/result/:taskId", h.Document.GetResult)
		docs.GET("/download/:taskId", h.Document.DownloadArtifact)
		docs.DELETE("/task/:taskId", h.Document.CancelTask)
	}
}
