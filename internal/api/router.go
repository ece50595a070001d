package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/wfunc/color-party/internal/service"
	ws "github.com/wfunc/color-party/internal/websocket"
	"go.uber.org/zap"
)

// Router API路由器
type Router struct {
	engine      *gin.Engine
	services    *service.Services
	roomHandler *RoomHandler
	wsHandler   *WebSocketHandler
	log         *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(services *service.Services, hub *ws.Hub, log *zap.Logger) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
	}))

	router := &Router{
		engine:      engine,
		services:    services,
		roomHandler: NewRoomHandler(services, hub, log),
		wsHandler:   NewWebSocketHandler(hub, log),
		log:         log,
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// WebSocket连接
	r.engine.GET("/ws", r.wsHandler.GameWebSocket)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		rooms := v1.Group("/rooms")
		{
			rooms.GET("/count", r.roomHandler.GetRoomCount)
			rooms.GET("/:code", r.roomHandler.GetRoom)
		}
	}
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "color-party",
	})
}

// Engine 获取Gin引擎
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
