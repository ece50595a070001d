package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/color-party/internal/errors"
	"github.com/wfunc/color-party/internal/service"
	ws "github.com/wfunc/color-party/internal/websocket"
	"go.uber.org/zap"
)

// RoomHandler 房间查询处理器
type RoomHandler struct {
	services *service.Services
	hub      *ws.Hub
	logger   *zap.Logger
}

// NewRoomHandler 创建房间查询处理器
func NewRoomHandler(services *service.Services, hub *ws.Hub, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{
		services: services,
		hub:      hub,
		logger:   logger,
	}
}

// GetRoomCount 查询房间总数和连接数
func (h *RoomHandler) GetRoomCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"room_count":   h.services.Registry.RoomCount(),
		"client_count": h.hub.ClientCount(),
	})
}

// GetRoom 按房间号查询房间信息
func (h *RoomHandler) GetRoom(c *gin.Context) {
	code := c.Param("code")

	summary, err := h.services.Registry.GetRoom(code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// respondError 按错误码返回HTTP错误响应
func (h *RoomHandler) respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	c.JSON(appErr.HTTPStatus(), gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}
