package service

import (
	"github.com/wfunc/color-party/internal/config"
	"github.com/wfunc/color-party/internal/room"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Registry *room.Registry
	Game     *GameService
}

// NewServices 创建服务集合
func NewServices(cfg *config.Config, broadcast Broadcaster, logger *zap.Logger) *Services {
	registry := room.NewRegistry(cfg.Room, logger)

	return &Services{
		Registry: registry,
		Game:     NewGameService(registry, cfg, broadcast, logger),
	}
}

// Stop 停止全部服务
func (s *Services) Stop() {
	s.Game.Stop()
}
