package room

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// PresenceSupervisor 在线状态监督器
// 断线不立即移除玩家，而是启动宽限期定时器：
// 宽限期内重连则取消，过期则走与主动离开相同的移除路径
type PresenceSupervisor struct {
	mu     sync.Mutex
	timers map[string]*time.Timer // key: roomCode + "/" + playerID
	grace  time.Duration
	logger *zap.Logger

	// 宽限期过期回调，由服务层注入
	onExpire func(roomCode, playerID string)
}

// NewPresenceSupervisor 创建在线状态监督器
func NewPresenceSupervisor(grace time.Duration, onExpire func(roomCode, playerID string), logger *zap.Logger) *PresenceSupervisor {
	return &PresenceSupervisor{
		timers:   make(map[string]*time.Timer),
		grace:    grace,
		onExpire: onExpire,
		logger:   logger,
	}
}

// graceKey 生成定时器键
func graceKey(roomCode, playerID string) string {
	return roomCode + "/" + playerID
}

// StartGrace 为断线玩家启动宽限期定时器
func (s *PresenceSupervisor) StartGrace(roomCode, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := graceKey(roomCode, playerID)

	// 同一玩家重复断线时重置定时器
	if timer, exists := s.timers[key]; exists {
		timer.Stop()
	}

	s.timers[key] = time.AfterFunc(s.grace, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()

		s.logger.Info("断线宽限期已过",
			zap.String("room_code", roomCode),
			zap.String("player_id", playerID))

		s.onExpire(roomCode, playerID)
	})

	s.logger.Debug("启动断线宽限期",
		zap.String("room_code", roomCode),
		zap.String("player_id", playerID),
		zap.Duration("grace", s.grace))
}

// CancelGrace 取消宽限期定时器（玩家重连或被移除时）
// 返回是否存在待取消的定时器
func (s *PresenceSupervisor) CancelGrace(roomCode, playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := graceKey(roomCode, playerID)
	timer, exists := s.timers[key]
	if !exists {
		return false
	}

	timer.Stop()
	delete(s.timers, key)
	return true
}

// CancelRoom 取消房间内所有宽限期定时器（房间删除时）
func (s *PresenceSupervisor) CancelRoom(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := roomCode + "/"
	for key, timer := range s.timers {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			timer.Stop()
			delete(s.timers, key)
		}
	}
}

// Stop 停止全部定时器
func (s *PresenceSupervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}
