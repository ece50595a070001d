package game

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DeadlineFunc 回合截止回调
// 回调携带武装时的回合号，接收方必须校验回合号仍然有效：
// 回合已推进时该回调是空操作，这是截止触发与迟到答案互斥的保证
type DeadlineFunc func(roomCode string, round int)

// RoundCoordinator 回合协调器
// 每个房间一个实例：缓冲当前回合的玩家答案，持有唯一的截止定时器。
// 定时器必须可取消（回合提前完成或房间删除时），避免泄漏
type RoundCoordinator struct {
	mu       sync.Mutex
	roomCode string
	round    int // 当前武装的回合号，0表示未武装
	timer    *time.Timer
	answers  []PlayerAnswer
	answered map[string]bool
	deadline DeadlineFunc
	logger   *zap.Logger
}

// NewRoundCoordinator 创建回合协调器
func NewRoundCoordinator(roomCode string, deadline DeadlineFunc, logger *zap.Logger) *RoundCoordinator {
	return &RoundCoordinator{
		roomCode: roomCode,
		answered: make(map[string]bool),
		deadline: deadline,
		logger:   logger,
	}
}

// ArmDeadline 为指定回合武装截止定时器，并清空上一回合的答案缓冲
func (c *RoundCoordinator) ArmDeadline(round int, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}

	c.round = round
	c.answers = c.answers[:0]
	c.answered = make(map[string]bool)

	c.timer = time.AfterFunc(d, func() {
		c.deadline(c.roomCode, round)
	})

	c.logger.Debug("武装回合截止定时器",
		zap.String("room_code", c.roomCode),
		zap.Int("round", round),
		zap.Duration("deadline", d))
}

// Cancel 取消当前定时器（回合提前完成或房间删除时调用）
func (c *RoundCoordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.round = 0
}

// RecordAnswer 记录一条玩家答案
// 回合号不匹配的过期答案、同一玩家的重复答案都被丢弃，返回false
func (c *RoundCoordinator) RecordAnswer(round int, ans PlayerAnswer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if round != c.round {
		c.logger.Debug("丢弃过期答案",
			zap.String("room_code", c.roomCode),
			zap.String("player_id", ans.PlayerID),
			zap.Int("answer_round", round),
			zap.Int("current_round", c.round))
		return false
	}

	if c.answered[ans.PlayerID] {
		return false
	}

	c.answered[ans.PlayerID] = true
	c.answers = append(c.answers, ans)
	return true
}

// AllAnswered 判断是否所有需要作答的玩家都已提交
func (c *RoundCoordinator) AllAnswered(round int, active int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if round != c.round {
		return false
	}
	return active > 0 && len(c.answers) >= active
}

// DrainAnswers 取出指定回合的全部答案并清空缓冲
// 答案在回合结算时消费一次，之后丢弃
func (c *RoundCoordinator) DrainAnswers(round int) []PlayerAnswer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if round != c.round {
		return nil
	}

	drained := append([]PlayerAnswer(nil), c.answers...)
	c.answers = c.answers[:0]
	c.answered = make(map[string]bool)
	return drained
}

// CurrentRound 返回当前武装的回合号
func (c *RoundCoordinator) CurrentRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}
