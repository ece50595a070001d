package game

import (
	"fmt"

	"github.com/wfunc/color-party/internal/errors"
	"go.uber.org/zap"
)

// Phase 游戏阶段
type Phase string

const (
	PhaseShowingSequence Phase = "showing_sequence" // 展示序列（序列模式）
	PhaseShowingColor    Phase = "showing_color"    // 展示目标颜色（反应模式）
	PhasePlayerInput     Phase = "player_input"     // 等待玩家输入
	PhaseRoundResult     Phase = "round_result"     // 回合结算
	PhaseFinished        Phase = "finished"         // 游戏结束
)

// 阶段事件
const (
	EventInputOpen = "input_open" // 开放输入
	EventRoundDone = "round_done" // 回合结束
	EventNextRound = "next_round" // 进入下一回合
	EventGameOver  = "game_over"  // 游戏结束
)

// PhaseTransition 阶段转换定义
type PhaseTransition struct {
	From  Phase
	Event string
	To    Phase
}

// PhaseMachine 回合阶段状态机
// 由所在房间的锁串行访问，内部不再加锁
type PhaseMachine struct {
	current     Phase
	roomCode    string
	transitions map[string]PhaseTransition
	logger      *zap.Logger

	// 阶段变更回调
	onChange func(from, to Phase)
}

// NewPhaseMachine 创建阶段状态机
func NewPhaseMachine(roomCode string, initial Phase, transitions []PhaseTransition, logger *zap.Logger) *PhaseMachine {
	pm := &PhaseMachine{
		current:     initial,
		roomCode:    roomCode,
		transitions: make(map[string]PhaseTransition),
		logger:      logger,
	}

	for _, t := range transitions {
		pm.transitions[transitionKey(t.From, t.Event)] = t
	}

	return pm
}

// transitionKey 生成转换键
func transitionKey(phase Phase, event string) string {
	return fmt.Sprintf("%s:%s", phase, event)
}

// sequenceTransitions 序列模式的阶段转换表
func sequenceTransitions() []PhaseTransition {
	return []PhaseTransition{
		{From: PhaseShowingSequence, Event: EventInputOpen, To: PhasePlayerInput},
		{From: PhasePlayerInput, Event: EventRoundDone, To: PhaseRoundResult},
		{From: PhaseRoundResult, Event: EventNextRound, To: PhaseShowingSequence},
		{From: PhaseRoundResult, Event: EventGameOver, To: PhaseFinished},
	}
}

// reactionTransitions 反应模式的阶段转换表
// 反应模式没有独立的输入阶段，展示目标颜色即开始计时
func reactionTransitions() []PhaseTransition {
	return []PhaseTransition{
		{From: PhaseShowingColor, Event: EventRoundDone, To: PhaseRoundResult},
		{From: PhaseRoundResult, Event: EventNextRound, To: PhaseShowingColor},
		{From: PhaseRoundResult, Event: EventGameOver, To: PhaseFinished},
	}
}

// Trigger 触发阶段事件
func (pm *PhaseMachine) Trigger(event string) error {
	transition, exists := pm.transitions[transitionKey(pm.current, event)]
	if !exists {
		return errors.Newf(errors.ErrPhaseError, "无效的阶段转换: 阶段=%s, 事件=%s", pm.current, event)
	}

	oldPhase := pm.current
	pm.current = transition.To

	if pm.onChange != nil {
		pm.onChange(oldPhase, pm.current)
	}

	pm.logger.Debug("阶段转换",
		zap.String("room_code", pm.roomCode),
		zap.String("from", string(oldPhase)),
		zap.String("to", string(pm.current)),
		zap.String("event", event))

	return nil
}

// Current 获取当前阶段
func (pm *PhaseMachine) Current() Phase {
	return pm.current
}

// CanTrigger 检查事件是否可触发
func (pm *PhaseMachine) CanTrigger(event string) bool {
	_, exists := pm.transitions[transitionKey(pm.current, event)]
	return exists
}

// OnChange 设置阶段变更回调
func (pm *PhaseMachine) OnChange(fn func(from, to Phase)) {
	pm.onChange = fn
}
