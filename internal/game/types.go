package game

import "time"

// Mode 游戏模式
type Mode string

const (
	ModeSequence Mode = "sequence" // 序列记忆模式
	ModeReaction Mode = "reaction" // 颜色反应模式
)

// Color 颜色值
type Color string

// 四种颜色符号
const (
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorYellow Color = "yellow"
)

// Colors 全部颜色集合
var Colors = []Color{ColorRed, ColorGreen, ColorBlue, ColorYellow}

// Valid 判断颜色是否合法
func (c Color) Valid() bool {
	switch c {
	case ColorRed, ColorGreen, ColorBlue, ColorYellow:
		return true
	}
	return false
}

// PlayerStatus 玩家游戏内状态
type PlayerStatus string

const (
	StatusPlaying    PlayerStatus = "playing"    // 游戏中
	StatusEliminated PlayerStatus = "eliminated" // 已淘汰
	StatusSpectating PlayerStatus = "spectating" // 观战中
)

// EliminationReason 淘汰原因
type EliminationReason string

const (
	ReasonWrongColor EliminationReason = "wrong_color" // 答错颜色
	ReasonTimeout    EliminationReason = "timeout"     // 回合超时
)

// PlayerAnswer 玩家提交的答案（临时数据，回合结算后丢弃）
// ReceivedAt 为服务端收到时刻，用于同分裁决，不信任客户端时间
type PlayerAnswer struct {
	PlayerID   string
	Value      Color
	ReceivedAt time.Time
}

// Elimination 单次淘汰记录
type Elimination struct {
	PlayerID string
	Reason   EliminationReason
	Round    int
}

// InputResult 序列输入的处理结果
type InputResult struct {
	Accepted   bool              // 输入被接受
	Completed  bool              // 该玩家本回合已完成
	Eliminated bool              // 该玩家因此被淘汰
	Reason     EliminationReason // 淘汰原因（Eliminated时有效）
	Index      int               // 被接受的位置
}

// RoundOutcome 回合结算结果
type RoundOutcome struct {
	Round       int           // 结算的回合号
	Eliminated  []Elimination // 本次结算产生的淘汰
	Finished    bool          // 游戏是否结束
	WinnerID    string        // 胜者（Finished时有效，可能为空）
	NextRound   int           // 下一回合号（未结束时有效）
	RoundWinner string        // 本回合胜者（反应模式）
}

// Game 游戏状态通用接口，所有实现都由所在房间的锁串行访问
type Game interface {
	Mode() Mode
	Phase() Phase
	Round() int
	Finished() bool
	WinnerID() string
	RemovePlayer(playerID string)
	ActiveCount() int
}
