package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/color-party/internal/config"
	"github.com/wfunc/color-party/internal/errors"
	"github.com/wfunc/color-party/internal/game"
	"github.com/wfunc/color-party/internal/room"
	"go.uber.org/zap"
)

// recordedEvent 记录一次广播
type recordedEvent struct {
	RoomCode string
	Event    string
	Payload  interface{}
}

// fakeBroadcaster 记录广播事件的测试替身
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) SendToRoom(roomCode, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{RoomCode: roomCode, Event: event, Payload: payload})
}

// byType 返回指定类型的全部事件
func (b *fakeBroadcaster) byType(event string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	var matched []recordedEvent
	for _, e := range b.events {
		if e.Event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

// last 返回指定类型的最后一个事件
func (b *fakeBroadcaster) last(event string) (recordedEvent, bool) {
	matched := b.byType(event)
	if len(matched) == 0 {
		return recordedEvent{}, false
	}
	return matched[len(matched)-1], true
}

// GameServiceTestSuite 游戏服务测试套件
type GameServiceTestSuite struct {
	suite.Suite
	cfg       *config.Config
	broadcast *fakeBroadcaster
	svc       *GameService
}

func (suite *GameServiceTestSuite) SetupTest() {
	suite.cfg = &config.Config{
		Room: config.RoomConfig{
			CodeLength:      6,
			MaxPlayers:      4,
			MaxCodeAttempts: 10,
			GracePeriod:     30 * time.Second,
			IdleTimeout:     30 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Game: config.GameConfig{
			Sequence: config.SequenceConfig{
				InitialTimeout: time.Minute,
				TimeoutStep:    500 * time.Millisecond,
				MinTimeout:     3 * time.Second,
				ShowDuration:   0,
			},
			Reaction: config.ReactionConfig{
				TotalRounds:  3,
				RoundTimeout: time.Minute,
			},
		},
	}

	suite.broadcast = &fakeBroadcaster{}
	registry := room.NewRegistry(suite.cfg.Room, zap.NewNop())
	suite.svc = NewGameService(registry, suite.cfg, suite.broadcast, zap.NewNop())
	suite.svc.SetGenerator(game.NewGenerator(42))
}

func (suite *GameServiceTestSuite) TearDownTest() {
	suite.svc.Stop()
}

// setupRoom 创建房间并加入指定数量的来宾，返回房间号和全部玩家ID
func (suite *GameServiceTestSuite) setupRoom(guests int) (string, []string) {
	summary, host, err := suite.svc.CreateRoom(room.PlayerInfo{DisplayName: "主持人"})
	require.NoError(suite.T(), err)

	ids := []string{host.ID}
	for i := 0; i < guests; i++ {
		_, p, err := suite.svc.JoinRoom(summary.Code, room.PlayerInfo{DisplayName: "来宾"})
		require.NoError(suite.T(), err)
		ids = append(ids, p.ID)
	}
	return summary.Code, ids
}

// currentSequence 读取当前回合的序列
func (suite *GameServiceTestSuite) currentSequence(code string) []game.Color {
	var seq []game.Color
	err := suite.svc.Registry().WithRoom(code, func(rm *room.Room) error {
		seq = rm.Game.(*game.SequenceGame).Sequence()
		return nil
	})
	require.NoError(suite.T(), err)
	return seq
}

// currentTarget 读取当前回合的目标颜色
func (suite *GameServiceTestSuite) currentTarget(code string) game.Color {
	var target game.Color
	err := suite.svc.Registry().WithRoom(code, func(rm *room.Room) error {
		target = rm.Game.(*game.ReactionGame).CurrentTarget()
		return nil
	})
	require.NoError(suite.T(), err)
	return target
}

// TestGameService_JoinBroadcasts 测试加入房间广播事件
func (suite *GameServiceTestSuite) TestGameService_JoinBroadcasts() {
	code, _ := suite.setupRoom(1)

	joins := suite.broadcast.byType(EventPlayerJoined)
	assert.Len(suite.T(), joins, 1)
	assert.Equal(suite.T(), code, joins[0].RoomCode)
}

// TestGameService_StartGameHostOnly 测试仅房主可开始游戏
func (suite *GameServiceTestSuite) TestGameService_StartGameHostOnly() {
	code, ids := suite.setupRoom(1)

	err := suite.svc.StartGame(code, ids[1], game.ModeSequence)
	assert.True(suite.T(), errors.Is(err, errors.ErrNotHost))

	err = suite.svc.StartGame(code, ids[0], game.ModeSequence)
	assert.NoError(suite.T(), err)

	// 重复开始被拒绝
	err = suite.svc.StartGame(code, ids[0], game.ModeSequence)
	assert.True(suite.T(), errors.Is(err, errors.ErrGameAlreadyStarted))
}

// TestGameService_StartGameInvalidMode 测试非法模式
func (suite *GameServiceTestSuite) TestGameService_StartGameInvalidMode() {
	code, ids := suite.setupRoom(1)

	err := suite.svc.StartGame(code, ids[0], game.Mode("poker"))
	assert.True(suite.T(), errors.Is(err, errors.ErrInvalidGameMode))
}

// TestGameService_SequenceRoundStartEvent 测试序列回合开始广播
func (suite *GameServiceTestSuite) TestGameService_SequenceRoundStartEvent() {
	code, ids := suite.setupRoom(1)
	require.NoError(suite.T(), suite.svc.StartGame(code, ids[0], game.ModeSequence))

	start, ok := suite.broadcast.last(EventRoundStart)
	require.True(suite.T(), ok)
	payload := start.Payload.(RoundStartEvent)
	assert.Equal(suite.T(), game.ModeSequence, payload.Mode)
	assert.Equal(suite.T(), 1, payload.Round)
	assert.Len(suite.T(), payload.Sequence, 1)
}

// TestGameService_SequenceFullRound 测试序列回合的完整流转
func (suite *GameServiceTestSuite) TestGameService_SequenceFullRound() {
	code, ids := suite.setupRoom(1)
	require.NoError(suite.T(), suite.svc.StartGame(code, ids[0], game.ModeSequence))

	seq := suite.currentSequence(code)

	// 双方都正确复述
	for _, id := range ids {
		for i, c := range seq {
			require.NoError(suite.T(), suite.svc.HandleSequenceInput(code, id, c, i))
		}
	}

	// 回合结算并自动进入回合2
	result, ok := suite.broadcast.last(EventRoundResult)
	require.True(suite.T(), ok)
	payload := result.Payload.(RoundResultEvent)
	assert.Equal(suite.T(), 1, payload.Round)
	assert.Equal(suite.T(), 2, payload.NextRound)

	start, _ := suite.broadcast.last(EventRoundStart)
	assert.Equal(suite.T(), 2, start.Payload.(RoundStartEvent).Round)
	assert.Len(suite.T(), suite.currentSequence(code), 2)
}

// TestGameService_SequenceWrongInputFinishes 测试答错淘汰直至游戏结束
func (suite *GameServiceTestSuite) TestGameService_SequenceWrongInputFinishes() {
	code, ids := suite.setupRoom(1)
	require.NoError(suite.T(), suite.svc.StartGame(code, ids[0], game.ModeSequence))

	seq := suite.currentSequence(code)
	var wrong game.Color
	for _, c := range game.Colors {
		if c != seq[0] {
			wrong = c
			break
		}
	}

	// 房主答错被淘汰，只剩一人在局，游戏立即结束
	require.NoError(suite.T(), suite.svc.HandleSequenceInput(code, ids[0], wrong, 0))

	elim, ok := suite.broadcast.last(EventPlayerEliminated)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), ids[0], elim.Payload.(PlayerEliminatedEvent).PlayerID)

	finished, ok := suite.broadcast.last(EventGameFinished)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), ids[1], finished.Payload.(GameFinishedEvent).WinnerID)

	// 房间状态切到 finished
	summary, err := suite.svc.Registry().GetRoom(code)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), room.StatusFinished, summary.Status)
}

// TestGameService_ReactionAllAnsweredResolves 测试全员作答提前结算
func (suite *GameServiceTestSuite) TestGameService_ReactionAllAnsweredResolves() {
	code, ids := suite.setupRoom(1)
	require.NoError(suite.T(), suite.svc.StartGame(code, ids[0], game.ModeReaction))

	target := suite.currentTarget(code)
	require.NoError(suite.T(), suite.svc.HandleReactionAnswer(code, ids[0], target))

	// 只有一人作答，回合未结算
	_, ok := suite.broadcast.last(EventRoundResult)
	assert.False(suite.T(), ok)

	require.NoError(suite.T(), suite.svc.HandleReactionAnswer(code, ids[1], target))

	result, ok := suite.broadcast.last(EventRoundResult)
	require.True(suite.T(), ok)
	payload := result.Payload.(RoundResultEvent)
	assert.Equal(suite.T(), 1, payload.Round)
	// 先提交者得分
	assert.Equal(suite.T(), ids[0], payload.RoundWinner)
	assert.Equal(suite.T(), 1, payload.Scores[ids[0]])

	// 自动进入回合2
	start, _ := suite.broadcast.last(EventRoundStart)
	assert.Equal(suite.T(), 2, start.Payload.(RoundStartEvent).Round)
}

// TestGameService_ReactionFixedRounds 测试固定回合数后游戏结束
func (suite *GameServiceTestSuite) TestGameService_ReactionFixedRounds() {
	code, ids := suite.setupRoom(1)
	require.NoError(suite.T(), suite.svc.StartGame(code, ids[0], game.ModeReaction))

	for round := 1; round <= 3; round++ {
		target := suite.currentTarget(code)
		require.NoError(suite.T(), suite.svc.HandleReactionAnswer(code, ids[0], target))
		require.NoError(suite.T(), suite.svc.HandleReactionAnswer(code, ids[1], target))
	}

	finished, ok := suite.broadcast.last(EventGameFinished)
	require.True(suite.T(), ok)
	payload := finished.Payload.(GameFinishedEvent)
	assert.Equal(suite.T(), ids[0], payload.WinnerID)
	assert.Equal(suite.T(), 3, payload.Rounds)
	assert.Equal(suite.T(), 3, payload.Scores[ids[0]])
}

// TestGameService_DeadlineTimeout 测试截止定时器触发超时结算
func (suite *GameServiceTestSuite) TestGameService_DeadlineTimeout() {
	suite.cfg.Game.Sequence.InitialTimeout = 20 * time.Millisecond
	suite.cfg.Game.Sequence.MinTimeout = 20 * time.Millisecond

	code, ids := suite.setupRoom(1)
	require.NoError(suite.T(), suite.svc.StartGame(code, ids[0], game.ModeSequence))

	// 无人作答，等待截止触发：双方同回合超时淘汰，游戏结束
	assert.Eventually(suite.T(), func() bool {
		_, ok := suite.broadcast.last(EventGameFinished)
		return ok
	}, time.Second, 10*time.Millisecond)

	finished, _ := suite.broadcast.last(EventGameFinished)
	// 同回合全淘汰按加入顺序取先者
	assert.Equal(suite.T(), ids[0], finished.Payload.(GameFinishedEvent).WinnerID)
}

// TestGameService_LeaveDuringSequenceGame 测试游戏中离开按淘汰处理
func (suite *GameServiceTestSuite) TestGameService_LeaveDuringSequenceGame() {
	code, ids := suite.setupRoom(2)
	require.NoError(suite.T(), suite.svc.StartGame(code, ids[0], game.ModeSequence))

	require.NoError(suite.T(), suite.svc.LeaveRoom(code, ids[1]))

	left, ok := suite.broadcast.last(EventPlayerLeft)
	require.True(suite.T(), ok)
	payload := left.Payload.(PlayerLeftEvent)
	assert.Equal(suite.T(), ids[1], payload.PlayerID)
	assert.Equal(suite.T(), LeaveReasonQuit, payload.Reason)

	// 游戏继续，剩余两人
	_, ok = suite.broadcast.last(EventGameFinished)
	assert.False(suite.T(), ok)

	summary, err := suite.svc.Registry().GetRoom(code)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, summary.PlayerCount)
}

// TestGameService_HostLeaveTransfers 测试房主离开转移房主
func (suite *GameServiceTestSuite) TestGameService_HostLeaveTransfers() {
	code, ids := suite.setupRoom(1)

	require.NoError(suite.T(), suite.svc.LeaveRoom(code, ids[0]))

	hostChanged, ok := suite.broadcast.last(EventHostChanged)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), ids[1], hostChanged.Payload.(HostChangedEvent).NewHostID)
}

// TestGameService_LastPlayerLeaveDeletesRoom 测试全员离开删除房间
func (suite *GameServiceTestSuite) TestGameService_LastPlayerLeaveDeletesRoom() {
	code, ids := suite.setupRoom(0)

	require.NoError(suite.T(), suite.svc.LeaveRoom(code, ids[0]))
	assert.Equal(suite.T(), 0, suite.svc.Registry().RoomCount())
}

// TestGameService_DisconnectGraceReconnect 测试宽限期内重连不移除玩家
func (suite *GameServiceTestSuite) TestGameService_DisconnectGraceReconnect() {
	code, ids := suite.setupRoom(1)
	require.NoError(suite.T(), suite.svc.AttachConnection(code, ids[1], "conn-1"))

	suite.svc.HandleDisconnect(code, ids[1])

	summary, err := suite.svc.Registry().GetRoom(code)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, summary.PlayerCount, "宽限期内席位保留")

	// 重连
	require.NoError(suite.T(), suite.svc.AttachConnection(code, ids[1], "conn-2"))
	summary, _ = suite.svc.Registry().GetRoom(code)
	assert.True(suite.T(), summary.Players[1].Connected)
}

// TestGameService_GraceExpiryRemovesPlayer 测试宽限期过期后按离开路径移除
func (suite *GameServiceTestSuite) TestGameService_GraceExpiryRemovesPlayer() {
	suite.cfg.Room.GracePeriod = 20 * time.Millisecond
	suite.broadcast = &fakeBroadcaster{}
	registry := room.NewRegistry(suite.cfg.Room, zap.NewNop())
	suite.svc = NewGameService(registry, suite.cfg, suite.broadcast, zap.NewNop())

	code, ids := suite.setupRoom(1)
	require.NoError(suite.T(), suite.svc.AttachConnection(code, ids[1], "conn-1"))

	suite.svc.HandleDisconnect(code, ids[1])

	assert.Eventually(suite.T(), func() bool {
		summary, err := suite.svc.Registry().GetRoom(code)
		return err == nil && summary.PlayerCount == 1
	}, time.Second, 10*time.Millisecond)

	left, ok := suite.broadcast.last(EventPlayerLeft)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), LeaveReasonDisconnected, left.Payload.(PlayerLeftEvent).Reason)
}

// TestGameService_StaleSequenceInputIgnored 测试过期输入静默丢弃
func (suite *GameServiceTestSuite) TestGameService_StaleSequenceInputIgnored() {
	code, ids := suite.setupRoom(1)

	// 游戏未开始时的输入不是错误
	assert.NoError(suite.T(), suite.svc.HandleSequenceInput(code, ids[0], game.ColorRed, 0))
	assert.NoError(suite.T(), suite.svc.HandleReactionAnswer(code, ids[0], game.ColorRed))

	_, ok := suite.broadcast.last(EventInputAccepted)
	assert.False(suite.T(), ok)
}

func TestGameServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GameServiceTestSuite))
}
