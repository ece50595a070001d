package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestClient 创建不带真实连接的客户端
func newTestClient(hub *Hub, id string) *Client {
	return &Client{
		ID:   id,
		Hub:  hub,
		Send: make(chan []byte, 8),
	}
}

// TestHub_SendToRoom 测试房间广播只达房间内客户端
func TestHub_SendToRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())

	inRoom := newTestClient(hub, "c1")
	other := newTestClient(hub, "c2")
	hub.BindRoom(inRoom, "ABCDEF", "p1")
	hub.BindRoom(other, "XYZ234", "p2")

	hub.SendToRoom("ABCDEF", "room_state", map[string]string{"code": "ABCDEF"})

	select {
	case raw := <-inRoom.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "room_state", msg.Type)
	default:
		t.Fatal("房间内客户端未收到广播")
	}

	select {
	case <-other.Send:
		t.Fatal("其他房间的客户端收到了广播")
	default:
	}
}

// TestHub_BindRoomRebind 测试重复绑定自动解除旧房间
func TestHub_BindRoomRebind(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c := newTestClient(hub, "c1")
	hub.BindRoom(c, "ABCDEF", "p1")
	hub.BindRoom(c, "XYZ234", "p1")

	assert.Equal(t, 0, hub.RoomClientCount("ABCDEF"))
	assert.Equal(t, 1, hub.RoomClientCount("XYZ234"))
	assert.Equal(t, "XYZ234", c.RoomCode)
}

// TestHub_UnbindRoom 测试解除绑定
func TestHub_UnbindRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c := newTestClient(hub, "c1")
	hub.BindRoom(c, "ABCDEF", "p1")
	hub.UnbindRoom(c)

	assert.Equal(t, 0, hub.RoomClientCount("ABCDEF"))

	// 解除后广播不再送达
	hub.SendToRoom("ABCDEF", "room_state", map[string]string{})
	select {
	case <-c.Send:
		t.Fatal("解除绑定后仍收到广播")
	default:
	}
}

// TestHub_SendToClientNotFound 测试向未注册客户端发送返回错误
func TestHub_SendToClientNotFound(t *testing.T) {
	hub := NewHub(zap.NewNop())

	err := hub.SendToClient("nobody", &Message{Type: MessageTypePing})
	assert.ErrorIs(t, err, ErrClientNotFound)
}

// TestHub_BufferFullDropsMessage 测试缓冲区满时丢弃而不阻塞
func TestHub_BufferFullDropsMessage(t *testing.T) {
	hub := NewHub(zap.NewNop())

	c := newTestClient(hub, "c1")
	c.Send = make(chan []byte, 1)
	hub.BindRoom(c, "ABCDEF", "p1")

	hub.SendToRoom("ABCDEF", "room_state", map[string]string{})
	// 第二条在缓冲区满时被丢弃，调用不阻塞
	hub.SendToRoom("ABCDEF", "room_state", map[string]string{})

	assert.Len(t, c.Send, 1)
}
