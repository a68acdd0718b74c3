package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medichat_server/internal/model"
)

// UserConn 一条 WebSocket 连接
// 出站帧只经 send 缓冲由 writeLoop 单协程写出；缓冲满即断开
type UserConn struct {
	ID   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	// identity 由 Gateway.mu 保护
	identity *model.Participant
}

func newUserConn(ws *websocket.Conn, bufferSize int) *UserConn {
	return &UserConn{
		ID:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
}

// Send 非阻塞入队，连接已关闭或缓冲已满返回 false（缓冲满时关闭连接）
func (c *UserConn) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		zap.L().Warn("ws send buffer full, closing slow consumer", zap.String("conn", c.ID))
		c.Close()
		return false
	}
}

// Close 关闭连接，可重复调用
func (c *UserConn) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// writeLoop 从 send 通道读取帧写入 WebSocket，并定期发送 ping
func (c *UserConn) writeLoop(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				zap.L().Info("ws write failed", zap.String("conn", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				zap.L().Info("ws ping failed", zap.String("conn", c.ID), zap.Error(err))
				return
			}
		case <-c.done:
			return
		}
	}
}
