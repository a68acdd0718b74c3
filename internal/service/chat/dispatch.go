package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medichat_server/internal/model"
	"medichat_server/pkg/errorx"
)

const maxFrameSize = 64 << 10

// readLoop 读取客户端帧并分发，连接断开时注销
func (g *Gateway) readLoop(conn *UserConn) {
	defer g.unregister(conn)

	conn.ws.SetReadLimit(maxFrameSize)
	deadline := 2 * g.cfg.PingInterval
	_ = conn.ws.SetReadDeadline(time.Now().Add(deadline))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Info("ws read failed", zap.String("conn", conn.ID), zap.Error(err))
			}
			return
		}
		_ = conn.ws.SetReadDeadline(time.Now().Add(deadline))

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.ack(conn, nil, "", errorx.Wrap(err, errorx.CodeInvalidParam, "invalid frame"))
			continue
		}
		g.dispatch(conn, &frame)
	}
}

func (g *Gateway) dispatch(conn *UserConn, frame *ClientFrame) {
	ctx := context.Background()
	switch frame.Event {
	case EventUserConnected:
		var p identityPayload
		self, err := decodeIdentity(frame.Data, &p, &p)
		if err == nil {
			_, err = g.bind(conn, self)
		}
		if err == nil {
			if tracker := g.tracker(); tracker != nil {
				tracker.Connected(ctx, self)
			}
		}
		g.ackIfRequested(conn, frame.AckId, "", err)

	case EventJoinConversation:
		var p joinPayload
		self, err := decodeIdentity(frame.Data, &p, &p.identityPayload)
		var roomId string
		if err == nil {
			_, err = g.bind(conn, self)
		}
		if err == nil {
			var other model.Participant
			other, err = model.ParseParticipant(p.OtherUserId.String(), p.OtherUserType)
			if err == nil {
				roomId, err = g.Join(conn, self, other)
			}
		}
		// joinConversation 总是回执
		g.ack(conn, frame.AckId, roomId, err)

	case EventLeaveConversation:
		var p leavePayload
		err := json.Unmarshal(frame.Data, &p)
		if err != nil {
			err = errorx.Wrap(err, errorx.CodeInvalidParam, "invalid leaveConversation payload")
		} else {
			err = g.Leave(conn, p.RoomId)
		}
		g.ackIfRequested(conn, frame.AckId, p.RoomId, err)

	case EventUpdateUserStatus:
		var p statusPayload
		self, err := decodeIdentity(frame.Data, &p, &p.identityPayload)
		if err == nil && p.IsOnline == nil {
			err = errorx.New(errorx.CodeInvalidParam, "isOnline is required")
		}
		if err == nil {
			_, err = g.bind(conn, self)
		}
		if err == nil {
			err = g.setStatus(ctx, self, *p.IsOnline)
		}
		g.ackIfRequested(conn, frame.AckId, "", err)

	case EventUserOffline:
		var p identityPayload
		self, err := decodeIdentity(frame.Data, &p, &p)
		if err == nil {
			_, err = g.bind(conn, self)
		}
		if err == nil {
			err = g.setStatus(ctx, self, false)
		}
		g.ackIfRequested(conn, frame.AckId, "", err)

	default:
		g.ackIfRequested(conn, frame.AckId, "", errorx.Newf(errorx.CodeInvalidParam, "unknown event %q", frame.Event))
	}
}

func (g *Gateway) setStatus(ctx context.Context, p model.Participant, online bool) error {
	tracker := g.tracker()
	if tracker == nil {
		return errorx.New(errorx.CodeTransport, "presence unavailable")
	}
	_, err := tracker.SetStatus(ctx, p, online)
	return err
}

// decodeIdentity 解码帧数据并解析其中的身份字段
func decodeIdentity(data json.RawMessage, target any, id *identityPayload) (model.Participant, error) {
	if len(data) == 0 {
		return model.Participant{}, errorx.New(errorx.CodeInvalidParam, "missing event data")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return model.Participant{}, errorx.Wrap(err, errorx.CodeInvalidParam, "invalid event data")
	}
	return model.ParseParticipant(id.UserId.String(), id.UserType)
}

func (g *Gateway) ackIfRequested(conn *UserConn, ackId json.RawMessage, room string, err error) {
	if len(ackId) == 0 {
		if err != nil {
			zap.L().Info("ws event rejected", zap.String("conn", conn.ID), zap.Error(err))
		}
		return
	}
	g.ack(conn, ackId, room, err)
}

func (g *Gateway) ack(conn *UserConn, ackId json.RawMessage, room string, err error) {
	payload := AckPayload{Status: "success", Room: room}
	if err != nil {
		payload = AckPayload{Status: "error", Error: ackError(err)}
	}
	frame, encErr := encodeFrame(EventAck, ackId, payload)
	if encErr != nil {
		zap.L().Error("encode ack", zap.Error(encErr))
		return
	}
	conn.Send(frame)
}

func ackError(err error) string {
	var ce *errorx.CodeError
	if errors.As(err, &ce) {
		return ce.Msg
	}
	return err.Error()
}
