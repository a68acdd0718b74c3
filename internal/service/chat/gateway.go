// Package chat 实现实时网关：WebSocket 连接、会话房间和跨实例事件分发
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medichat_server/internal/dto/respond"
	"medichat_server/internal/model"
	"medichat_server/pkg/constants"
	"medichat_server/pkg/errorx"
)

// PresenceTracker 连接绑定身份后的在线状态回调
type PresenceTracker interface {
	SetStatus(ctx context.Context, p model.Participant, online bool) (model.PresenceRecord, error)
	Connected(ctx context.Context, p model.Participant)
	Disconnected(ctx context.Context, p model.Participant)
}

// GatewayConfig 网关参数
type GatewayConfig struct {
	SendBufferSize int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// Gateway 实时网关
// 房间表、连接表和身份表由同一把读写锁保护
type Gateway struct {
	broker Broker
	cfg    GatewayConfig

	upgrader websocket.Upgrader

	mu        sync.RWMutex
	conns     map[string]*UserConn
	rooms     map[string]map[string]*UserConn // roomId -> connId -> conn
	connRooms map[string]map[string]struct{}  // connId -> roomIds
	bound     map[model.Participant]map[string]*UserConn
	presence  PresenceTracker
	closed    bool

	wg sync.WaitGroup
}

// NewGateway 创建网关并启动 Broker 消费
func NewGateway(broker Broker, cfg GatewayConfig) (*Gateway, error) {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = constants.CHANNEL_SIZE
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	g := &Gateway{
		broker: broker,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			// 跨域由 cors 中间件和 JWT 控制
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns:     make(map[string]*UserConn),
		rooms:     make(map[string]map[string]*UserConn),
		connRooms: make(map[string]map[string]struct{}),
		bound:     make(map[model.Participant]map[string]*UserConn),
	}
	if err := broker.Start(g.deliver); err != nil {
		return nil, errorx.Wrap(err, errorx.CodeTransport, "start realtime broker")
	}
	return g, nil
}

// SetPresenceTracker 注入在线状态服务（与网关互相依赖，在 main 中装配）
func (g *Gateway) SetPresenceTracker(p PresenceTracker) {
	g.mu.Lock()
	g.presence = p
	g.mu.Unlock()
}

func (g *Gateway) tracker() PresenceTracker {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.presence
}

// ServeWS 升级 HTTP 连接并启动读写协程
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	closed := g.closed
	g.mu.RUnlock()
	if closed {
		http.Error(w, "gateway closed", http.StatusServiceUnavailable)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("ws upgrade failed", zap.Error(err))
		return
	}
	conn := newUserConn(ws, g.cfg.SendBufferSize)
	if !g.register(conn) {
		conn.Close()
		return
	}
	zap.L().Info("ws connected", zap.String("conn", conn.ID), zap.String("remote", r.RemoteAddr))

	g.wg.Add(2)
	go func() {
		defer g.wg.Done()
		conn.writeLoop(g.cfg.PingInterval, g.cfg.WriteTimeout)
	}()
	go func() {
		defer g.wg.Done()
		g.readLoop(conn)
	}()
}

func (g *Gateway) register(conn *UserConn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.conns[conn.ID] = conn
	return true
}

// unregister 移除连接及其全部房间；身份的最后一条连接断开才视为下线
func (g *Gateway) unregister(conn *UserConn) {
	g.mu.Lock()
	if _, ok := g.conns[conn.ID]; !ok {
		g.mu.Unlock()
		return
	}
	delete(g.conns, conn.ID)
	for roomId := range g.connRooms[conn.ID] {
		g.removeFromRoomLocked(roomId, conn.ID)
	}
	delete(g.connRooms, conn.ID)
	identity := conn.identity
	lastDevice := false
	if identity != nil {
		if set := g.bound[*identity]; set != nil {
			delete(set, conn.ID)
			if len(set) == 0 {
				delete(g.bound, *identity)
				lastDevice = true
			}
		}
	}
	presence := g.presence
	closed := g.closed
	g.mu.Unlock()

	conn.Close()
	zap.L().Info("ws disconnected", zap.String("conn", conn.ID))
	if lastDevice && presence != nil && !closed {
		presence.Disconnected(context.Background(), *identity)
	}
}

func (g *Gateway) removeFromRoomLocked(roomId, connId string) {
	members := g.rooms[roomId]
	if members == nil {
		return
	}
	delete(members, connId)
	if len(members) == 0 {
		delete(g.rooms, roomId)
	}
}

// bind 绑定连接身份；每条连接只能绑定一次，之后声明其他身份会被拒绝
func (g *Gateway) bind(conn *UserConn, p model.Participant) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if conn.identity != nil {
		if *conn.identity != p {
			return false, errorx.Newf(errorx.CodeTransport, "connection already bound to %s", conn.identity)
		}
		return false, nil
	}
	if _, ok := g.conns[conn.ID]; !ok {
		return false, errorx.New(errorx.CodeTransport, "connection closed")
	}
	identity := p
	conn.identity = &identity
	set := g.bound[p]
	if set == nil {
		set = make(map[string]*UserConn)
		g.bound[p] = set
	}
	set[conn.ID] = conn
	return true, nil
}

// Join 把连接加入 self 与 other 的会话房间，重复加入是幂等的
func (g *Gateway) Join(conn *UserConn, self, other model.Participant) (string, error) {
	if !self.Valid() || !other.Valid() {
		return "", errorx.New(errorx.CodeInvalidParam, "invalid participant")
	}
	roomId := model.DeriveConversationId(self, other)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.conns[conn.ID]; !ok {
		return "", errorx.New(errorx.CodeTransport, "connection closed")
	}
	members := g.rooms[roomId]
	if members == nil {
		members = make(map[string]*UserConn)
		g.rooms[roomId] = members
	}
	members[conn.ID] = conn
	joined := g.connRooms[conn.ID]
	if joined == nil {
		joined = make(map[string]struct{})
		g.connRooms[conn.ID] = joined
	}
	joined[roomId] = struct{}{}
	return roomId, nil
}

// Leave 把连接移出房间；房间 ID 必须是合法的会话 ID
func (g *Gateway) Leave(conn *UserConn, roomId string) error {
	if _, _, err := model.ParseConversationId(roomId); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeFromRoomLocked(roomId, conn.ID)
	if joined := g.connRooms[conn.ID]; joined != nil {
		delete(joined, roomId)
	}
	return nil
}

// PublishMessage 广播已持久化的消息
func (g *Gateway) PublishMessage(ctx context.Context, msg *model.Message) error {
	m := respond.NewMessageRespond(msg)
	return g.publish(ctx, brokerEvent{Kind: kindMessage, Message: &m})
}

// PublishPresence 广播在线状态变化
func (g *Gateway) PublishPresence(ctx context.Context, rec model.PresenceRecord) error {
	payload := &StatusUpdatePayload{
		UserId:   rec.Participant.ID,
		UserType: string(rec.Participant.Type),
		IsOnline: rec.IsOnline,
	}
	if rec.LastSeen != nil {
		s := rec.LastSeen.UTC().Format(time.RFC3339Nano)
		payload.LastSeen = &s
	}
	return g.publish(ctx, brokerEvent{Kind: kindPresence, Presence: payload})
}

func (g *Gateway) publish(ctx context.Context, ev brokerEvent) error {
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(ev)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeServerBusy, "marshal realtime event")
	}
	if err := g.broker.Publish(ctx, data); err != nil {
		return errorx.Wrap(err, errorx.CodeTransport, "publish realtime event")
	}
	return nil
}

// deliver Broker 回调：把事件投递给本实例的连接
func (g *Gateway) deliver(data []byte) {
	var ev brokerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		zap.L().Error("invalid realtime event", zap.Error(err))
		return
	}
	switch ev.Kind {
	case kindMessage:
		if ev.Message != nil {
			g.deliverMessage(ev.Message)
		}
	case kindPresence:
		if ev.Presence != nil {
			g.deliverPresence(ev.Presence, ev.Timestamp)
		}
	default:
		zap.L().Warn("unknown realtime event kind", zap.String("kind", ev.Kind))
	}
}

// deliverMessage 房间内连接收到 newMessage；不在房间内的收发双方连接收到 globalMessage
func (g *Gateway) deliverMessage(m *respond.MessageRespond) {
	roomFrame, err := encodeFrame(EventNewMessage, nil, m)
	if err != nil {
		zap.L().Error("encode newMessage", zap.Error(err))
		return
	}
	globalFrame, err := encodeFrame(EventGlobalMessage, nil, m)
	if err != nil {
		zap.L().Error("encode globalMessage", zap.Error(err))
		return
	}

	parties := make([]model.Participant, 0, 2)
	if p, err := model.NewParticipant(model.ParticipantType(m.SenderType), m.SenderId); err == nil {
		parties = append(parties, p)
	}
	if p, err := model.NewParticipant(model.ParticipantType(m.ReceiverType), m.ReceiverId); err == nil {
		parties = append(parties, p)
	}

	var inRoom, outside []*UserConn
	g.mu.RLock()
	members := g.rooms[m.ConversationId]
	for _, c := range members {
		inRoom = append(inRoom, c)
	}
	for _, p := range parties {
		for id, c := range g.bound[p] {
			if _, ok := members[id]; !ok {
				outside = append(outside, c)
			}
		}
	}
	g.mu.RUnlock()

	for _, c := range inRoom {
		c.Send(roomFrame)
	}
	for _, c := range outside {
		c.Send(globalFrame)
	}
}

// deliverPresence 所有连接都会收到 userStatusUpdate 和 userOnline/userOffline
func (g *Gateway) deliverPresence(p *StatusUpdatePayload, timestamp string) {
	update, err := encodeFrame(EventUserStatusUpdate, nil, p)
	if err != nil {
		zap.L().Error("encode userStatusUpdate", zap.Error(err))
		return
	}
	event := EventUserOffline
	if p.IsOnline {
		event = EventUserOnline
	}
	change, err := encodeFrame(event, nil, PresenceChangePayload{UserId: p.UserId, UserType: p.UserType, Timestamp: timestamp})
	if err != nil {
		zap.L().Error("encode presence change", zap.Error(err))
		return
	}

	g.mu.RLock()
	targets := make([]*UserConn, 0, len(g.conns))
	for _, c := range g.conns {
		targets = append(targets, c)
	}
	g.mu.RUnlock()

	for _, c := range targets {
		if c.Send(update) {
			c.Send(change)
		}
	}
}

// Close 关闭所有连接并停止 Broker
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	conns := make([]*UserConn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.Close()
	}
	g.wg.Wait()
	zap.L().Info("realtime gateway closed", zap.Int("connections", len(conns)))
	return g.broker.Close()
}

func encodeFrame(event string, ackId json.RawMessage, data any) ([]byte, error) {
	return json.Marshal(ServerFrame{Event: event, AckId: ackId, Data: data})
}
