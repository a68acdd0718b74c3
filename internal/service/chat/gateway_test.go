package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"medichat_server/internal/model"
	"medichat_server/pkg/errorx"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	mu           sync.Mutex
	connected    []model.Participant
	disconnected []model.Participant
	statuses     map[model.Participant]bool
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{statuses: make(map[model.Participant]bool)}
}

func (f *fakeTracker) SetStatus(_ context.Context, p model.Participant, online bool) (model.PresenceRecord, error) {
	if p.ID == 404 {
		return model.PresenceRecord{}, errorx.New(errorx.CodeNotFound, "participant not found")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[p] = online
	return model.PresenceRecord{Participant: p, IsOnline: online}, nil
}

func (f *fakeTracker) Connected(_ context.Context, p model.Participant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = append(f.connected, p)
}

func (f *fakeTracker) Disconnected(_ context.Context, p model.Participant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, p)
}

func (f *fakeTracker) disconnectedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.disconnected)
}

func newTestGateway(t *testing.T) (*Gateway, *fakeTracker, string) {
	t.Helper()
	g, err := NewGateway(NewStandaloneBroker(), GatewayConfig{SendBufferSize: 16})
	require.NoError(t, err)
	tracker := newFakeTracker()
	g.SetPresenceTracker(tracker)
	srv := httptest.NewServer(http.HandlerFunc(g.ServeWS))
	t.Cleanup(func() {
		_ = g.Close()
		srv.Close()
	})
	return g, tracker, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendFrame(t *testing.T, ws *websocket.Conn, event string, ackId any, data any) {
	t.Helper()
	frame := map[string]any{"event": event, "data": data}
	if ackId != nil {
		frame["ackId"] = ackId
	}
	require.NoError(t, ws.WriteJSON(frame))
}

type received struct {
	Event string          `json:"event"`
	AckId json.RawMessage `json:"ackId"`
	Data  json.RawMessage `json:"data"`
}

// readEvent 读取直到出现指定事件
func readEvent(t *testing.T, ws *websocket.Conn, event string) received {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var r received
		require.NoError(t, ws.ReadJSON(&r))
		if r.Event == event {
			return r
		}
	}
}

func join(t *testing.T, ws *websocket.Conn, self, other model.Participant) AckPayload {
	t.Helper()
	sendFrame(t, ws, EventJoinConversation, 1, map[string]any{
		"userId": self.ID, "userType": string(self.Type),
		"otherUserId": other.ID, "otherUserType": string(other.Type),
	})
	var ack AckPayload
	require.NoError(t, json.Unmarshal(readEvent(t, ws, EventAck).Data, &ack))
	return ack
}

func TestJoinAndBroadcast(t *testing.T) {
	g, _, url := newTestGateway(t)
	d7, n3 := model.DoctorOf(7), model.NurseOf(3)

	doctor := dial(t, url)
	nurse := dial(t, url)
	nurseSidebar := dial(t, url)

	ack := join(t, doctor, d7, n3)
	assert.Equal(t, "success", ack.Status)
	assert.Equal(t, "DOCTOR_7-NURSE_3", ack.Room)

	// 用字符串形式的 ID 加入同一个房间
	sendFrame(t, nurse, EventJoinConversation, "a1", map[string]any{
		"userId": "3", "userType": "nurse", "otherUserId": "7", "otherUserType": "DOCTOR",
	})
	r := readEvent(t, nurse, EventAck)
	assert.JSONEq(t, `"a1"`, string(r.AckId))
	require.NoError(t, json.Unmarshal(r.Data, &ack))
	assert.Equal(t, "DOCTOR_7-NURSE_3", ack.Room)

	sendFrame(t, nurseSidebar, EventUserConnected, 2, map[string]any{"userId": 3, "userType": "NURSE"})
	readEvent(t, nurseSidebar, EventAck)

	msg := &model.Message{
		ID: 42, ConversationId: "DOCTOR_7-NURSE_3",
		SenderType: model.Doctor, SenderId: 7, ReceiverType: model.Nurse, ReceiverId: 3,
		Content: "Hi", SentAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, g.PublishMessage(context.Background(), msg))

	for _, ws := range []*websocket.Conn{doctor, nurse} {
		var got map[string]any
		require.NoError(t, json.Unmarshal(readEvent(t, ws, EventNewMessage).Data, &got))
		assert.Equal(t, "42", got["message_id"])
		assert.Equal(t, "Hi", got["content"])
	}
	var global map[string]any
	require.NoError(t, json.Unmarshal(readEvent(t, nurseSidebar, EventGlobalMessage).Data, &global))
	assert.Equal(t, "DOCTOR_7-NURSE_3", global["conversation_id"])
}

func TestLeaveStopsRoomDelivery(t *testing.T) {
	g, _, url := newTestGateway(t)
	d7, n3 := model.DoctorOf(7), model.NurseOf(3)
	doctor := dial(t, url)
	join(t, doctor, d7, n3)

	sendFrame(t, doctor, EventLeaveConversation, 5, map[string]any{"roomId": "DOCTOR_7-NURSE_3"})
	var ack AckPayload
	require.NoError(t, json.Unmarshal(readEvent(t, doctor, EventAck).Data, &ack))
	assert.Equal(t, "success", ack.Status)

	msg := &model.Message{ID: 1, ConversationId: "DOCTOR_7-NURSE_3", SenderType: model.Nurse, SenderId: 3, ReceiverType: model.Doctor, ReceiverId: 7, Content: "x"}
	require.NoError(t, g.PublishMessage(context.Background(), msg))
	// 已离开房间但仍绑定为接收者，收到 globalMessage
	readEvent(t, doctor, EventGlobalMessage)

	sendFrame(t, doctor, EventLeaveConversation, 6, map[string]any{"roomId": "NURSE_3-DOCTOR_7"})
	require.NoError(t, json.Unmarshal(readEvent(t, doctor, EventAck).Data, &ack))
	assert.Equal(t, "error", ack.Status)
}

func TestIdentityMismatchRejected(t *testing.T) {
	_, _, url := newTestGateway(t)
	ws := dial(t, url)

	ack := join(t, ws, model.DoctorOf(7), model.NurseOf(3))
	assert.Equal(t, "success", ack.Status)

	ack = join(t, ws, model.DoctorOf(8), model.NurseOf(3))
	assert.Equal(t, "error", ack.Status)
	assert.NotEmpty(t, ack.Error)
}

func TestPresenceEvents(t *testing.T) {
	g, tracker, url := newTestGateway(t)
	watcher := dial(t, url)
	client := dial(t, url)

	sendFrame(t, client, EventUserConnected, 1, map[string]any{"userId": 7, "userType": "DOCTOR"})
	readEvent(t, client, EventAck)
	tracker.mu.Lock()
	assert.Equal(t, []model.Participant{model.DoctorOf(7)}, tracker.connected)
	tracker.mu.Unlock()

	sendFrame(t, client, EventUpdateUserStatus, 2, map[string]any{"userId": 7, "userType": "DOCTOR", "isOnline": false})
	var ack AckPayload
	require.NoError(t, json.Unmarshal(readEvent(t, client, EventAck).Data, &ack))
	assert.Equal(t, "success", ack.Status)

	seen := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, g.PublishPresence(context.Background(), model.PresenceRecord{
		Participant: model.DoctorOf(7), IsOnline: false, LastSeen: &seen,
	}))
	var update StatusUpdatePayload
	require.NoError(t, json.Unmarshal(readEvent(t, watcher, EventUserStatusUpdate).Data, &update))
	assert.Equal(t, int64(7), update.UserId)
	assert.False(t, update.IsOnline)
	require.NotNil(t, update.LastSeen)
	assert.Equal(t, "2024-05-01T09:00:00Z", *update.LastSeen)
	var change PresenceChangePayload
	require.NoError(t, json.Unmarshal(readEvent(t, watcher, EventUserOffline).Data, &change))
	assert.Equal(t, "DOCTOR", change.UserType)

	// 未知参与者
	other := dial(t, url)
	sendFrame(t, other, EventUserOffline, 3, map[string]any{"userId": 404, "userType": "NURSE"})
	require.NoError(t, json.Unmarshal(readEvent(t, other, EventAck).Data, &ack))
	assert.Equal(t, "error", ack.Status)
}

func TestDisconnectMarksBoundIdentityOffline(t *testing.T) {
	g, tracker, url := newTestGateway(t)
	ws := dial(t, url)
	join(t, ws, model.NurseOf(3), model.DoctorOf(7))

	unbound := dial(t, url)
	sendFrame(t, unbound, "ping", 1, nil)
	readEvent(t, unbound, EventAck)
	require.NoError(t, unbound.Close())

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return tracker.disconnectedCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	g.mu.RLock()
	defer g.mu.RUnlock()
	assert.Empty(t, g.rooms)
	assert.Empty(t, g.bound)
}

func TestDisconnectKeepsOtherDeviceOnline(t *testing.T) {
	g, tracker, url := newTestGateway(t)
	d7, n3 := model.DoctorOf(7), model.NurseOf(3)

	phone := dial(t, url)
	laptop := dial(t, url)
	join(t, phone, d7, n3)
	join(t, laptop, d7, n3)

	require.NoError(t, phone.Close())
	assert.Eventually(t, func() bool {
		g.mu.RLock()
		defer g.mu.RUnlock()
		return len(g.conns) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, tracker.disconnectedCount())

	g.mu.RLock()
	assert.Len(t, g.bound[d7], 1)
	assert.Len(t, g.rooms[model.DeriveConversationId(d7, n3)], 1)
	g.mu.RUnlock()

	require.NoError(t, laptop.Close())
	assert.Eventually(t, func() bool { return tracker.disconnectedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestInvalidFrame(t *testing.T) {
	_, _, url := newTestGateway(t)
	ws := dial(t, url)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	var ack AckPayload
	require.NoError(t, json.Unmarshal(readEvent(t, ws, EventAck).Data, &ack))
	assert.Equal(t, "error", ack.Status)

	sendFrame(t, ws, EventJoinConversation, 1, map[string]any{"userId": 7, "userType": "ADMIN", "otherUserId": 3, "otherUserType": "NURSE"})
	require.NoError(t, json.Unmarshal(readEvent(t, ws, EventAck).Data, &ack))
	assert.Equal(t, "error", ack.Status)
}

func TestSlowConsumerIsClosed(t *testing.T) {
	conn := &UserConn{ID: "slow", send: make(chan []byte, 1), done: make(chan struct{})}
	assert.True(t, conn.Send([]byte("a")))
	assert.False(t, conn.Send([]byte("b")))
	select {
	case <-conn.done:
	default:
		t.Fatal("slow consumer should be closed")
	}
	assert.False(t, conn.Send([]byte("c")))
}

func TestClosedGatewayRejectsConnections(t *testing.T) {
	g, _, url := newTestGateway(t)
	require.NoError(t, g.Close())
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
