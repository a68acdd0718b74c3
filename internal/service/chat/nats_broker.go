package chat

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"medichat_server/internal/config"
)

// NatsBroker 基于 NATS subject 的分发（普通订阅，每个实例都收到）
type NatsBroker struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
}

// NewNatsBroker 连接 NATS
func NewNatsBroker(conf *config.NatsConfig) (*NatsBroker, error) {
	opts := []nats.Option{
		nats.MaxReconnects(conf.MaxReconnects),
		nats.ReconnectWait(conf.ReconnectWait * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			zap.L().Warn("disconnected from NATS", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			zap.L().Info("reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			zap.L().Info("NATS connection closed")
		}),
		nats.Timeout(10 * time.Second),
	}
	conn, err := nats.Connect(conf.URL, opts...)
	if err != nil {
		return nil, err
	}
	return &NatsBroker{conn: conn, subject: conf.Subject}, nil
}

func (n *NatsBroker) Publish(_ context.Context, payload []byte) error {
	return n.conn.Publish(n.subject, payload)
}

func (n *NatsBroker) Start(deliver func([]byte)) error {
	sub, err := n.conn.Subscribe(n.subject, func(m *nats.Msg) {
		deliver(m.Data)
	})
	if err != nil {
		return err
	}
	n.sub = sub
	return nil
}

func (n *NatsBroker) Close() error {
	if n.sub != nil {
		if err := n.sub.Unsubscribe(); err != nil {
			zap.L().Warn("nats unsubscribe", zap.Error(err))
		}
	}
	n.conn.Close()
	return nil
}

var _ Broker = (*NatsBroker)(nil)
