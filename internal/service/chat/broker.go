package chat

import (
	"context"
	"fmt"
	"sync"

	"medichat_server/internal/config"
)

// Broker 实时事件的跨实例分发通道
// 每个实例都订阅全部事件，再投递给本实例的房间
type Broker interface {
	// Publish 发布一个已编码的事件
	Publish(ctx context.Context, payload []byte) error
	// Start 开始消费，收到的事件交给 deliver
	Start(deliver func(payload []byte)) error
	// Close 停止消费并释放资源
	Close() error
}

// NewBroker 根据 realtimeConfig.brokerMode 选择实现
func NewBroker(conf *config.Config) (Broker, error) {
	switch conf.BrokerMode {
	case "", "standalone":
		return NewStandaloneBroker(), nil
	case "kafka":
		return NewKafkaBroker(&conf.KafkaConfig), nil
	case "nats":
		return NewNatsBroker(&conf.NatsConfig)
	}
	return nil, fmt.Errorf("unsupported realtime broker mode %q", conf.BrokerMode)
}

// StandaloneBroker 单机模式，发布即在调用方协程内投递
type StandaloneBroker struct {
	mu      sync.RWMutex
	deliver func([]byte)
}

func NewStandaloneBroker() *StandaloneBroker {
	return &StandaloneBroker{}
}

func (b *StandaloneBroker) Publish(_ context.Context, payload []byte) error {
	b.mu.RLock()
	deliver := b.deliver
	b.mu.RUnlock()
	if deliver != nil {
		deliver(payload)
	}
	return nil
}

func (b *StandaloneBroker) Start(deliver func([]byte)) error {
	b.mu.Lock()
	b.deliver = deliver
	b.mu.Unlock()
	return nil
}

func (b *StandaloneBroker) Close() error {
	b.mu.Lock()
	b.deliver = nil
	b.mu.Unlock()
	return nil
}

var _ Broker = (*StandaloneBroker)(nil)
