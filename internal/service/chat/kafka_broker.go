package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"medichat_server/internal/config"
)

// KafkaBroker 基于 Kafka 主题的分发
// 每个实例使用独立的消费者组，保证每个实例都收到全部事件
type KafkaBroker struct {
	Producer *kafka.Writer
	Consumer *kafka.Reader

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKafkaBroker 创建 Kafka Writer/Reader
func NewKafkaBroker(conf *config.KafkaConfig) *KafkaBroker {
	timeout := conf.Timeout * time.Second
	return &KafkaBroker{
		Producer: &kafka.Writer{
			Addr:                   kafka.TCP(conf.HostPort),
			Topic:                  conf.Topic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           timeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		Consumer: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{conf.HostPort},
			Topic:          conf.Topic,
			CommitInterval: timeout,
			GroupID:        "medichat-gateway-" + uuid.NewString(),
			StartOffset:    kafka.LastOffset,
		}),
	}
}

func (k *KafkaBroker) Publish(ctx context.Context, payload []byte) error {
	return k.Producer.WriteMessages(ctx, kafka.Message{Value: payload})
}

// Start 启动消费协程
func (k *KafkaBroker) Start(deliver func([]byte)) error {
	ctx, cancel := context.WithCancel(context.Background())
	k.cancel = cancel
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		for {
			msg, err := k.Consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				zap.L().Error("kafka read realtime event", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			zap.L().Debug("kafka realtime event",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset))
			deliver(msg.Value)
		}
	}()
	return nil
}

func (k *KafkaBroker) Close() error {
	if k.cancel != nil {
		k.cancel()
	}
	k.wg.Wait()
	return errors.Join(k.Producer.Close(), k.Consumer.Close())
}

var _ Broker = (*KafkaBroker)(nil)
