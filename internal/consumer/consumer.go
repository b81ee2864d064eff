package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/studyhub-io/studyhub/internal/services"
	log "github.com/studyhub-io/studyhub/middleware/log"
	"github.com/studyhub-io/studyhub/pkg/mq"
)

// MessageConsumer 从 Kafka 消费网关发来的消息，落库后由 Service 广播
type MessageConsumer struct {
	msgService *services.MessageService
	logger     *log.Logger
}

func NewMessageConsumer(msgService *services.MessageService, logger *log.Logger) *MessageConsumer {
	return &MessageConsumer{
		msgService: msgService,
		logger:     logger,
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (consumer *MessageConsumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (consumer *MessageConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (consumer *MessageConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var inbound mq.InboundMessage
		if err := json.Unmarshal(message.Value, &inbound); err != nil {
			consumer.logger.Error(fmt.Sprintf("反序列化消息失败: %v", err))
			session.MarkMessage(message, "")
			continue
		}

		// 广播在 Send 内部完成
		if _, err := consumer.msgService.Send(inbound.SenderID, inbound.Request); err != nil {
			// 暂时标记为已消费，避免死循环
			consumer.logger.Error(fmt.Sprintf("保存来自 Kafka 的消息失败: %v", err))
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// StartConsumer 启动消费者组循环，ctx 取消时退出
func StartConsumer(ctx context.Context, brokers []string, groupID string, topic string, consumer *MessageConsumer) error {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	client, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return fmt.Errorf("创建消费者组客户端失败: %w", err)
	}

	go func() {
		defer client.Close()
		for {
			if err := client.Consume(ctx, []string{topic}, consumer); err != nil {
				consumer.logger.Error(fmt.Sprintf("消费者错误: %v", err))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return nil
}
