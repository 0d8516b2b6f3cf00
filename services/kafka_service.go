package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"studygroup/models"
)

// KafkaService 将群组事件发布到 Kafka
type KafkaService struct {
	producer    sarama.SyncProducer
	topicPrefix string
	metrics     *KafkaMetrics
	log         *slog.Logger
}

// KafkaMetrics 收集Kafka相关指标
type KafkaMetrics struct {
	messagesSent int64
	errors       int64
	mu           sync.RWMutex
}

// NewKafkaService 连接 Kafka 并创建同步生产者
func NewKafkaService(brokers []string, topicPrefix string) (*KafkaService, error) {
	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Compression = sarama.CompressionSnappy
	producerConfig.Producer.Partitioner = sarama.NewHashPartitioner // 同一群组的事件落在同一分区
	producerConfig.Version = sarama.V2_5_0_0

	producer, err := sarama.NewSyncProducer(brokers, producerConfig)
	if err != nil {
		return nil, fmt.Errorf("创建Kafka同步生产者失败: %w", err)
	}
	return NewKafkaServiceWithProducer(producer, topicPrefix), nil
}

// NewKafkaServiceWithProducer 使用已有的生产者
func NewKafkaServiceWithProducer(producer sarama.SyncProducer, topicPrefix string) *KafkaService {
	return &KafkaService{
		producer:    producer,
		topicPrefix: topicPrefix,
		metrics:     &KafkaMetrics{},
		log:         slog.Default().With("component", "kafka"),
	}
}

// BuildTopicName 构建主题名称
func (s *KafkaService) BuildTopicName(topicType string) string {
	return s.topicPrefix + topicType
}

// PublishMessage 发布消息到Kafka (同步)
func (s *KafkaService) PublishMessage(topic string, key string, message []byte) error {
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Value:     sarama.ByteEncoder(message),
		Timestamp: time.Now(),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		s.metrics.mu.Lock()
		s.metrics.errors++
		s.metrics.mu.Unlock()
		return fmt.Errorf("发送消息失败: %w", err)
	}

	s.metrics.mu.Lock()
	s.metrics.messagesSent++
	s.metrics.mu.Unlock()

	s.log.Debug("消息已发送", "topic", topic, "partition", partition, "offset", offset)
	return nil
}

// PublishGroupEvent 发布群组事件，以群组ID为键保证单个群组内有序
func (s *KafkaService) PublishGroupEvent(evt models.GroupEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("序列化群组事件失败: %w", err)
	}
	key := strconv.FormatUint(uint64(evt.GroupID), 10)
	return s.PublishMessage(s.BuildTopicName("group-events"), key, payload)
}

// GetMetrics 获取Kafka指标
func (s *KafkaService) GetMetrics() map[string]int64 {
	s.metrics.mu.RLock()
	defer s.metrics.mu.RUnlock()

	return map[string]int64{
		"messages_sent": s.metrics.messagesSent,
		"errors":        s.metrics.errors,
	}
}

// Close 关闭Kafka服务
func (s *KafkaService) Close() error {
	if err := s.producer.Close(); err != nil {
		return fmt.Errorf("关闭Kafka同步生产者失败: %w", err)
	}
	return nil
}
