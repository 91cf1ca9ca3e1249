package repository

import (
	"context"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	pkgkafka "StructPulse/pkg/kafka"
)

// KafkaSignalPublisher emits enriched pattern signals to a Kafka topic, keyed
// by symbol so one partition sees a symbol's signals in order.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) domrepo.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s *models.PatternSignal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), map[string]interface{}{
		"pattern":          string(s.Pattern),
		"symbol":           s.Symbol,
		"timeframe":        s.Timeframe,
		"direction":        string(s.Direction),
		"t":                s.Timestamp.Unix(),
		"break_level":      s.BreakLevel,
		"base_confidence":  s.BaseConfidence,
		"historical_bonus": s.HistoricalBonus,
		"sample_count":     s.SampleCount,
		"final_confidence": s.FinalConfidence,
		"narrative":        s.Narrative,
	})
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
