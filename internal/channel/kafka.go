package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"allowly/internal/domain/event"
	"allowly/internal/obs/retry"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	// TopicPrefix namespaces the per-user topics: <prefix>.<user-uid>.
	TopicPrefix    string        `mapstructure:"topic_prefix"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// Kafka is the distributed backend: one topic per channel, events encoded in
// the compact binary form. Several processes sharing the broker fan events
// out to whichever instance holds the live connection.
type Kafka struct {
	cfg KafkaConfig
	w   *kafka.Writer
	log *zap.Logger
}

var _ Backend = (*Kafka)(nil)

func NewKafka(cfg KafkaConfig, log *zap.Logger) *Kafka {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Kafka{
		cfg: cfg,
		w: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		log: log.With(zap.String("component", "channel.kafka")),
	}
}

func (k *Kafka) topic(channel string) string {
	if k.cfg.TopicPrefix == "" {
		return channel
	}
	return k.cfg.TopicPrefix + "." + channel
}

func (k *Kafka) Publish(ctx context.Context, channel string, ev *event.Event) error {
	value, err := ev.EncodeBinary()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	topic := k.topic(channel)
	tr := otel.Tracer("channel.kafka")
	ctx, span := tr.Start(ctx, "channel.publish "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("channel", channel)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, k.cfg.PublishTimeout)
	defer cancel()

	err = retry.Do(ctx, func() error {
		return k.w.WriteMessages(ctx, kafka.Message{
			Topic: topic,
			Key:   []byte(channel),
			Value: value,
		})
	}, retry.PublishPolicy(k.log))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (k *Kafka) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	topic := k.topic(channel)
	if err := EnsureTopic(ctx, k.cfg.Brokers, topic, k.log); err != nil {
		return nil, fmt.Errorf("ensure topic %s: %w", topic, err)
	}

	// No consumer group: every subscriber is an independent live connection
	// and receives everything published after it attached.
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.cfg.Brokers,
		Topic:       topic,
		Partition:   0,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	s := &kafkaSub{
		reader: r,
		out:    make(chan Delivery),
		done:   make(chan struct{}),
		log:    k.log.With(zap.String("topic", topic)),
	}
	go s.pump()
	return s, nil
}

func (k *Kafka) Close() error { return k.w.Close() }

type kafkaSub struct {
	reader *kafka.Reader
	out    chan Delivery
	log    *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func (s *kafkaSub) pump() {
	defer close(s.out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-s.done
		cancel()
	}()

	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			s.log.Warn("read failed", zap.Error(err))
			return
		}
		d := Delivery{}
		if ev, err := event.DecodeBinary(msg.Value); err != nil {
			// A malformed payload poisons one delivery only.
			d.Err = err
		} else {
			d.Event = ev
		}
		select {
		case s.out <- d:
		case <-s.done:
			return
		}
	}
}

func (s *kafkaSub) Events() <-chan Delivery { return s.out }

func (s *kafkaSub) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.reader.Close()
}

// EnsureTopic creates the topic if missing and waits briefly for it to be
// visible, so the first subscribe on a fresh user does not race creation.
func EnsureTopic(ctx context.Context, brokers []string, topic string, log *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("kafka dial: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller: %w", err)
	}
	cc, err := kafka.DialContext(ctx, "tcp", controller.Host+":"+strconv.Itoa(controller.Port))
	if err != nil {
		return fmt.Errorf("kafka dial controller: %w", err)
	}
	defer cc.Close()

	err = cc.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		log.Debug("create topic (may exist)", zap.String("topic", topic), zap.Error(err))
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ps, err := conn.ReadPartitions(topic); err == nil && len(ps) > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	log.Warn("topic not confirmed ready", zap.String("topic", topic))
	return nil
}
