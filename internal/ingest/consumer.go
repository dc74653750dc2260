// Package ingest читает действия пользователей из Kafka и сохраняет их.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/pplp"
)

// Config — параметры потребителя.
type Config struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// Recorder сохраняет действие (actions.Service).
type Recorder interface {
	Record(ctx context.Context, ev pplp.ActionEvent) error
}

// MessageReader — часть kafka.Reader, которая нужна потребителю.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const maxRetryDelay = 30 * time.Second

// ActionConsumer читает топик действий. Смещение фиксируется только после
// сохранения; битые и невалидные сообщения пропускаются с фиксацией.
type ActionConsumer struct {
	reader     MessageReader
	recorder   Recorder
	poll       time.Duration
	retryDelay time.Duration
	topic      string
}

// NewActionConsumer создаёт потребителя группы.
func NewActionConsumer(cfg Config, recorder Recorder) (*ActionConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: не задан ни один брокер")
	}
	if strings.TrimSpace(cfg.Topic) == "" || strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka: topic и group id обязательны")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	c := newActionConsumer(reader, recorder, cfg.PollTimeout)
	c.topic = cfg.Topic
	return c, nil
}

func newActionConsumer(reader MessageReader, recorder Recorder, poll time.Duration) *ActionConsumer {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &ActionConsumer{
		reader:     reader,
		recorder:   recorder,
		poll:       poll,
		retryDelay: time.Second,
	}
}

// Close закрывает reader.
func (c *ActionConsumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run читает сообщения до отмены контекста.
func (c *ActionConsumer) Run(ctx context.Context) error {
	logger := log.WithFields(log.Fields{
		"component": "kafka_ingest",
		"topic":     c.topic,
	})
	logger.Info("Потребитель действий запущен")
	defer logger.Info("Потребитель действий остановлен")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.poll)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafka.ErrGroupClosed):
				return nil
			}
			logger.WithError(err).Error("Ошибка чтения из Kafka")
			continue
		}

		if err := c.store(ctx, msg); err != nil {
			return err
		}

		commitCtx, commitCancel := context.WithTimeout(ctx, c.poll)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil && ctx.Err() == nil {
			logger.WithError(err).WithField("offset", msg.Offset).Error("Ошибка фиксации смещения")
		}
		commitCancel()
	}
}

// store сохраняет сообщение. Ошибки хранилища повторяются с нарастающей
// паузой, пока не получится или не отменят контекст.
func (c *ActionConsumer) store(ctx context.Context, msg kafka.Message) error {
	logger := log.WithFields(log.Fields{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	ev, err := DecodeAction(msg.Value)
	if err != nil {
		logger.WithError(err).Warn("Битое сообщение пропущено")
		return nil
	}

	delay := c.retryDelay
	for {
		err := c.recorder.Record(ctx, ev)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, common.ErrDuplicateEvent):
			logger.WithField("event_id", ev.EventID).Debug("Повторная доставка")
			return nil
		case errors.Is(err, common.ErrInvalidEvent):
			logger.WithError(err).Warn("Некорректное событие пропущено")
			return nil
		}

		logger.WithError(err).WithField("retry_in", delay.String()).Error("Не удалось сохранить событие")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

// DecodeAction разбирает JSON-сообщение с действием.
func DecodeAction(raw []byte) (pplp.ActionEvent, error) {
	var ev pplp.ActionEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return pplp.ActionEvent{}, fmt.Errorf("разбор сообщения: %w", err)
	}
	ev.EventID = strings.TrimSpace(ev.EventID)
	ev.UserID = strings.TrimSpace(ev.UserID)
	return ev, nil
}
