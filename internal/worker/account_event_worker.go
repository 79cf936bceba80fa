package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"tasktracker/internal/model"
	"tasktracker/internal/platform/rabbitmq"
	"tasktracker/internal/repository"
)

// AccountEventWorker drains the account event queue into the audit table.
type AccountEventWorker struct {
	conn      *amqp.Connection
	repo      *repository.AccountEventRepository
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAccountEventWorker(conn *amqp.Connection, repo *repository.AccountEventRepository, queueName string, logger *slog.Logger) *AccountEventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountEventWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    logger.With("component", "account_event_worker", "queue", queueName),
	}
}

func (w *AccountEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}

				if err := w.handle(d.Body); err != nil {
					w.logger.Error("account event dropped", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("worker started")
	return nil
}

func (w *AccountEventWorker) handle(body []byte) error {
	var event model.AccountEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode account event failed: %w", err)
	}
	if event.UserID == 0 || event.Kind == "" {
		return fmt.Errorf("account event is missing user_id or kind")
	}

	// IDs are assigned by the audit table, not the publisher.
	event.ID = 0
	if err := w.repo.Create(&event); err != nil {
		return err
	}
	w.logger.Debug("account event stored", "user_id", event.UserID, "kind", event.Kind)
	return nil
}

func (w *AccountEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
