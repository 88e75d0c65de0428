package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// StartActivityConsumer connects to RabbitMQ, declares the token.claimed
// and item.purchased queues (durable), and starts consuming messages.
// Each message is appended to logs/activity.log in a single-line,
// human-friendly format. The function runs a reconnect loop: it keeps
// running, logs any processing errors and rejects the offending message
// so the server continues operating.
func StartActivityConsumer() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			zap.L().Warn("activity consumer dial failed",
				zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			zap.L().Warn("activity consumer loop ended, reconnecting", zap.Error(err))
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		zap.L().Warn("activity consumer set QoS failed", zap.Error(err))
	}

	done := make(chan error, 2)
	for _, name := range []string{QueueTokenClaimed, QueueItemPurchased} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(queueName string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				if err := handleMessage(queueName, d.Body); err != nil {
					zap.L().Warn("activity consumer handle message failed",
						zap.String("queue", queueName), zap.Error(err))
					_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
					continue
				}
				_ = d.Ack(false)
			}
			done <- errors.New("deliveries channel closed: " + queueName)
		}(name, msgs)
	}
	return <-done
}

func handleMessage(queueName string, body []byte) error {
	var line string
	switch queueName {
	case QueueTokenClaimed:
		var ev TokenClaimedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line = fmt.Sprintf("[%s] Token claimed | tx_id=%d | token_id=%d | claimer=%q | amount=%s | desc=%q | block=%s\n",
			ev.ClaimedAt, ev.TxID, ev.TokenID, ev.ClaimerName, ev.AmountDisplay, ev.Description, ev.BlockHash)
	case QueueItemPurchased:
		var ev ItemPurchasedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line = fmt.Sprintf("[%s] Item purchased | purchase_id=%d | user=%q | item=%q | qty=%d | total=%s | block=%s\n",
			ev.PurchasedAt, ev.PurchaseID, ev.UserName, ev.ItemName, ev.Quantity, ev.TotalDisplay, ev.BlockHash)
	default:
		return fmt.Errorf("unknown queue %q", queueName)
	}

	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "activity.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
