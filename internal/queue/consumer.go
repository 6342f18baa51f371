package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartEventConsumers connects to RabbitMQ and consumes the reservation
// and auto-release queues, appending one human-readable line per event
// to logs/reservations.log and logs/occupancy.log respectively.  Each
// consumer runs a reconnect loop with exponential backoff and never
// stops the process; processing errors are logged and the offending
// message is rejected without requeueing to avoid tight loops.
func StartEventConsumers() {
	go consumeForever(QueueReservationCreated, "reservations.log", formatReservationCreated)
	go consumeForever(QueueTableAutoReleased, "occupancy.log", formatTableAutoReleased)
}

func consumeForever(queueName, logFile string, format func([]byte) (string, error)) {
	url := BrokerURL()
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("consumer[%s]: failed to dial broker: %v; retrying in %s", queueName, err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, queueName, logFile, format); err != nil {
			log.Printf("consumer[%s]: consume loop ended: %v; reconnecting", queueName, err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, queueName, logFile string, format func([]byte) (string, error)) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("consumer[%s]: set QoS failed: %v", queueName, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		line, err := format(d.Body)
		if err != nil {
			log.Printf("consumer[%s]: handle message failed: %v", queueName, err)
			_ = d.Nack(false, false)
			continue
		}
		if err := appendLine(logFile, line); err != nil {
			log.Printf("consumer[%s]: write log failed: %v", queueName, err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func appendLine(name, line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatReservationCreated(body []byte) (string, error) {
	var ev ReservationCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	return fmt.Sprintf("[%s] Reservation confirmed | id=%s | restaurant=%s | table=%q | date=%s %s | party=%d | client=%q\n",
		ev.CreatedAt, ev.ReservationID, ev.RestaurantID, ev.TableLabel, ev.Date, ev.Time, ev.PartySize, ev.ClientName), nil
}

func formatTableAutoReleased(body []byte) (string, error) {
	var ev TableAutoReleasedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	return fmt.Sprintf("[%s] Table released | restaurant=%s | table=%d | client=%q | occupied=%d min | reason=%s\n",
		ev.ReleasedAt, ev.RestaurantID, ev.TableID, ev.ClientLabel, ev.OccupiedMinutes, ev.Reason), nil
}
