// Package queue also contains the background consumer that drains the
// outbound email queue and hands each job to a mail sender.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/eduflow/eduflow-api/internal/mail"
)

// StartEmailConsumer connects to RabbitMQ, declares the email queue
// (durable), and starts consuming messages.  Each job is delivered through
// the sender.  The function runs a reconnect loop with capped backoff and
// keeps running indefinitely; processing errors are logged and the
// offending message rejected without requeue so the worker never spins on
// a poison message.
func StartEmailConsumer(url, queueName string, sender mail.Sender, log zerolog.Logger) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("email-consumer: dial broker failed")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, queueName, sender, log); err != nil {
			log.Warn().Err(err).Msg("email-consumer: consume loop ended, reconnecting")
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, queueName string, sender mail.Sender, log zerolog.Logger) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Warn().Err(err).Msg("email-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, sender); err != nil {
			log.Error().Err(err).Str("message_id", d.MessageId).Msg("email-consumer: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, sender mail.Sender) error {
	var msg EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.To == "" {
		return errors.New("missing recipient")
	}
	if err := sender.Send(msg.To, msg.Subject, msg.HTML); err != nil {
		return fmt.Errorf("send %s: %w", msg.Kind, err)
	}
	return nil
}
