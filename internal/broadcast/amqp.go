package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/BatmanBruc/arima-bot/internal/sl"
)

// AMQPQueue keeps jobs in a durable RabbitMQ queue so a pass interrupted by
// a restart is redelivered. Deliveries are acknowledged after the pass ends.
type AMQPQueue struct {
	url     string
	name    string
	handler JobHandler
	log     *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAMQPQueue(url, name string, handler JobHandler, log *slog.Logger) (*AMQPQueue, error) {
	const op = "broadcast.NewAMQPQueue"

	ctx, cancel := context.WithCancel(context.Background())
	q := &AMQPQueue{
		url:     url,
		name:    name,
		handler: handler,
		log:     log.With(slog.String("component", "broadcast.amqp"), slog.String("queue", name)),
		ctx:     ctx,
		cancel:  cancel,
	}
	if err := q.connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return q, nil
}

func (q *AMQPQueue) connect() error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("channel: %w", err)
	}
	if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare: %w", err)
	}

	q.mu.Lock()
	q.conn, q.ch = conn, ch
	q.mu.Unlock()
	return nil
}

func (q *AMQPQueue) channel() (*amqp.Channel, error) {
	q.mu.Lock()
	ch, conn := q.ch, q.conn
	q.mu.Unlock()
	if ch != nil && !ch.IsClosed() {
		return ch, nil
	}
	if conn == nil || conn.IsClosed() {
		if err := q.connect(); err != nil {
			return nil, err
		}
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.ch, nil
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	q.ch = ch
	q.mu.Unlock()
	return ch, nil
}

func (q *AMQPQueue) Enqueue(ctx context.Context, job Job) error {
	if q.ctx.Err() != nil {
		return ErrQueueStopped
	}
	body, err := encodeJob(job)
	if err != nil {
		return err
	}
	ch, err := q.channel()
	if err != nil {
		return fmt.Errorf("broadcast.Enqueue: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.CreatedAt,
		Body:         body,
	})
}

func (q *AMQPQueue) Start() {
	q.wg.Add(1)
	go q.consumeLoop()
}

func (q *AMQPQueue) Stop() {
	q.cancel()
	q.mu.Lock()
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
	q.mu.Unlock()
	q.wg.Wait()
	q.log.Info("amqp queue stopped")
}

func (q *AMQPQueue) consumeLoop() {
	defer q.wg.Done()

	backoff := time.Second
	for {
		err := q.consume()
		if q.ctx.Err() != nil {
			return
		}
		q.log.Warn("consumer stopped, reconnecting", slog.Duration("backoff", backoff), sl.Err(err))

		select {
		case <-q.ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
		if err := q.connect(); err != nil {
			q.log.Error("reconnect failed", sl.Err(err))
		}
	}
}

func (q *AMQPQueue) consume() error {
	q.mu.Lock()
	conn := q.conn
	q.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return errors.New("connection closed")
	}

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}
	deliveries, err := ch.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	q.log.Info("amqp consumer started")
	for {
		select {
		case <-q.ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			q.process(d)
		}
	}
}

func (q *AMQPQueue) process(d amqp.Delivery) {
	job, err := decodeJob(d.Body)
	if err != nil {
		q.log.Error("dropping malformed job", sl.Err(err))
		_ = d.Nack(false, false)
		return
	}
	if err := q.handler.Handle(q.ctx, job); err != nil {
		q.log.Error("broadcast job failed", slog.String("job_id", job.ID), sl.Err(err))
	}
	if err := d.Ack(false); err != nil {
		q.log.Error("ack failed", slog.String("job_id", job.ID), sl.Err(err))
	}
}

func encodeJob(job Job) ([]byte, error) {
	return json.Marshal(job)
}

func decodeJob(body []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	if job.BroadcastID == 0 || job.Text == "" {
		return Job{}, errors.New("decode job: missing broadcast id or text")
	}
	return job, nil
}
