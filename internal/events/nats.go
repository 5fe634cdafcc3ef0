package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SubjectPrefix префикс тем NATS
const SubjectPrefix = "rewear"

// Subject возвращает тему NATS для типа события
func Subject(t Type) string {
	return SubjectPrefix + "." + string(t)
}

// NATSPublisher публикует события в NATS в формате JSON
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect подключается к NATS
func Connect(url string, log zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("rewear-api"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS: соединение потеряно")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS: соединение восстановлено")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("сериализация события %s: %w", e.Type, err)
	}
	if err := p.conn.Publish(Subject(e.Type), data); err != nil {
		return fmt.Errorf("публикация события %s: %w", e.Type, err)
	}
	return nil
}

// Subscribe подписывается на все события сервиса
func (p *NATSPublisher) Subscribe(handler func(Event)) (*nats.Subscription, error) {
	return p.conn.Subscribe(SubjectPrefix+".>", func(msg *nats.Msg) {
		var e Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return
		}
		handler(e)
	})
}

// Close дожидается отправки буфера и закрывает соединение
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}
