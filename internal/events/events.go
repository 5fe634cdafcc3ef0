// Package events публикует доменные события (вещи, обмены, баллы).
//
// События доставляются по принципу best effort: ошибка публикации логируется
// и не отменяет уже зафиксированное изменение.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type тип события
type Type string

const (
	ItemCreated    Type = "item.created"
	ItemModerated  Type = "item.moderated"
	ItemSwapped    Type = "item.swapped"
	SwapCreated    Type = "swap.created"
	SwapAccepted   Type = "swap.accepted"
	SwapRejected   Type = "swap.rejected"
	SwapCancelled  Type = "swap.cancelled"
	SwapCompleted  Type = "swap.completed"
	PointsChanged  Type = "points.changed"
	ProfileCreated Type = "profile.created"
)

// SwapEvent возвращает тип события для статуса обмена
func SwapEvent(status string) Type {
	return Type("swap." + status)
}

// AffectsBrowse сообщает, может ли событие изменить публичный каталог
func (t Type) AffectsBrowse() bool {
	switch t {
	case ItemCreated, ItemModerated, ItemSwapped, SwapCompleted:
		return true
	}
	return false
}

// Event доменное событие
type Event struct {
	ID       string         `json:"id"`
	Type     Type           `json:"type"`
	EntityID uuid.UUID      `json:"entity_id"`
	ActorID  uuid.UUID      `json:"actor_id,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	At       time.Time      `json:"at"`
}

// New создаёт событие с ID и временем
func New(t Type, entityID, actorID uuid.UUID, data map[string]any) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     t,
		EntityID: entityID,
		ActorID:  actorID,
		Data:     data,
		At:       time.Now().UTC(),
	}
}

// Publisher отправляет события подписчикам
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop ничего не публикует
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Fanout публикует событие во все издатели и собирает ошибки
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder запоминает события в памяти
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events возвращает копию записанных событий
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count возвращает число событий указанного типа
func (r *Recorder) Count(t Type) int {
	n := 0
	for _, e := range r.Events() {
		if e.Type == t {
			n++
		}
	}
	return n
}
