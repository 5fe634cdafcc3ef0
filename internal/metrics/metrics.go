// Package metrics собирает счётчики Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rewear"

// Metrics счётчики доменных операций
type Metrics struct {
	registry *prometheus.Registry

	ItemsCreated        prometheus.Counter
	ModerationDecisions *prometheus.CounterVec
	SwapTransitions     *prometheus.CounterVec
	PointsMoved         *prometheus.CounterVec
	Sessions            *prometheus.CounterVec
	BrowseCache         *prometheus.CounterVec
}

// New регистрирует счётчики в отдельном реестре
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ItemsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_created_total",
			Help:      "Количество созданных вещей.",
		}),
		ModerationDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_decisions_total",
			Help:      "Решения модерации по статусу.",
		}, []string{"status"}),
		SwapTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_transitions_total",
			Help:      "Переходы статусов обменов.",
		}, []string{"status"}),
		PointsMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_moved_total",
			Help:      "Баллы, прошедшие через журнал, по типу операции.",
		}, []string{"type"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Операции с сессиями.",
		}, []string{"op"}),
		BrowseCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browse_cache_total",
			Help:      "Попадания и промахи кэша каталога.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.ItemsCreated,
		m.ModerationDecisions,
		m.SwapTransitions,
		m.PointsMoved,
		m.Sessions,
		m.BrowseCache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheCounter адаптер счётчика кэша каталога
type CacheCounter struct {
	vec *prometheus.CounterVec
}

func (m *Metrics) CacheCounter() CacheCounter {
	return CacheCounter{vec: m.BrowseCache}
}

func (c CacheCounter) Hit()  { c.vec.WithLabelValues("hit").Inc() }
func (c CacheCounter) Miss() { c.vec.WithLabelValues("miss").Inc() }

// SessionCounter адаптер счётчика сессий
type SessionCounter struct {
	vec *prometheus.CounterVec
}

func (m *Metrics) SessionCounter() SessionCounter {
	return SessionCounter{vec: m.Sessions}
}

func (c SessionCounter) Inc(op string) { c.vec.WithLabelValues(op).Inc() }
