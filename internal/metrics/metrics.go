// metrics — счётчики и гистограммы Prometheus сервиса сессий.
// Все методы безопасны для nil-получателя: сервис можно собрать без метрик.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Виды выпущенных токенов.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Транспорты, на которых перехватываются паники.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Исходы проверок.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultExpired  = "expired"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

type Metrics struct {
	tokensIssued        *prometheus.CounterVec
	refreshTotal        *prometheus.CounterVec
	accessVerifications *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	panicsRecovered     *prometheus.CounterVec
}

// New создает метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_tokens_issued_total",
			Help: "Issued tokens by kind.",
		}, []string{"kind"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_refresh_total",
			Help: "Refresh token validations by result.",
		}, []string{"result"}),
		accessVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_access_verifications_total",
			Help: "Access token verifications by result.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "session_http_request_duration_seconds",
			Help:    "HTTP request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		panicsRecovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_panics_recovered_total",
			Help: "Recovered handler panics by transport.",
		}, []string{"transport"}),
	}

	reg.MustRegister(m.tokensIssued, m.refreshTotal, m.accessVerifications, m.httpDuration, m.panicsRecovered)

	return m
}

func (m *Metrics) TokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) AccessVerification(result string) {
	if m == nil {
		return
	}
	m.accessVerifications.WithLabelValues(result).Inc()
}

// ObserveHTTP учитывает длительность запроса; route — шаблон маршрута chi.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) PanicRecovered(transport string) {
	if m == nil {
		return
	}
	m.panicsRecovered.WithLabelValues(transport).Inc()
}
