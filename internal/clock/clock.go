// clock задаёт источник времени для всех вычислений сроков действия токенов.
//
// Ни один пакет внутри internal не читает системное время напрямую при проверке
// или вычислении expiry: время приходит через Clock. В проде используется System,
// в тестах — Manual, которым можно управлять детерминированно.
package clock

import (
	"sync"
	"time"
)

// Clock — источник "текущего момента".
type Clock interface {
	Now() time.Time
}

// System возвращает системное время в UTC.
type System struct{}

// Now возвращает time.Now() в UTC.
func (System) Now() time.Time { return time.Now().UTC() }

// Manual — управляемые часы для тестов. Безопасны для конкурентного использования.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual создаёт часы, остановленные на моменте t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

// Now возвращает текущее значение часов.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Set переставляет часы на момент t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = t.UTC()
}

// Advance сдвигает часы на d и возвращает новое значение.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
	return m.now
}

// Проверка на соответствие интерфейсу Clock.
var (
	_ Clock = System{}
	_ Clock = (*Manual)(nil)
)
