package service

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/session-service/internal/clock"
	"github.com/pribylovaa/session-service/internal/config"
	"github.com/pribylovaa/session-service/internal/storage/memory"
	"github.com/pribylovaa/session-service/mocks"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-test-secret",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "session-service",
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *memory.Storage, *clock.Manual) {
	t.Helper()

	st := memory.New()
	clk := clock.NewManual(t0)

	svc, err := New(st, testAuthCfg(), append([]Option{WithClock(clk), WithPasswordCost(bcrypt.MinCost)}, opts...)...)
	require.NoError(t, err)

	return svc, st, clk
}

func newServiceWithMock(t *testing.T) (*Service, *mocks.MockStorage, *clock.Manual) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mockSt := mocks.NewMockStorage(ctrl)
	clk := clock.NewManual(t0)

	svc, err := New(mockSt, testAuthCfg(), WithClock(clk), WithPasswordCost(bcrypt.MinCost))
	require.NoError(t, err)

	return svc, mockSt, clk
}

// counterValue читает значение счётчика из реестра по имени и значению единственной метки.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}

	return 0
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testAuthCfg()
	cfg.JWTSecret = ""
	_, err := New(memory.New(), cfg)
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = testAuthCfg()
	cfg.RefreshTokenTTL = 0
	_, err = New(memory.New(), cfg)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNew_DefaultsToSystemClock(t *testing.T) {
	svc, err := New(memory.New(), testAuthCfg())
	require.NoError(t, err)

	require.IsType(t, clock.System{}, svc.clock)
	require.Equal(t, bcrypt.DefaultCost, svc.bcryptCost)
	require.WithinDuration(t, time.Now(), svc.Now(), time.Second)
}

func TestService_Now_UsesInjectedClock(t *testing.T) {
	svc, _, clk := newTestService(t)
	require.Equal(t, t0, svc.Now())

	clk.Advance(time.Hour)
	require.Equal(t, t0.Add(time.Hour), svc.Now())
}
