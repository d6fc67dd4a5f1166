package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/models"
)

func newTestSampler(cfg SamplerConfig) *Sampler {
	return NewSampler(cfg, nil, zap.NewNop())
}

func authorize(t *testing.T, s *Sampler) {
	t.Helper()
	require.NoError(t, s.ReportAuthorization(models.AuthorizationFull))
}

func TestSamplerStartStopIdempotent(t *testing.T) {
	s := newTestSampler(DefaultSamplerConfig())

	s.Start()
	s.Start()
	assert.True(t, s.Running())

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestSamplerDropsFixesWithoutAuthorization(t *testing.T) {
	s := newTestSampler(DefaultSamplerConfig())
	s.Start()

	s.Offer(fix(0, 0))

	select {
	case <-s.Fixes():
		t.Fatal("fix delivered without authorization")
	default:
	}
}

func TestSamplerDeliversFixesWhenAuthorized(t *testing.T) {
	s := newTestSampler(DefaultSamplerConfig())
	authorize(t, s)
	s.Start()

	s.Offer(fix(10, 20))

	select {
	case got := <-s.Fixes():
		assert.Equal(t, 10.0, got.Latitude)
	default:
		t.Fatal("fix not delivered")
	}

	last, ok := s.LastFix()
	require.True(t, ok)
	assert.Equal(t, 20.0, last.Longitude)
}

func TestSamplerAppliesDistanceFilter(t *testing.T) {
	cfg := DefaultSamplerConfig()
	cfg.DistanceFilter = 10
	s := newTestSampler(cfg)
	authorize(t, s)
	s.Start()

	s.Offer(fix(0, 0))
	<-s.Fixes()

	// ~5.5m: below the reporting distance, suppressed
	s.Offer(fix(0.00005, 0))
	select {
	case <-s.Fixes():
		t.Fatal("sub-filter fix delivered")
	default:
	}

	// ~22m from the last DELIVERED fix
	s.Offer(fix(0.0002, 0))
	select {
	case got := <-s.Fixes():
		assert.Equal(t, 0.0002, got.Latitude)
	default:
		t.Fatal("fix beyond filter not delivered")
	}
}

func TestSamplerDropsInaccurateFixes(t *testing.T) {
	cfg := DefaultSamplerConfig()
	cfg.MaxAccuracy = 100
	s := newTestSampler(cfg)
	authorize(t, s)
	s.Start()

	s.Offer(models.Fix{Latitude: 1, Longitude: 1, Accuracy: 500, Time: time.Now()})
	select {
	case <-s.Fixes():
		t.Fatal("inaccurate fix delivered")
	default:
	}
}

func TestSamplerSingleUpdateReentrancyGuard(t *testing.T) {
	s := newTestSampler(DefaultSamplerConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := make(chan models.Fix, 1)
	errs := make(chan error, 1)
	go func() {
		for {
			f, err := s.RequestSingleUpdate(ctx)
			if errors.Is(err, ErrRequestInFlight) {
				// A probe below briefly held the slot; take it again
				continue
			}
			if err != nil {
				errs <- err
				return
			}
			got <- f
			return
		}
	}()

	// Wait for the first request to arm itself, then the second must bounce.
	// The probe uses a cancelled context so it can never occupy the slot.
	probeCtx, probeCancel := context.WithCancel(context.Background())
	probeCancel()
	require.Eventually(t, func() bool {
		_, err := s.RequestSingleUpdate(probeCtx)
		return errors.Is(err, ErrRequestInFlight)
	}, time.Second, 5*time.Millisecond)

	// Single updates are served even while continuous updates are stopped
	s.Offer(fix(3, 4))

	select {
	case f := <-got:
		assert.Equal(t, 3.0, f.Latitude)
	case err := <-errs:
		t.Fatalf("single update failed: %v", err)
	case <-time.After(time.Second):
		t.Fatal("single update not served")
	}

	// Guard released: a new request is accepted and cancellable
	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	_, err := s.RequestSingleUpdate(ctx2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSamplerTransientErrorsDoNotStopSampling(t *testing.T) {
	s := newTestSampler(DefaultSamplerConfig())
	authorize(t, s)
	s.Start()

	s.ReportError(errors.New("gps signal lost"))

	assert.True(t, s.Running())
	assert.EqualError(t, s.LastError(), "gps signal lost")

	s.Offer(fix(1, 2))
	select {
	case <-s.Fixes():
	default:
		t.Fatal("sampler stopped listening after transient error")
	}
}

func TestSamplerRejectsUnknownAuthorization(t *testing.T) {
	s := newTestSampler(DefaultSamplerConfig())
	assert.Error(t, s.ReportAuthorization("sometimes"))
	assert.Equal(t, models.AuthorizationNotDetermined, s.Authorization())
}
