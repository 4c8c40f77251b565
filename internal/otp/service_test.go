package otp

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/clock"
	"github.com/homefixer/homefixer/internal/logging"
	"github.com/homefixer/homefixer/internal/notification"
)

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

type captureNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (n *captureNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *captureNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	code := sixDigits.FindString(n.sent[len(n.sent)-1].Body)
	require.NotEmpty(t, code)
	return code
}

func newTestService(t *testing.T) (*Service, *captureNotifier, *clock.Fixed) {
	t.Helper()
	notifier := &captureNotifier{}
	clk := &clock.Fixed{T: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(NewMemoryRepository(), notifier, logging.Discard(), WithClock(clk))
	return svc, notifier, clk
}

func TestIssueSendsSixDigitCode(t *testing.T) {
	svc, notifier, _ := newTestService(t)

	require.NoError(t, svc.Issue(context.Background(), "a@x.com"))

	require.Len(t, notifier.sent, 1)
	msg := notifier.sent[0]
	assert.Equal(t, notification.KindOTPEmail, msg.Kind)
	assert.Equal(t, "a@x.com", msg.Destination)
	assert.Len(t, notifier.lastCode(t), 6)
	assert.Contains(t, msg.Body, "valid for 5 minutes")
}

func TestIssueKeepsLeadingZeros(t *testing.T) {
	svc, notifier, _ := newTestService(t)
	// An all-zero entropy stream makes rand.Int return 0.
	svc.random = zeroReader{}

	require.NoError(t, svc.Issue(context.Background(), "zero@x.com"))
	assert.Equal(t, "000000", notifier.lastCode(t))
}

func TestVerifyIsSingleUse(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t)

	require.NoError(t, svc.Issue(ctx, "a@x.com"))
	code := notifier.lastCode(t)

	ok, err := svc.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	const epsilon = time.Second

	t.Run("accepted just before expiry", func(t *testing.T) {
		svc, notifier, clk := newTestService(t)
		require.NoError(t, svc.Issue(ctx, "a@x.com"))
		clk.Advance(DefaultTTL - epsilon)

		ok, err := svc.Verify(ctx, "a@x.com", notifier.lastCode(t))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejected just after expiry", func(t *testing.T) {
		svc, notifier, clk := newTestService(t)
		require.NoError(t, svc.Issue(ctx, "a@x.com"))
		clk.Advance(DefaultTTL + epsilon)

		ok, err := svc.Verify(ctx, "a@x.com", notifier.lastCode(t))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestVerifyRequiresMatchingEmailAndCode(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t)

	require.NoError(t, svc.Issue(ctx, "a@x.com"))
	code := notifier.lastCode(t)

	ok, err := svc.Verify(ctx, "b@x.com", code)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Verify(ctx, "a@x.com", "12345")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOlderCodesStayValidAfterReissue(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t)

	require.NoError(t, svc.Issue(ctx, "a@x.com"))
	first := notifier.lastCode(t)
	require.NoError(t, svc.Issue(ctx, "a@x.com"))

	ok, err := svc.Verify(ctx, "a@x.com", first)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentVerifyConsumesOnce(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t)
	require.NoError(t, svc.Issue(ctx, "a@x.com"))
	code := notifier.lastCode(t)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := svc.Verify(ctx, "a@x.com", code); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestIssueReportsDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	svc, notifier, _ := newTestService(t)
	notifier.err = errors.New("smtp down")

	err := svc.Issue(ctx, "a@x.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDelivery)

	// The row was stored before delivery was attempted.
	ok, err := svc.Verify(ctx, "a@x.com", notifier.lastCode(t))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWasVerifiedWindow(t *testing.T) {
	ctx := context.Background()
	svc, notifier, clk := newTestService(t)

	ok, err := svc.WasVerified(ctx, "a@x.com", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Issue(ctx, "a@x.com"))
	_, err = svc.Verify(ctx, "a@x.com", notifier.lastCode(t))
	require.NoError(t, err)

	ok, err = svc.WasVerified(ctx, "a@x.com", 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(time.Hour)
	ok, err = svc.WasVerified(ctx, "a@x.com", 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.WasVerified(ctx, "a@x.com", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
