package service

import (
	"context"
	"testing"
	"time"

	"travel-storefront/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 12,
		"exp":     exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestSession_IsLoggedIn(t *testing.T) {
	s := NewSession(zap.NewNop(), NewNotifier(zap.NewNop()), "")
	assert.False(t, s.IsLoggedIn())

	assert.ErrorIs(t, s.Login(""), ErrEmptyToken)

	require.NoError(t, s.Login(signedToken(t, time.Now().Add(time.Hour))))
	assert.True(t, s.IsLoggedIn())

	require.NoError(t, s.Login(signedToken(t, time.Now().Add(-time.Hour))))
	assert.False(t, s.IsLoggedIn())

	require.NoError(t, s.Login("opaque-drf-token"))
	assert.True(t, s.IsLoggedIn())
}

func TestSession_LogoutResetsCartAndLedger(t *testing.T) {
	backend := &mockBackend{cart: []model.CartLineItem{{LineID: 1, DestinationID: 1, Quantity: 1}}}
	f := newFixture(t, backend)
	ctx := context.Background()
	loadCart(t, f)
	_, err := f.ledger.Record(ctx, []model.PurchasedItem{{DestinationID: 1, Quantity: 1}}, 1)
	require.NoError(t, err)

	s := NewSession(zap.NewNop(), f.notifier, "token")
	s.OnLogout(func(context.Context) { f.cart.Reset() })
	s.OnLogout(func(ctx context.Context) { _ = f.ledger.Clear(ctx) })

	s.Logout(ctx)
	assert.False(t, s.IsLoggedIn())
	assert.Empty(t, s.Token())
	assert.Empty(t, f.cart.Items())
	assert.Empty(t, f.ledger.List(ctx))
}

func TestSession_Expire(t *testing.T) {
	notifier := NewNotifier(zap.NewNop())
	s := NewSession(zap.NewNop(), notifier, "token")

	calls := 0
	s.OnLogout(func(context.Context) { calls++ })

	s.Expire()
	s.Expire()

	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, 1, calls)

	notices := notifier.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, NoticeWarning, notices[0].Level)
}

func TestNotifier_DrainAndBound(t *testing.T) {
	n := NewNotifier(zap.NewNop())
	assert.Empty(t, n.Drain())

	for i := 0; i < maxPendingNotices+10; i++ {
		n.Notify(NoticeInfo, "msg")
	}
	n.Notify(NoticeSuccess, "last")

	notices := n.Drain()
	require.Len(t, notices, maxPendingNotices)
	assert.Equal(t, "last", notices[len(notices)-1].Message)
	assert.Empty(t, n.Drain())
}
