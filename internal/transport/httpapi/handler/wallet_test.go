package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantapay/fantapay/internal/auth"
	"github.com/fantapay/fantapay/internal/infra/memstore"
	"github.com/fantapay/fantapay/internal/platform/user"
	"github.com/fantapay/fantapay/internal/transport/httpapi/handler"
	"github.com/fantapay/fantapay/internal/transport/httpapi/middleware"
	"github.com/fantapay/fantapay/internal/wallet"
	"github.com/fantapay/fantapay/pkg/logger"
	"github.com/fantapay/fantapay/pkg/money"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

type walletFixture struct {
	store   *memstore.Store
	handler *handler.WalletHandler
	jwt     *middleware.JWTService
}

func newWalletFixture(t *testing.T) *walletFixture {
	t.Helper()
	store := memstore.New()
	log := logger.New("test", io.Discard)
	svc := wallet.NewService(store, store.Competitions(), time.Now, log)
	return &walletFixture{
		store:   store,
		handler: handler.NewWalletHandler(svc, 50),
		jwt:     middleware.NewJWTService(testSecret),
	}
}

func (f *walletFixture) createUser(t *testing.T, name string) (auth.Principal, string) {
	t.Helper()
	u := &user.User{
		ID:    uuid.New(),
		Email: name + "@example.com",
		Name:  name,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))

	token, err := f.jwt.GenerateToken(u.ID, u.Email, u.Name)
	require.NoError(t, err)
	return auth.Principal{UserID: u.ID, Email: u.Email, Name: u.Name}, token
}

// serve routes the request through the JWT middleware into the handler,
// the way the router wires protected endpoints.
func (f *walletFixture) serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	middleware.JWT(f.jwt)(h).ServeHTTP(rec, req)
	return rec
}

func authedRequest(method, target, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWalletTopUp(t *testing.T) {
	t.Run("credits_balance", func(t *testing.T) {
		f := newWalletFixture(t)
		_, token := f.createUser(t, "alice")

		rec := f.serve(f.handler.TopUp, authedRequest(http.MethodPost, "/wallet/topup", `{"amount":"50.00"}`, token))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp handler.BalanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, money.FromCents(5000), resp.Balance)
	})

	t.Run("sub_cent_amount_is_rejected", func(t *testing.T) {
		f := newWalletFixture(t)
		_, token := f.createUser(t, "alice")

		rec := f.serve(f.handler.TopUp, authedRequest(http.MethodPost, "/wallet/topup", `{"amount":"10.505"}`, token))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_AMOUNT", decodeError(t, rec).Code)
	})

	t.Run("negative_amount_is_rejected", func(t *testing.T) {
		f := newWalletFixture(t)
		_, token := f.createUser(t, "alice")

		rec := f.serve(f.handler.TopUp, authedRequest(http.MethodPost, "/wallet/topup", `{"amount":"-5.00"}`, token))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_AMOUNT", decodeError(t, rec).Code)
	})

	t.Run("missing_token_is_unauthorized", func(t *testing.T) {
		f := newWalletFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/wallet/topup", strings.NewReader(`{"amount":"50.00"}`))
		rec := f.serve(f.handler.TopUp, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage_token_is_unauthorized", func(t *testing.T) {
		f := newWalletFixture(t)
		rec := f.serve(f.handler.TopUp, authedRequest(http.MethodPost, "/wallet/topup", `{"amount":"50.00"}`, "not.a.token"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestWalletWithdraw(t *testing.T) {
	t.Run("insufficient_balance_is_402", func(t *testing.T) {
		f := newWalletFixture(t)
		p, token := f.createUser(t, "alice")
		require.NoError(t, f.store.SetUserBalance(context.Background(), p.UserID, money.FromCents(100)))

		rec := f.serve(f.handler.Withdraw, authedRequest(http.MethodPost, "/wallet/withdraw", `{"amount":"50.00"}`, token))
		require.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Equal(t, "INSUFFICIENT_BALANCE", decodeError(t, rec).Code)
	})

	t.Run("debits_balance", func(t *testing.T) {
		f := newWalletFixture(t)
		p, token := f.createUser(t, "alice")
		require.NoError(t, f.store.SetUserBalance(context.Background(), p.UserID, money.FromCents(5000)))

		rec := f.serve(f.handler.Withdraw, authedRequest(http.MethodPost, "/wallet/withdraw", `{"amount":"20.00"}`, token))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp handler.BalanceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, money.FromCents(3000), resp.Balance)
	})
}

func TestWalletTransactions(t *testing.T) {
	t.Run("empty_feed_is_an_empty_array", func(t *testing.T) {
		f := newWalletFixture(t)
		_, token := f.createUser(t, "alice")

		rec := f.serve(f.handler.GetTransactions, authedRequest(http.MethodGet, "/transactions", "", token))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"transactions":[]}`, rec.Body.String())
	})

	t.Run("invalid_limit_is_rejected", func(t *testing.T) {
		f := newWalletFixture(t)
		_, token := f.createUser(t, "alice")

		rec := f.serve(f.handler.GetTransactions, authedRequest(http.MethodGet, "/transactions?limit=zero", "", token))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
