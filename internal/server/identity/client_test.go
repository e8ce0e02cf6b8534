package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/inkstudio/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "test-key", srv.Client())
}

func TestLookupAccount_OK(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, lookupPath, r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok", body["idToken"])

		_, _ = w.Write([]byte(`{"users":[{"localId":"uid-1","email":"owner@studio.test","emailVerified":true}]}`))
	})

	acc, err := c.LookupAccount(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &Account{LocalID: "uid-1", Email: "owner@studio.test", EmailVerified: true}, acc)
}

func TestLookupAccount_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "rejected token", status: 400, body: `{"error":{"code":400,"message":"INVALID_ID_TOKEN"}}`, wantErr: common.ErrInvalidToken},
		{name: "rejected without body", status: 403, body: ``, wantErr: common.ErrInvalidToken},
		{name: "no users", status: 200, body: `{"users":[]}`, wantErr: common.ErrInvalidToken},
		{name: "two users", status: 200, body: `{"users":[{"localId":"a"},{"localId":"b"}]}`, wantErr: common.ErrInvalidToken},
		{name: "server error", status: 503, body: `oops`, wantErr: common.ErrorIdentityUnavailable},
		{name: "garbage", status: 200, body: `{not json`, wantErr: common.ErrorIdentityUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			acc, err := c.LookupAccount(context.Background(), "tok")
			require.Error(t, err)
			assert.Nil(t, acc)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLookupAccount_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(base, "k", nil)
	_, err := c.LookupAccount(context.Background(), "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorIdentityUnavailable)
}

func TestLookupAccount_ContextCanceled(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[{"localId":"uid"}]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.LookupAccount(ctx, "tok")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorIdentityUnavailable)
}

func TestSignInWithPassword_OK(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, signInPath, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "owner@studio.test", body["email"])
		assert.Equal(t, "pw", body["password"])
		assert.Equal(t, true, body["returnSecureToken"])

		_, _ = w.Write([]byte(`{"idToken":"id-tok","email":"owner@studio.test","localId":"uid-1","expiresIn":"3600"}`))
	})

	res, err := c.SignInWithPassword(context.Background(), "owner@studio.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, "id-tok", res.IDToken)
	assert.Equal(t, "uid-1", res.LocalID)
	assert.Equal(t, "3600", res.ExpiresIn)
}

func TestSignInWithPassword_WrongPassword(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS"}}`))
	})

	_, err := c.SignInWithPassword(context.Background(), "owner@studio.test", "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Contains(t, err.Error(), "INVALID_LOGIN_CREDENTIALS")
}

func TestSignInWithPassword_EmptyToken(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"owner@studio.test"}`))
	})

	_, err := c.SignInWithPassword(context.Background(), "owner@studio.test", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorIdentityUnavailable)
}
