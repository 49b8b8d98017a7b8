package aadhar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func authority(t *testing.T, verified bool) (*httptest.Server, *verifyRequest) {
	t.Helper()
	got := &verifyRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/verify":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			_ = json.NewDecoder(r.Body).Decode(got)
			_ = json.NewEncoder(w).Encode(verifyResponse{Verified: verified, Status: "ok"})
		case "/status":
			_, _ = w.Write([]byte(`{"status":"up"}`))
		case "/details/123456789012":
			_, _ = w.Write([]byte(`{"verified":true,"verificationMethod":"otp"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestVerifyCallsAuthority(t *testing.T) {
	srv, got := authority(t, true)
	c := NewClient(srv.URL, "secret", time.Second, false, zap.NewNop())

	ok, err := c.Verify(context.Background(), "123456789012", "Asha Rao", "2007-04-12")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "123456789012", got.AadharNumber)
	assert.Equal(t, "Asha Rao", got.Name)
	assert.Equal(t, "2007-04-12", got.DOB)
}

func TestVerifyNegative(t *testing.T) {
	srv, _ := authority(t, false)
	c := NewClient(srv.URL, "secret", time.Second, false, zap.NewNop())

	ok, err := c.Verify(context.Background(), "123456789012", "Asha Rao", "2007-04-12")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second, false, zap.NewNop())
	_, err := c.Verify(context.Background(), "123456789012", "Asha Rao", "2007-04-12")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestVerifyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 20*time.Millisecond, false, zap.NewNop())
	_, err := c.Verify(context.Background(), "123456789012", "Asha Rao", "2007-04-12")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSimulatedVerify(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", time.Second, true, zap.NewNop())

	ok, err := c.Verify(context.Background(), "123456789012", "", "")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.Verify(context.Background(), "1234", "", "")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	d, err := c.Details(context.Background(), "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "development", d.Method)
}

func TestDetailsAndStatus(t *testing.T) {
	srv, _ := authority(t, true)
	c := NewClient(srv.URL, "secret", time.Second, false, zap.NewNop())

	d, err := c.Details(context.Background(), "123456789012")
	require.NoError(t, err)
	assert.True(t, d.Verified)
	assert.Equal(t, "otp", d.Method)

	assert.True(t, c.CheckStatus(context.Background()))

	down := NewClient("http://127.0.0.1:1", "secret", 100*time.Millisecond, false, zap.NewNop())
	assert.False(t, down.CheckStatus(context.Background()))
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat("123456789012"))
	assert.False(t, ValidFormat("12345678901"))
	assert.False(t, ValidFormat("12345678901a"))
}

func TestSimulatedMethodAndStatus(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", 100*time.Millisecond, true, zap.NewNop())
	assert.Equal(t, MethodDevelopment, c.Method())
	assert.True(t, c.CheckStatus(context.Background()))

	live := NewClient("http://127.0.0.1:1", "", 100*time.Millisecond, false, zap.NewNop())
	assert.Equal(t, MethodAPI, live.Method())
}
