package utils

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTPRange(t *testing.T) {
	for i := 0; i < 2000; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, otpMin)
		assert.LessOrEqual(t, n, otpMax)
	}
}

func TestChannelForAndNormalize(t *testing.T) {
	assert.Equal(t, "email", ChannelFor("a@b.in"))
	assert.Equal(t, "phone", ChannelFor("9876543210"))
	assert.Equal(t, "asha@example.com", NormalizeIdentifier("  Asha@Example.com "))
	assert.Equal(t, "9876543210", NormalizeIdentifier("98765 43210"))
}

func TestMaskAadhar(t *testing.T) {
	assert.Equal(t, "XXXX-XXXX-9012", MaskAadhar("123456789012"))
	assert.Equal(t, "XXXX-XXXX-XXXX", MaskAadhar("12"))
}

func TestApiErrorStatusAndMatching(t *testing.T) {
	sentinel := NewApiError(KindConflict, "AlreadyVoted", "Already voted on this poll")

	wrapped := sentinel.Wrap(errors.New("boom"))
	assert.True(t, errors.Is(wrapped, sentinel))
	assert.Equal(t, http.StatusConflict, wrapped.StatusCode())
	assert.Equal(t, "fail", wrapped.Status())
	assert.Contains(t, wrapped.Error(), "boom")

	other := NewApiError(KindConflict, "AlreadyJoined", "User is already in the class")
	assert.False(t, errors.Is(wrapped, other))

	internal := Internal("Failed to save", errors.New("disk full"))
	assert.Equal(t, http.StatusInternalServerError, internal.StatusCode())
	assert.Equal(t, "error", internal.Status())

	apiErr, ok := AsApiError(errors.Join(errors.New("ctx"), TooManyRequests("slow down")))
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode())

	v := ValidationFailed(map[string]string{"phone": "Invalid phone number format"})
	assert.Equal(t, http.StatusUnprocessableEntity, v.StatusCode())
	assert.Equal(t, "Invalid phone number format", v.Errors["phone"])
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("class-1")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	unlockA := km.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := km.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
}
