package classifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStub_IsDeterministic(t *testing.T) {
	s := NewStub()
	ctx := context.Background()

	first, err := s.Classify(ctx, []byte("bottle.jpg"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.Classify(ctx, []byte("bottle.jpg"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	assert.True(t, first.Category.Valid())
	assert.Equal(t, 1.0, first.Confidence)
	assert.NotEmpty(t, first.DisposalInstruction)
}

func TestStub_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStub().Classify(ctx, []byte("x"))
	assert.ErrorIs(t, err, apperr.ErrClassificationUnavailable)
}

func TestDisposalInstruction(t *testing.T) {
	for _, c := range models.Categories {
		s, ok := DisposalInstruction(c)
		assert.True(t, ok, c)
		assert.NotEmpty(t, s)
	}

	s, _ := DisposalInstruction(models.CategoryOrganic)
	assert.Equal(t, "Compost in organic waste bin or home composter.", s)

	_, ok := DisposalInstruction("styrofoam")
	assert.False(t, ok)
}

func answer(w http.ResponseWriter, category string, confidence float64) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(classifyResponse{Category: category, Confidence: confidence})
}

func TestHTTP_Classify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "image-bytes", string(body))
		assert.Equal(t, http.MethodPost, r.Method)
		answer(w, "glass", 0.93)
	}))
	defer srv.Close()

	c, err := NewHTTP(srv.URL, time.Second, 0).Classify(context.Background(), []byte("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, models.CategoryGlass, c.Category)
	assert.Equal(t, 0.93, c.Confidence)
	assert.Equal(t, "Rinse and place in glass recycling container.", c.DisposalInstruction)
}

func TestHTTP_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		answer(w, "metal", 0.8)
	}))
	defer srv.Close()

	c, err := NewHTTP(srv.URL, time.Second, 2, WithBackoff(time.Millisecond)).Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMetal, c.Category)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTP_Failures(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		retries   int
		wantCalls int32
	}{
		{
			name:      "retries exhausted",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			retries:   2,
			wantCalls: 3,
		},
		{
			name:      "client error is not retried",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) },
			retries:   2,
			wantCalls: 1,
		},
		{
			name:      "unknown category",
			handler:   func(w http.ResponseWriter, r *http.Request) { answer(w, "styrofoam", 0.9) },
			retries:   2,
			wantCalls: 1,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
			retries:   1,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			_, err := NewHTTP(srv.URL, time.Second, tt.retries, WithBackoff(time.Millisecond)).Classify(context.Background(), []byte("x"))
			assert.ErrorIs(t, err, apperr.ErrClassificationUnavailable)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestHTTP_PerAttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewHTTP(srv.URL, 20*time.Millisecond, 1, WithBackoff(time.Millisecond)).Classify(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, apperr.ErrClassificationUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTP_Budget(t *testing.T) {
	assert.Equal(t, 3*time.Second+30*time.Millisecond, NewHTTP("http://x", time.Second, 2, WithBackoff(10*time.Millisecond)).Budget())
	assert.Equal(t, time.Second, NewHTTP("http://x", time.Second, 0).Budget())
	assert.Zero(t, NewHTTP("http://x", 0, 3).Budget())
}
