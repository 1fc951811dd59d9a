package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, handler http.HandlerFunc) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestLivenessHandler(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", down)

	code, resp := probe(t, h.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestReadiness_AllHealthy(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", up)
	h.RegisterOptional("redis", up)

	code, resp := probe(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.True(t, resp.Checks["postgres"].Critical)
	assert.False(t, resp.Checks["redis"].Critical)
}

func TestReadiness_OptionalDownDegrades(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", up)
	h.RegisterOptional("kafka", down)

	code, resp := probe(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["kafka"].Error)
}

func TestReadiness_CriticalDownFails(t *testing.T) {
	h := NewHandler()
	h.Register("postgres", down)
	h.RegisterOptional("redis", down)

	code, resp := probe(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusDown, resp.Status)
}

func TestCheck_AppliesTimeout(t *testing.T) {
	h := NewHandler()
	h.Register("slow", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("no deadline")
		}
		return nil
	})

	resp := h.Check(context.Background())
	assert.Equal(t, StatusUp, resp.Status)
}
