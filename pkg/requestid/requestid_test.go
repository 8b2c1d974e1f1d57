package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/deskkit/pkg/requestid"
)

func TestEnsure(t *testing.T) {
	t.Parallel()

	t.Run("generates id when missing", func(t *testing.T) {
		ctx, id := requestid.Ensure(context.Background())
		require.NotEmpty(t, id)
		assert.Equal(t, id, requestid.FromContext(ctx))
	})

	t.Run("keeps existing valid id", func(t *testing.T) {
		ctx := requestid.WithContext(context.Background(), "open-ticket-42")
		_, id := requestid.Ensure(ctx)
		assert.Equal(t, "open-ticket-42", id)
	})

	t.Run("replaces invalid id", func(t *testing.T) {
		ctx := requestid.WithContext(context.Background(), "bad id with spaces")
		_, id := requestid.Ensure(ctx)
		assert.NotEqual(t, "bad id with spaces", id)
		assert.True(t, requestid.Valid(id))
	})
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, requestid.Valid("abc_DEF-123"))
	assert.False(t, requestid.Valid(""))
	assert.False(t, requestid.Valid("<script>"))
	assert.False(t, requestid.Valid(strings.Repeat("a", 129)))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	ex := requestid.LoggerExtractor()
	_, ok := ex(context.Background())
	assert.False(t, ok)

	attr, ok := ex(requestid.WithContext(context.Background(), "rid"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "rid", attr.Value.String())
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("echoes client id", func(t *testing.T) {
		var seen string
		h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestid.FromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestid.Header, "client-id-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "client-id-1", seen)
		assert.Equal(t, "client-id-1", rec.Header().Get(requestid.Header))
	})

	t.Run("generates id when header missing", func(t *testing.T) {
		h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, rec.Header().Get(requestid.Header))
	})
}
