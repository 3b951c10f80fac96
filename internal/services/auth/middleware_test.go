package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskward/taskward/internal/token"
)

func gateRouter(codec *token.Codec) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Gate(func(raw string) (uuid.UUID, error) {
		return codec.Verify(raw, token.Access)
	}, zap.NewNop()), func(c *gin.Context) {
		id, ok := PrincipalID(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "gate passed without a principal"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"principal_id": id.String()})
	})
	return r
}

func doGet(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGateAcceptsValidAccessToken(t *testing.T) {
	codec := token.NewCodec([]byte("gate-secret"))
	r := gateRouter(codec)
	subject := uuid.New()

	raw, err := codec.Issue(subject, token.Access, time.Minute)
	require.NoError(t, err)

	w := doGet(r, "Bearer "+raw)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), subject.String())
}

func TestGateRejectionsAreUniform(t *testing.T) {
	codec := token.NewCodec([]byte("gate-secret"))
	r := gateRouter(codec)
	subject := uuid.New()

	expired := codec.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	expiredTok, err := expired.Issue(subject, token.Access, time.Minute)
	require.NoError(t, err)

	refreshTok, err := codec.Issue(subject, token.Refresh, time.Minute)
	require.NoError(t, err)

	foreign, err := token.NewCodec([]byte("other-secret")).Issue(subject, token.Access, time.Minute)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"not a token":    "Bearer garbage",
		"expired":        "Bearer " + expiredTok,
		"wrong type":     "Bearer " + refreshTok,
		"bad signature":  "Bearer " + foreign,
	}

	var bodies []string
	for name, header := range cases {
		w := doGet(r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		bodies = append(bodies, w.Body.String())
	}
	// no rejection reason leaks: every failure mode produces the same body
	for _, b := range bodies {
		assert.Equal(t, bodies[0], b)
	}
}

func TestGateBearerPrefixIsCaseInsensitive(t *testing.T) {
	codec := token.NewCodec([]byte("gate-secret"))
	r := gateRouter(codec)

	raw, err := codec.Issue(uuid.New(), token.Access, time.Minute)
	require.NoError(t, err)

	w := doGet(r, "bearer "+raw)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})

	// generated when absent
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get("X-Request-Id")
	require.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	// echoed when supplied
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "corr-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "corr-123", w.Header().Get("X-Request-Id"))
}
