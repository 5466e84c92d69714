package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/llm/llmtest"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/metrics"
	"github.com/satriahrh/cocoa-fruit/ragchat/config"
	"github.com/satriahrh/cocoa-fruit/ragchat/usecase"
)

const testSecret = "test-secret"

func newAuthRouter() *echo.Echo {
	m := metrics.NewMetrics()
	gen := &llmtest.Generator{Fragments: llmtest.Texts("ok")}
	return NewRouter(RouterConfig{
		Chat:    NewChatHandler(usecase.NewChatService(gen, testTemplate), m, config.ModeStream),
		Metrics: m,
		Auth:    NewAuthHandler(testSecret, "client", "s3cret"),
	})
}

func issueToken(t *testing.T, e *echo.Echo, key, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", nil)
	req.Header.Set("X-API-Key", key)
	req.Header.Set("X-API-Secret", secret)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGenerateJWT(t *testing.T) {
	e := newAuthRouter()

	rec := issueToken(t, e, "client", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bearer", body["type"])
	assert.NotEmpty(t, body["token"])

	rec = issueToken(t, e, "client", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddleware(t *testing.T) {
	e := newAuthRouter()

	rec := issueToken(t, e, "client", "s3cret")
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + body["token"], http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid token", "Bearer " + body["token"], http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"hi"}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestJWTMiddleware_RejectsOtherSecret(t *testing.T) {
	e := newAuthRouter()

	claims := &JWTClaims{
		ClientID: "client",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+forged)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGenerateJWT_DisabledWithoutAPIKey(t *testing.T) {
	h := NewAuthHandler(testSecret, "", "")
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.GenerateJWT(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
