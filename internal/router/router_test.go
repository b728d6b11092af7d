package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/handler"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/pkg/auth"
)

type routeFunc func(*gin.RouterGroup)

func (f routeFunc) RegisterRoutes(r *gin.RouterGroup) { f(r) }

func newTestRouter(t *testing.T, jwt auth.JWTService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	health := routeFunc(func(r *gin.RouterGroup) {
		r.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	})
	me := routeFunc(func(r *gin.RouterGroup) {
		r.GET("/whoami", func(c *gin.Context) {
			user, err := handler.CurrentUser(c)
			if err != nil {
				handler.RespondError(c, err)
				return
			}
			c.String(http.StatusOK, user.Email)
		})
	})

	r := NewRouter(middleware.NewAuthMiddleware(jwt), Handlers{
		Health:    health,
		Protected: []Handler{me},
	}, RouterConfig{
		CORSConfig: middleware.DefaultCORSConfig(),
	})
	r.Setup()
	return r.Engine()
}

func TestRouter_PublicAndProtected(t *testing.T) {
	jwt := auth.NewJWTService("secret", "practice-api", time.Hour)
	engine := newTestRouter(t, jwt)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.GenerateAccessToken(uuid.New(), "sara@brightsmiles.ae", "Dr. Sara Ahmed")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sara@brightsmiles.ae", w.Body.String())
}
