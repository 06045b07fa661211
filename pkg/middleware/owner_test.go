package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yourorg/pdf-toolkit/pkg/jwt"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

func ownerRouter(pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(pre...)
	router.Use(OwnerMiddleware())
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetOwnerFromGin(c)+"|"+logging.Correlation(c.Request.Context(), logging.OwnerKey))
	})
	return router
}

func TestOwnerMiddleware_Anonymous(t *testing.T) {
	w := httptest.NewRecorder()
	ownerRouter().ServeHTTP(w, httptest.NewRequest("GET", "/whoami", nil))

	assert.Equal(t, "anonymous|anonymous", w.Body.String())
}

func TestOwnerMiddleware_ClientIDHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(ClientIDHeader, "browser-42")
	w := httptest.NewRecorder()
	ownerRouter().ServeHTTP(w, req)

	assert.Equal(t, "browser-42|browser-42", w.Body.String())
}

func TestOwnerMiddleware_RejectsUnprintableClientID(t *testing.T) {
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(ClientIDHeader, "a b")
	w := httptest.NewRecorder()
	ownerRouter().ServeHTTP(w, req)

	assert.Equal(t, "anonymous|anonymous", w.Body.String())
}

func TestOwnerMiddleware_TokenWinsOverHeader(t *testing.T) {
	setUser := func(c *gin.Context) { c.Set(jwt.ContextKeyUserID, "user-7") }

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(ClientIDHeader, "browser-42")
	w := httptest.NewRecorder()
	ownerRouter(setUser).ServeHTTP(w, req)

	assert.Equal(t, "user-7|user-7", w.Body.String())
}
