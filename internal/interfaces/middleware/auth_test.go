package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Net-Geometry/iworx-tnb-sub002/internal/interfaces/middleware"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/auth"
	"github.com/Net-Geometry/iworx-tnb-sub002/pkg/constants"
)

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(user *auth.UserSession) *gin.Engine {
		router := gin.New()
		router.GET("/admin",
			func(c *gin.Context) {
				if user != nil {
					c.Set(constants.ContextKeyUser, *user)
				}
			},
			middleware.RequireAdmin(),
			func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"ok": true})
			})
		return router
	}

	t.Run("Admin passes", func(t *testing.T) {
		router := newRouter(&auth.UserSession{ID: "u1", IsAdmin: true})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Non-admin forbidden", func(t *testing.T) {
		router := newRouter(&auth.UserSession{ID: "u1", IsAdmin: false})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("No user unauthorized", func(t *testing.T) {
		router := newRouter(nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
