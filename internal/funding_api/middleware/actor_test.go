package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/funding-audit-ledger/internal/platform/permission"
)

func TestActorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var captured permission.Actor
	router := gin.New()
	router.Use(Actor())
	router.GET("/whoami", func(c *gin.Context) {
		captured = GetActor(c)
		c.Status(http.StatusOK)
	})

	t.Run("ReadsHeaders", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(UserIDHeader, " auditor-7 ")
		req.Header.Set(UserRoleHeader, "Auditor")
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, permission.Actor{ID: "auditor-7", Role: permission.RoleAuditor}, captured)
	})

	t.Run("AnonymousWithoutHeaders", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, permission.Actor{}, captured)
	})
}

func TestGetActor_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, permission.Actor{}, GetActor(c))
}
