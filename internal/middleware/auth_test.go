package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"grant-trust-go/internal/model"
	"grant-trust-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserService struct {
	user    *model.User
	revoked bool
}

func (f *fakeUserService) Register(username, password, tenantID string) (*model.User, error) {
	return f.user, nil
}

func (f *fakeUserService) Login(username, password string) (string, string, error) {
	return "", "", nil
}

func (f *fakeUserService) GetProfile(username string) (*model.User, error) {
	return f.user, nil
}

func (f *fakeUserService) Logout(tokenString string) error {
	return nil
}

func (f *fakeUserService) IsTokenRevoked(tokenString string) bool {
	return f.revoked
}

func (f *fakeUserService) RefreshToken(refreshTokenString string) (string, string, error) {
	return "", "", nil
}

func newAuthRouter(jwtManager *token.JWTManager, userService *fakeUserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(jwtManager, userService))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	user := &model.User{ID: 7, Username: "alice", Role: "user", TenantID: "tenant-a"}
	r := newAuthRouter(jwtManager, &fakeUserService{user: user})

	tokenString, err := jwtManager.GenerateToken(user.ID, user.Username, user.Role, user.TenantID)
	require.NoError(t, err)

	w := doRequest(r, "Bearer "+tokenString)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareRejectsRevokedToken(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	user := &model.User{ID: 7, Username: "alice", Role: "user", TenantID: "tenant-a"}
	r := newAuthRouter(jwtManager, &fakeUserService{user: user, revoked: true})

	// 签名仍然有效，但已登出的 token 必须被拒绝
	tokenString, err := jwtManager.GenerateToken(user.ID, user.Username, user.Role, user.TenantID)
	require.NoError(t, err)

	w := doRequest(r, "Bearer "+tokenString)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsTenantMismatch(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	user := &model.User{ID: 7, Username: "alice", Role: "user", TenantID: "tenant-a"}
	r := newAuthRouter(jwtManager, &fakeUserService{user: user})

	// token 里的租户与数据库记录不一致，视为过期凭证
	tokenString, err := jwtManager.GenerateToken(user.ID, user.Username, user.Role, "tenant-b")
	require.NoError(t, err)

	w := doRequest(r, "Bearer "+tokenString)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsMissingOrMalformedHeader(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	r := newAuthRouter(jwtManager, &fakeUserService{})

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Bearer not-a-jwt").Code)
}
