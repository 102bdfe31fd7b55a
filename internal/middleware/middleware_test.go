package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"Lee_Social/internal/pkg"
	"Lee_Social/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	tokens   map[uint64]string
	extended int
}

func (s *memStore) GetUserToken(_ context.Context, id uint64) (string, error) {
	t, ok := s.tokens[id]
	if !ok {
		return "", errors.New("token not found")
	}
	return t, nil
}

func (s *memStore) ExtendUserToken(context.Context, uint64) error {
	s.extended++
	return nil
}

func TestMain(m *testing.M) {
	testutil.InitTestMain()
	m.Run()
}

func setup(t *testing.T) (*gin.Engine, *pkg.Pair, *memStore) {
	t.Helper()
	tm := pkg.NewTokenManager("a", "r")
	pair, err := tm.GeneratePair(7)
	require.NoError(t, err)
	store := &memStore{tokens: map[uint64]string{7: pair.AccessToken}}

	r := testutil.SetupTestRouter()
	r.Use(RequestLogger())
	r.GET("/me", AuthMiddleware(tm, store), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet(ContextUserIDKey)})
	})
	return r, pair, store
}

func TestAuthMiddleware(t *testing.T) {
	r, pair, store := setup(t)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + pair.AccessToken, http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"valid", "Bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		})
	}
	assert.Equal(t, 1, store.extended)

	// 会话被替换（别处登录）
	store.tokens[7] = "other"
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	r, _, _ := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
