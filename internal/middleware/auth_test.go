package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		secret         string
		token          string
		expectedStatus int
	}{
		{
			name:           "valid token",
			secret:         "sekret",
			token:          "sekret",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing token",
			secret:         "sekret",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "wrong token",
			secret:         "sekret",
			token:          "nope",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "empty secret rejects everything",
			secret:         "",
			token:          "",
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/api/list", AdminAuth(tt.secret), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/api/list", nil)
			if tt.token != "" {
				req.Header.Set(AdminTokenHeader, tt.token)
			}

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestTokenMatches(t *testing.T) {
	if TokenMatches("anything", "") {
		t.Error("empty secret must never match")
	}
	if TokenMatches("", "") {
		t.Error("empty presented token must not match an empty secret")
	}
	if !TokenMatches("sekret", "sekret") {
		t.Error("exact match rejected")
	}
	if TokenMatches("sekre", "sekret") {
		t.Error("prefix must not match")
	}
}
