package demo

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func doLogin(h *Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/auth/demo-login", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Login(c)
	return w
}

func TestHandler_LoginRegistersUnseenUser(t *testing.T) {
	h := NewHandler(nil)
	assert.Equal(t, 0, h.KnownCount())

	w := doLogin(h, `{"user":"alice@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.True(t, h.Known("alice@example.com"))
	assert.Equal(t, 1, h.KnownCount())
}

func TestHandler_LoginIsIdempotentForRepeatUser(t *testing.T) {
	h := NewHandler(nil)

	doLogin(h, `{"user":"alice@example.com"}`)
	doLogin(h, `{"user":"alice@example.com"}`)

	assert.Equal(t, 1, h.KnownCount())
}

func TestHandler_LoginRejectsInvalidUserKey(t *testing.T) {
	h := NewHandler(nil)

	w := doLogin(h, `{"user":"not-an-email"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, h.KnownCount())
}
