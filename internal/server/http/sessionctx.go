package httpserver

import (
	"github.com/gin-gonic/gin"

	"github.com/and161185/kesef/internal/model"
)

const (
	sessionKey   = "kesef.session"
	requestIDKey = "kesef.requestID"
)

// WithSession stores the authenticated session in the request context.
func WithSession(c *gin.Context, s *model.Session) {
	c.Set(sessionKey, s)
}

// SessionFromCtx fetches the authenticated session.
func SessionFromCtx(c *gin.Context) (*model.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*model.Session)
	return s, ok && s != nil
}

// RequestID returns the id assigned by the RequestIDs middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
