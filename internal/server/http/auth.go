package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/and161185/kesef/internal/errs"
)

type passwordRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) authStatus(c *gin.Context) {
	ctx := c.Request.Context()
	setup, err := s.svc.Auth.IsSetup(ctx)
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}

	authed := false
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		_, err := s.svc.Auth.Resolve(ctx, token)
		switch {
		case err == nil:
			authed = true
		case !errors.Is(err, errs.ErrUnauthorized):
			abortWithError(c, s.log, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"isSetup": setup, "isAuthenticated": authed})
}

// login opens a session and sets the cookie.
func (s *Server) login(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		badRequest(c, "סיסמה נדרשת")
		return
	}
	sess, err := s.svc.Auth.Login(c.Request.Context(), req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "סיסמה שגויה"})
			return
		}
		abortWithError(c, s.log, err)
		return
	}
	s.setSessionCookie(c, sess.Token)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "התחברת בהצלחה"})
}

// setup stores the first master password and logs in.
func (s *Server) setup(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "סיסמה נדרשת")
		return
	}
	sess, err := s.svc.Auth.Setup(c.Request.Context(), req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "סיסמת מאסטר כבר הוגדרה"})
			return
		}
		abortWithError(c, s.log, err)
		return
	}
	s.setSessionCookie(c, sess.Token)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "סיסמת מאסטר הוגדרה בהצלחה"})
}

func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		if err := s.svc.Auth.Logout(c.Request.Context(), token); err != nil {
			abortWithError(c, s.log, err)
			return
		}
	}
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// changePassword rotates the master password. Every session, the caller's
// included, is dropped, so the cookie is cleared too.
func (s *Server) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		badRequest(c, "נדרשות הסיסמה הנוכחית והסיסמה החדשה")
		return
	}
	rep, err := s.svc.Auth.ChangeMasterPassword(c.Request.Context(), req.OldPassword, req.NewPassword)
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	failed := rep.Failed
	if failed == nil {
		failed = []int64{}
	}
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"reencrypted":    rep.Reencrypted,
		"failedAccounts": failed,
	})
}
