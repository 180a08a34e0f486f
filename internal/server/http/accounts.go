package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/and161185/kesef/internal/convert"
)

const defaultLogLimit = 20

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "מזהה חשבון לא תקין")
		return 0, false
	}
	return id, true
}

// masterPassword returns the password unlocked by the caller's session.
func masterPassword(c *gin.Context) string {
	sess, _ := SessionFromCtx(c)
	if sess == nil {
		return ""
	}
	return sess.MasterPassword
}

func (s *Server) listAccounts(c *gin.Context) {
	list, err := s.svc.Accounts.List(c.Request.Context())
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": convert.ToAccounts(list)})
}

func (s *Server) createAccount(c *gin.Context) {
	var req convert.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "גוף הבקשה אינו JSON תקין")
		return
	}
	in, err := req.NewAccount()
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	a, err := s.svc.Accounts.Create(c.Request.Context(), in, masterPassword(c))
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": convert.ToAccount(*a)})
}

func (s *Server) getAccount(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	a, err := s.svc.Accounts.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": convert.ToAccount(*a)})
}

func (s *Server) updateAccount(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req convert.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "גוף הבקשה אינו JSON תקין")
		return
	}
	a, err := s.svc.Accounts.Update(c.Request.Context(), id, req.Patch(), masterPassword(c))
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": convert.ToAccount(*a)})
}

func (s *Server) deleteAccount(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := s.svc.Accounts.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "חשבון נמחק בהצלחה"})
}

func (s *Server) accountLogs(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit <= 0 {
		badRequest(c, "limit לא תקין")
		return
	}
	logs, err := s.svc.Accounts.Logs(c.Request.Context(), id, limit)
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": convert.ToScrapeLogs(logs)})
}

func (s *Server) institutions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"institutions": convert.ToInstitutions()})
}
