package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/and161185/kesef/internal/convert"
)

func (s *Server) getSettings(c *gin.Context) {
	all, err := s.svc.Settings.All(c.Request.Context())
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

// putSettings stores string values and, when "test" is true, sends a test message.
// Non-string values are ignored.
func (s *Server) putSettings(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "גוף הבקשה אינו JSON תקין")
		return
	}
	test, _ := body["test"].(bool)
	values := make(map[string]string, len(body))
	for k, v := range body {
		if str, ok := v.(string); ok {
			values[k] = str
		}
	}

	ctx := c.Request.Context()
	if err := s.svc.Settings.Update(ctx, values); err != nil {
		abortWithError(c, s.log, err)
		return
	}
	if test {
		c.JSON(http.StatusOK, gin.H{"success": true, "testSent": s.svc.Settings.SendTest(ctx)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listRules(c *gin.Context) {
	rules, err := s.svc.Rules.List(c.Request.Context())
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": convert.ToRules(rules)})
}

func (s *Server) createRule(c *gin.Context) {
	var req convert.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "גוף הבקשה אינו JSON תקין")
		return
	}
	r, err := s.svc.Rules.Create(c.Request.Context(), req.Pattern, req.Category, req.Priority)
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": convert.ToRule(*r)})
}

func (s *Server) deleteRule(c *gin.Context) {
	var req convert.DeleteRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 {
		badRequest(c, "מזהה כלל (id) נדרש")
		return
	}
	if err := s.svc.Rules.Delete(c.Request.Context(), req.ID); err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "כלל קטגוריה נמחק בהצלחה"})
}

// applyRules re-categorizes every stored transaction.
func (s *Server) applyRules(c *gin.Context) {
	n, err := s.svc.Rules.Recategorize(c.Request.Context())
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

func (s *Server) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": convert.ToCategories(s.svc.Rules.Categories())})
}
