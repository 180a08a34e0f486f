package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/service"
)

// User-facing messages for errors whose detail is not shown.
const (
	msgUnauthorized = "נדרשת התחברות מחדש"
	msgRateLimited  = "יותר מדי ניסיונות התחברות. נסה שוב מאוחר יותר."
	msgExternal     = "שירות חיצוני לא זמין"
)

// statusOf maps the error taxonomy to an HTTP status and a message safe to return.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrUnsupportedInstitution):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, errs.ErrDecryption):
		return http.StatusUnprocessableEntity, service.MsgDecryption
	case errors.Is(err, errs.ErrExternalService):
		return http.StatusBadGateway, msgExternal
	default:
		return http.StatusInternalServerError, service.MsgInternal
	}
}

func abortWithError(c *gin.Context, log *zap.Logger, err error) {
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", RequestID(c)),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
