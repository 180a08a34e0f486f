package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/and161185/kesef/internal/convert"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/service"
)

type scrapeRequest struct {
	AccountID *int64 `json:"accountId"`
}

// scrape runs one batch synchronously. An empty body scrapes every active account.
func (s *Server) scrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "גוף הבקשה אינו JSON תקין")
		return
	}
	sum, err := s.svc.Scrape.Run(c.Request.Context(), req.AccountID, masterPassword(c))
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToScrapeResponse(sum))
}

func queryInt(c *gin.Context, key string) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		badRequest(c, key+" לא תקין")
		return 0, false
	}
	return n, true
}

func (s *Server) transactions(c *gin.Context) {
	var f model.TransactionFilter

	if v := c.Query("accountId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "accountId לא תקין")
			return
		}
		f.AccountID = &id
	}
	owner, err := service.ParseOwner(c.Query("owner"))
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	f.Owner = owner
	if v := c.Query("category"); v != "" {
		f.Category = &v
	}
	f.Search = strings.TrimSpace(c.Query("search"))
	if f.StartDate, err = convert.ParseDate(c.Query("startDate")); err != nil {
		abortWithError(c, s.log, err)
		return
	}
	if f.EndDate, err = convert.ParseDate(c.Query("endDate")); err != nil {
		abortWithError(c, s.log, err)
		return
	}
	f.Sort = model.TransactionSort(c.Query("sort"))

	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	if f.Limit, ok = queryInt(c, "limit"); !ok {
		return
	}

	res, err := s.svc.Transactions.List(c.Request.Context(), f, page)
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToTransactionPage(res))
}

func (s *Server) stats(c *gin.Context) {
	st, err := s.svc.Stats.Stats(c.Request.Context(), c.Query("owner"), service.Period(c.Query("period")))
	if err != nil {
		abortWithError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToStats(st))
}
