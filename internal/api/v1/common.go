package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/topmuch/qrsell-sub001/internal/api/response"
	"github.com/topmuch/qrsell-sub001/internal/service"
)

func parseIntOrDefault(raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return value
}

func parseQueryTime(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, nil
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02", value); err == nil {
		return ts.UTC(), nil
	}

	return time.Time{}, errors.New("invalid time")
}

func handlePromotionServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRuleNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrOfferNotFound, "offer not found")
	case errors.Is(err, service.ErrWindowExpired):
		response.Fail(c, http.StatusGone, response.ErrOfferExpired, "offer expired")
	case errors.Is(err, service.ErrInvalidDiscount):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidDiscount, "discount must be between 5 and 90 percent")
	case errors.Is(err, service.ErrNotRuleOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotRuleOwner, "forbidden")
	case errors.Is(err, service.ErrProductNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrProductNotFound, "product not found")
	case errors.Is(err, service.ErrSellerNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSellerNotFound, "seller not found")
	case errors.Is(err, service.ErrInvalidRuleInput),
		errors.Is(err, service.ErrInvalidRuleID),
		errors.Is(err, service.ErrInvalidSellerID),
		errors.Is(err, service.ErrInvalidAuditInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
