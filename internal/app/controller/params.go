package controller

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/review-insight-backend/internal/analytics"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	apperrors "github.com/ikkim/review-insight-backend/internal/errors"
)

// parseDate parses an optional YYYY-MM-DD value. Empty means unset.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// bindRange reads start/end query parameters. On failure it writes a 400
// and returns false.
func bindRange(c *gin.Context) (analytics.RangeRequest, bool) {
	start, err := parseDate(c.Query("start"))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "start must be a YYYY-MM-DD date")
		return analytics.RangeRequest{}, false
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "end must be a YYYY-MM-DD date")
		return analytics.RangeRequest{}, false
	}
	return analytics.RangeRequest{Start: start, End: end}, true
}

// bindID reads the :id path parameter.
func bindID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid review ID")
		return 0, false
	}
	return uint(id), true
}
