package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
)

// QueryUUID reads an optional uuid query parameter. Empty values are ignored.
func QueryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" || raw == "null" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid %s", name), err)
	}
	return &id, nil
}

// QueryTime reads an optional RFC 3339 timestamp or YYYY-MM-DD date. Dates
// are midnight in loc.
func QueryTime(c *gin.Context, name string, loc *time.Location) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" || raw == "null" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid %s", name), err)
	}
	return &t, nil
}

// QueryStatuses reads repeated or comma separated status values.
func QueryStatuses(c *gin.Context) ([]model.AppointmentStatus, error) {
	var out []model.AppointmentStatus
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			status := model.AppointmentStatus(part)
			if !status.Valid() {
				return nil, apperrors.BadRequest(fmt.Sprintf("invalid status %q", part), nil)
			}
			out = append(out, status)
		}
	}
	return out, nil
}

// Paging converts page, size and "field,dir" sort parameters.
func Paging(c *gin.Context, defaultSize int) model.Paging {
	req := httputil.ParsePageRequest(c, defaultSize)
	paging := model.Paging{Page: req.Page, Size: req.Size}
	for _, s := range req.Sort {
		field, dir, _ := strings.Cut(s, ",")
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		paging.Sort = append(paging.Sort, model.SortOrder{
			Field: field,
			Desc:  strings.EqualFold(strings.TrimSpace(dir), "desc"),
		})
	}
	return paging
}
