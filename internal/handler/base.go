package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
	pkgvalidator "github.com/jwalitptl/clinic-dashboard-api/pkg/validator"
)

const MsgValidation = "validation failed"

// Bind decodes the JSON body into dst. Validation failures answer 400 with
// one entry per field under details.fields.
func Bind(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		httputil.RespondWithError(c, apperrors.BadRequest(MsgValidation, err).WithDetails(map[string]any{
			"fields": pkgvalidator.FieldErrors(verrs),
		}))
		return false
	}
	httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
	return false
}

// ParamUUID parses a path parameter, answering 400 when it is not a uuid.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(fmt.Sprintf("invalid %s", name), err))
		return uuid.Nil, false
	}
	return id, true
}
