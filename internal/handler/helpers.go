package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"stockreport/internal/apperror"
	"stockreport/internal/middleware"
	"stockreport/internal/model"
	"stockreport/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// statusFor maps an error kind onto the HTTP status returned to clients.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation, apperror.KindConflict:
		return http.StatusBadRequest
	case apperror.KindAuth:
		return http.StatusUnauthorized
	case apperror.KindForbidden, apperror.KindLocked:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the response envelope. Causes of store failures are
// logged here and never sent to the client.
func writeError(c *gin.Context, err error) {
	appErr := apperror.As(err)
	status := statusFor(appErr.Kind)
	if status == http.StatusInternalServerError {
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Err(err).
			Msg("request failed")
	}
	c.JSON(status, response.Failure(status, string(appErr.Kind), appErr.Message, appErr.Retryable))
}

// bindAndValidate binds the JSON body and runs validator tags. It writes the
// error response itself and returns false when the request is rejected.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, apperror.Validation("Invalid request payload: %s", err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(c, apperror.Validation("Invalid request payload"))
			return false
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
		}
		sort.Strings(fields)
		writeError(c, apperror.Validation("Invalid fields: %s", strings.Join(fields, ", ")))
		return false
	}
	return true
}

// identity returns the caller set by middleware.RequireAuth.
func identity(c *gin.Context) (model.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		writeError(c, apperror.Auth("Not authorized, no token"))
	}
	return id, ok
}
