package handlers

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"restaurant-directory-api/apperr"
	"restaurant-directory-api/auth"
)

// fail hands err to middleware.ErrorHandler. Internal errors carry the stack
// of the failing handler.
func fail(c *gin.Context, err error) {
	ge := c.Error(err)
	if apperr.Status(err) >= http.StatusInternalServerError {
		ge.SetMeta(string(debug.Stack()))
	}
	c.Abort()
}

// bindError turns a binding failure into a validation error with a readable
// message.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("Invalid request body")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation(fe.Field() + " is required")
	case "email":
		return apperr.Validation("Please provide a valid email")
	case "strongpassword":
		return apperr.Validation(auth.ErrWeakPassword.Error())
	case "pricerange":
		return apperr.Validation("Price range must be low, medium or high.")
	case "oneof":
		return apperr.Validation(fe.Field() + " must be one of: " + fe.Param())
	default:
		return apperr.Validation("Invalid " + fe.Field())
	}
}

func pathID(c *gin.Context, param, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, apperr.NotFound(notFound)
	}
	return id, nil
}
