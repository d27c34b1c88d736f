package controller

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"parcel-delivery-service/internal/logger"
	"parcel-delivery-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// respondError writes the mapped status with {"error": ...}. Unmapped errors
// are logged and hidden behind a generic 500.
func respondError(c *gin.Context, log logger.Logger, err error) {
	status := middleware.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "status", status,
			"request_id", c.GetString(middleware.CtxRequestID), "error", err)
	}
	middleware.AbortWithError(c, err)
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := fieldError.Field()
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "oneof":
				details = append(details, fmt.Sprintf("%s must be one of [%s]", field, fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

// UseJSONFieldNames makes validation errors report json names instead of Go
// field names.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}
