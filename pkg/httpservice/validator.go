package httpservice

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
)

// Page selections are not validated here: how bad segments are treated is
// the page-spec policy's decision, made by the processor.
var validate = validator.New()

// Validator returns the shared validator.
func Validator() *validator.Validate {
	return validate
}

// ValidateStruct runs struct validation and converts failures into a
// ValidationError naming each offending field.
func ValidateStruct(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

// ValidateRequest binds form or query values into req and validates it.
func ValidateRequest(c *gin.Context, req interface{}) error {
	if err := c.ShouldBind(req); err != nil {
		return bindError("Invalid request", err)
	}
	return ValidateStruct(req)
}

// ValidateJSON binds and validates a JSON request body.
func ValidateJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return bindError("Invalid JSON", err)
	}
	return ValidateStruct(req)
}

// ValidateQuery binds and validates query parameters.
func ValidateQuery(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindQuery(req); err != nil {
		return bindError("Invalid query parameters", err)
	}
	return ValidateStruct(req)
}

// bindError keeps validation failures raised during binding (gin runs the
// same validator) readable.
func bindError(prefix string, err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		return validationError(verrs)
	}
	return errors.NewValidationError(prefix + ": " + err.Error())
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewValidationError("Validation failed: " + err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	fields := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		msg := describe(fe)
		msgs = append(msgs, msg)
		fields[fe.Field()] = msg
	}
	return errors.NewValidationError("Validation failed: " + strings.Join(msgs, "; ")).
		WithDetails(map[string]interface{}{"fields": fields})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
