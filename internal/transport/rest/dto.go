package rest

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type enrollRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	CourseID  int64 `json:"course_id" validate:"required,gt=0"`
}

// validationMeta turns go-playground/validator field errors into the
// {field: message} map the error envelope's meta carries, the same shape
// the auth-service's formatValidationErrors produces as a joined string,
// adapted here to structured meta since response.Fail already takes one.
func validationMeta(err error) map[string]any {
	meta := map[string]any{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		meta["_"] = err.Error()
		return meta
	}
	for _, fe := range verrs {
		meta[fe.Field()] = fieldErrorMessage(fe)
	}
	return meta
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
