package validator

import (
	"errors"
	"fmt"
	"strings"

	"classbook/pkg/locale"
	"classbook/pkg/logger"
	"classbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type PackageValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewPackageValidator(log *logger.Logger) *PackageValidator {
	v := validator.New()

	if err := v.RegisterValidation("supported_country", func(fl validator.FieldLevel) bool {
		return locale.IsSupported(fl.Field().String())
	}); err != nil {
		log.Fatal("Failed to register 'supported_country' validator", "error", err)
	}

	return &PackageValidator{
		validate: v,
		logger:   log,
	}
}

func (v *PackageValidator) Validate(pkg *model.Package) error {
	return v.check(pkg)
}

func (v *PackageValidator) ValidatePurchase(req *model.PurchaseRequest) error {
	return v.check(req)
}

func (v *PackageValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid ID", err.Field())
		case "supported_country":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), strings.Join(locale.Codes(), ", "))
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
