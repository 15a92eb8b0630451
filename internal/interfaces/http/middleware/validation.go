package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/conexapi/backend/internal/domain/integration"
)

// RegisterCustomValidators installs domain-specific binding tags on gin's
// validator engine. Call once at startup before building the router.
func RegisterCustomValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	// platform: value must name a supported external platform
	if err := v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
		return integration.Platform(strings.ToUpper(fl.Field().String())).IsValid()
	}); err != nil {
		return err
	}

	// duration: value must parse as a non-negative Go duration string
	return v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
}
