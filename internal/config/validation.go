package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/goplus/hdfs-sys/internal/platform"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	err := validate.RegisterValidation("target", func(fl validator.FieldLevel) bool {
		_, err := platform.ParseTarget(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(err)
	}
}

// Validate checks cfg against its struct tags. Version features are not
// checked here; the pipeline reports them with the offending combination.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
