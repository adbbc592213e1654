package config

import (
	"reflect"

	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// Validator is implemented by configuration structs with rules beyond
// `required`, such as auth.ValidatorConfig rejecting a negative clock
// skew. Load calls Validate on every nested struct that implements it
// (value or pointer receiver) and finally on the root.
//
// A returned *sserr.Error passes through unchanged; any other error is
// wrapped with [sserr.CodeValidation].
type Validator interface {
	Validate() error
}

func validate(cfg any, rv reflect.Value) error {
	if err := validateRequired(rv, ""); err != nil {
		return err
	}
	if err := validateNested(rv); err != nil {
		return err
	}
	if v, ok := cfg.(Validator); ok {
		return runValidator(v)
	}
	return nil
}

func runValidator(v Validator) error {
	err := v.Validate()
	if err == nil {
		return nil
	}
	if _, ok := sserr.AsError(err); ok {
		return err
	}
	return sserr.Wrap(err, sserr.CodeValidation, "config: custom validation failed")
}

// validateNested walks nested sections depth first and runs their
// Validators. The root itself is handled by validate.
func validateNested(rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		if !rt.Field(i).IsExported() || !isNested(field) {
			continue
		}
		if err := validateNested(field); err != nil {
			return err
		}
		if field.CanAddr() {
			if v, ok := field.Addr().Interface().(Validator); ok {
				if err := runValidator(v); err != nil {
					return err
				}
				continue
			}
		}
		if v, ok := field.Interface().(Validator); ok {
			if err := runValidator(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateRequired reports the first zero field tagged `required:"true"`
// using its dotted path, e.g. "Auth.TenantName".
func validateRequired(rv reflect.Value, path string) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field, sf := rv.Field(i), rt.Field(i)
		if !field.CanSet() {
			continue
		}

		fieldPath := sf.Name
		if path != "" {
			fieldPath = path + "." + sf.Name
		}

		if field.Kind() == reflect.Struct {
			if err := validateRequired(field, fieldPath); err != nil {
				return err
			}
			continue
		}
		if sf.Tag.Get("required") == "true" && field.IsZero() {
			return sserr.Newf(sserr.CodeValidationRequired,
				"config: required field %q is empty", fieldPath)
		}
	}
	return nil
}
