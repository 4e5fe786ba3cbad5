// Package validation wraps go-playground/validator with the custom rules
// used by tool input schemas.
package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/gridwell/mcptab/internal/grid"
	"github.com/gridwell/mcptab/internal/lookup"
	"github.com/gridwell/mcptab/internal/sheetaddr"
	"github.com/gridwell/mcptab/pkg/pagination"
)

var (
	v    *validator.Validate
	once sync.Once
)

// Validator returns the shared validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()

		// a1range: any address the range resolver accepts.
		_ = v.RegisterValidation("a1range", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return false
			}
			_, err := sheetaddr.Parse(s)
			return err == nil
		})

		// fillpolicy: none | null | empty | zero (and spelled variants).
		_ = v.RegisterValidation("fillpolicy", func(fl validator.FieldLevel) bool {
			_, err := grid.ParseFillPolicy(fl.Field().String())
			return err == nil
		})

		// onmissing / onduplicate: lookup policy spellings.
		_ = v.RegisterValidation("onmissing", func(fl validator.FieldLevel) bool {
			_, err := lookup.ParseMissingPolicy(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("onduplicate", func(fl validator.FieldLevel) bool {
			_, err := lookup.ParseDuplicatePolicy(fl.Field().String())
			return err == nil
		})

		// cursor: decodable pagination token; empty allowed with omitempty.
		_ = v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true
			}
			_, err := pagination.Decode(s)
			return err == nil
		})
	})
	return v
}

// ValidateStruct validates a struct and returns a user-friendly error
// string suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	err := Validator().Struct(s)
	if err == nil {
		return ""
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "VALIDATION: invalid inputs"
	}
	fe := ve[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("VALIDATION: %s is required", field)
	case "required_without":
		return fmt.Sprintf("VALIDATION: %s is required (or supply cursor)", field)
	case "a1range":
		return "INVALID_RANGE: use forms like B5, A1:C10, B:B, B2:B, or 2:1000"
	case "fillpolicy":
		return "VALIDATION: fill_policy must be one of none, null, empty, zero"
	case "onmissing":
		return "VALIDATION: on_missing must be one of skip, fail, fail_all"
	case "onduplicate":
		return "VALIDATION: on_duplicate must be one of error, first_match"
	case "cursor":
		return "CURSOR_INVALID: failed to decode cursor; restart pagination"
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("VALIDATION: invalid %s", field)
}
