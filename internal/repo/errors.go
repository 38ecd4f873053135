package repo

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"content-api/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// check validates in and lists every missing required attribute in one message.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return domain.Validationf("%v", err)
	}
	var missing, invalid []string
	for _, f := range fields {
		if f.Tag() == "required" {
			missing = append(missing, f.Field())
			continue
		}
		if f.Param() != "" {
			invalid = append(invalid, fmt.Sprintf("%s (%s=%s)", f.Field(), f.Tag(), f.Param()))
		} else {
			invalid = append(invalid, fmt.Sprintf("%s (%s)", f.Field(), f.Tag()))
		}
	}
	if len(missing) > 0 {
		return domain.Validationf("Missing required params: %v", missing)
	}
	return domain.Validationf("invalid params: %s", strings.Join(invalid, ", "))
}

// translate maps gorm and driver errors onto the domain taxonomy.
func translate(err error, entity string, id uint) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFoundf("%s %d not found", entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey), isDupKey(err):
		return domain.Validationf("%s already exists", entity)
	case errors.Is(err, gorm.ErrForeignKeyViolated), isFKViolation(err):
		return domain.Validationf("%s references a missing record", entity)
	default:
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, entity, err)
	}
}

// translateDelete is translate for deletes, where a foreign key failure means
// the row is still referenced rather than that it points at a missing one.
func translateDelete(err error, entity string, id uint) error {
	if err != nil && (errors.Is(err, gorm.ErrForeignKeyViolated) || isFKViolation(err)) {
		return domain.Conflictf("%s %d is still referenced", entity, id)
	}
	return translate(err, entity, id)
}

// Drivers without error translation still surface recognizable messages.
func isDupKey(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate") || strings.Contains(s, "unique constraint")
}

func isFKViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
