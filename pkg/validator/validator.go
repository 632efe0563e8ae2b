package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

type Validator interface {
	Validate(value interface{}) error
}

type form struct {
	validators map[string]Validator
}

// MustForm builds a struct validator keyed by json/schema field tag.
// Panics on a nil field validator.
func MustForm(validators map[string]Validator) Validator {
	for field, v := range validators {
		if v == nil {
			panic(fmt.Sprintf("nil validator for field %s", field))
		}
	}
	return &form{validators: validators}
}

func (f *form) Validate(value interface{}) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errors.New("expect a struct, got nil")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errors.New("expect a struct")
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := fieldName(rt.Field(i))
		if name == "" {
			continue
		}

		v, ok := f.validators[name]
		if !ok {
			continue
		}

		if err := v.Validate(rv.Field(i).Interface()); err != nil {
			return fmt.Errorf("%s: %v", name, err)
		}
	}

	return nil
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "schema"} {
		if v, ok := f.Tag.Lookup(tag); ok {
			name := strings.Split(v, ",")[0]
			if name != "" && name != "-" {
				return name
			}
		}
	}
	return f.Name
}

type String struct {
	Optional  bool
	UnsetZero bool
	MinLen    int
	MaxLen    int
	Regex     *regexp.Regexp
}

func (v *String) Validate(value interface{}) error {
	s, ok := value.(*string)
	if !ok {
		return errors.New("expect *string")
	}

	if s == nil {
		if v.Optional {
			return nil
		}
		return errors.New("is required")
	}

	if v.UnsetZero && *s == "" {
		if v.Optional {
			return nil
		}
		return errors.New("cannot be empty")
	}

	if v.MinLen > 0 && len(*s) < v.MinLen {
		return fmt.Errorf("must be at least %d characters", v.MinLen)
	}

	if v.MaxLen > 0 && len(*s) > v.MaxLen {
		return fmt.Errorf("must be at most %d characters", v.MaxLen)
	}

	if v.Regex != nil && !v.Regex.MatchString(*s) {
		return errors.New("has invalid format")
	}

	return nil
}

type UInt64 struct {
	Optional bool
	Min      *uint64
	Max      *uint64
}

func (v *UInt64) Validate(value interface{}) error {
	ui, ok := value.(*uint64)
	if !ok {
		return errors.New("expect *uint64")
	}

	if ui == nil {
		if v.Optional {
			return nil
		}
		return errors.New("is required")
	}

	if v.Min != nil && *ui < *v.Min {
		return fmt.Errorf("must be at least %d", *v.Min)
	}

	if v.Max != nil && *ui > *v.Max {
		return fmt.Errorf("must be at most %d", *v.Max)
	}

	return nil
}

type UInt32 struct {
	Optional bool
}

func (v *UInt32) Validate(value interface{}) error {
	ui, ok := value.(*uint32)
	if !ok {
		return errors.New("expect *uint32")
	}

	if ui == nil && !v.Optional {
		return errors.New("is required")
	}

	return nil
}

type Slice struct {
	Optional  bool
	MinLen    int
	MaxLen    int
	Validator Validator
}

func (v *Slice) Validate(value interface{}) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return errors.New("expect a slice")
	}

	if rv.IsNil() || rv.Len() == 0 {
		if v.Optional && v.MinLen == 0 {
			return nil
		}
	}

	if rv.Len() < v.MinLen {
		return fmt.Errorf("must have at least %d elements", v.MinLen)
	}

	if v.MaxLen > 0 && rv.Len() > v.MaxLen {
		return fmt.Errorf("must have at most %d elements", v.MaxLen)
	}

	if v.Validator != nil {
		for i := 0; i < rv.Len(); i++ {
			if err := v.Validator.Validate(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %v", i, err)
			}
		}
	}

	return nil
}
