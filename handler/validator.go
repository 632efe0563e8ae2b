package handler

import (
	"errors"
	"regexp"

	"phishsim/entity"
	"phishsim/pkg/validator"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ResourceNameValidator(optional bool) validator.Validator {
	return &validator.String{
		Optional:  optional,
		UnsetZero: true,
		MinLen:    1,
		MaxLen:    120,
	}
}

func EmailValidator(optional bool) validator.Validator {
	return &validator.String{
		Optional: optional,
		MaxLen:   255,
		Regex:    emailRegex,
	}
}

func HtmlValidator(optional bool) validator.Validator {
	return &validator.String{
		Optional: optional,
		MaxLen:   1 << 20,
	}
}

type paginationValidator struct {
	inner validator.Validator
}

func (v *paginationValidator) Validate(value interface{}) error {
	p, ok := value.(*entity.Pagination)
	if !ok {
		return errors.New("expect *Pagination")
	}

	// omitted pagination falls back to repo defaults
	if p == nil {
		return nil
	}

	return v.inner.Validate(p)
}

func PaginationValidator() validator.Validator {
	return &paginationValidator{
		inner: validator.MustForm(map[string]validator.Validator{
			"page": &validator.UInt32{
				Optional: true,
			},
			"limit": &validator.UInt32{
				Optional: true,
			},
		}),
	}
}
