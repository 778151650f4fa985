// Package validator provides a small validation abstraction for message
// structs, backed by go-playground/validator v10 with English messages and a
// mail-address rule.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// FieldErrors is a field-to-message map returned when validation fails.
//
// Keys are lower-cased field names.
type FieldErrors map[string]string

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(fe)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// V10 validates structs using go-playground/validator v10.
type V10 struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewV10 constructs a V10 with English translations and the custom
// "address" rule, which accepts any RFC 5322 address with or without a
// display name.
func NewV10() (*V10, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := registerAddressRule(validate, enTrans); err != nil {
		return nil, err
	}

	return &V10{validate: validate, translator: enTrans}, nil
}

// Validate validates a struct and returns FieldErrors on failure.
func (v *V10) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fe := make(FieldErrors)
	for _, f := range verrs {
		fe[strings.ToLower(f.Field())] = f.Translate(v.translator)
	}
	return fe
}

func registerAddressRule(validate *validator.Validate, enTrans ut.Translator) error {
	err := validate.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, perr := mail.ParseAddress(s)
		return perr == nil
	})
	if err != nil {
		return err
	}

	return validate.RegisterTranslation("address", enTrans,
		func(ut ut.Translator) error {
			return ut.Add("address", "{0} must be a valid mail address", false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, terr := ut.T(fe.Tag(), fe.Field())
			if terr != nil {
				return fmt.Sprintf("%s must be a valid mail address", fe.Field())
			}
			return t
		},
	)
}
