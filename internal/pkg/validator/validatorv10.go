package validator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
	"github.com/samber/lo"
)

var ErrTranslatorNotFound = errors.New("validator: english translator not found")

// customRules are the formats shared by several modules.
var customRules = []struct {
	tag     string
	re      *regexp.Regexp
	message string
}{
	// WhatsApp two-step verification PIN.
	{"pin", regexp.MustCompile(`^[0-9]{6}$`), "{0} must be exactly 6 digits"},
	// International phone number without the leading plus.
	{"msisdn", regexp.MustCompile(`^[1-9][0-9]{7,14}$`), "{0} must be an international phone number of 8-15 digits"},
}

type V10ValidationError map[string]string

func (e V10ValidationError) Error() string {
	if len(e) == 0 {
		return "validation error"
	}
	b, _ := json.Marshal(map[string]string(e)) //nolint:errcheck // string map always encodes
	return string(b)
}

func (e V10ValidationError) Values() map[string]string { return e }

type V10Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

func NewV10Validator() (*V10Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	trans, ok := ut.New(english, english).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := entrans.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, err
	}

	for _, rule := range customRules {
		re, tag, msg := rule.re, rule.tag, rule.message
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && re.MatchString(s)
		})
		if err != nil {
			return nil, err
		}

		err = v.RegisterTranslation(tag, trans,
			func(t ut.Translator) error { return t.Add(tag, msg, false) },
			func(t ut.Translator, fe validator.FieldError) string {
				out, err := t.T(fe.Tag(), fe.Field())
				if err != nil {
					slog.Warn("validator: missing translation", "tag", fe.Tag(), "error", err)
					return fe.Error()
				}
				return out
			})
		if err != nil {
			return nil, err
		}
	}

	return &V10Validator{v: v, trans: trans}, nil
}

// Validate returns a V10ValidationError when a rule fails. Other errors,
// such as a non struct argument, are returned unchanged.
func (x *V10Validator) Validate(data any) error {
	err := x.v.Struct(data)

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}

	out := make(V10ValidationError, len(fields))
	for _, fe := range fields {
		out[lo.SnakeCase(fe.Field())] = fe.Translate(x.trans)
	}
	return out
}
