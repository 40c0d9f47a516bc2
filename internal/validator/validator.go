package validator

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Validator wraps go-playground/validator with English messages keyed by the
// JSON field name.
type Validator struct {
	validate *govalidator.Validate
	trans    ut.Translator
}

// New builds a Validator. It is safe for concurrent use.
func New() *Validator {
	v := govalidator.New(govalidator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &Validator{validate: v, trans: trans}
}

// Struct validates dst against its `validate` tags.
func (v *Validator) Struct(dst any) error {
	return v.validate.Struct(dst)
}

// TranslateErrors maps a validation error to field -> message. Errors that
// are not validation errors land under "detail".
func (v *Validator) TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Namespace()] = fe.Translate(v.trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Message flattens a validation error into a single sentence.
func (v *Validator) Message(err error) string {
	fields := v.TranslateErrors(err)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return strings.Join(msgs, "; ")
}
