package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// customTag pairs a validation tag with its check and error text.
type customTag struct {
	tag   string
	text  string
	check validator.Func
}

var (
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)
	slugRegex          = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	customTags = []customTag{
		{
			tag:   "alphanum_",
			text:  "only alphanumeric characters and underscores are allowed",
			check: func(fl validator.FieldLevel) bool { return alphaNumUnderRegex.MatchString(fl.Field().String()) },
		},
		{
			tag:   "slug",
			text:  "only lowercase alphanumeric characters and hyphens are allowed",
			check: func(fl validator.FieldLevel) bool { return slugRegex.MatchString(fl.Field().String()) },
		},
	}

	requiredText = "this field is required"
)

// InitValidators wires custom tags and translations into validate. Field
// names in error messages come from JSON tags, not Go struct names.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for _, ct := range customTags {
		_ = validate.RegisterValidation(ct.tag, ct.check)
		RegisterCustomTranslation(validate, translator, ct.tag, ct.text)
	}

	// friendlier texts for the builtin required checks
	RegisterCustomTranslation(validate, translator, "required", requiredText, true)
	RegisterCustomTranslation(validate, translator, "required_with", requiredText, true)
}

// RegisterCustomTranslation registers the error text rendered when the given
// validation tag fails. Pass override for tags the library already translates.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field())
			return msg
		},
	)
}
