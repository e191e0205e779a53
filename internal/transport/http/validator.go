package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var enTrans ut.Translator

func init() {
	validate = validator.New()
	english := en.New()
	uni := ut.New(english, english)
	enTrans, _ = uni.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, enTrans)

	// report json field names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(field.Name)
		}
		return name
	})

	validate.RegisterAlias("roomcode", "alphanum,min=6,max=8")

	_ = validate.RegisterTranslation("roomcode", enTrans, func(ut ut.Translator) error {
		return ut.Add("roomcode", "{0} must be 6 to 8 letters or digits", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("roomcode", fe.Field())
		return t
	})
}

// validationMessage renders validator errors as one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(enTrans))
	}
	return strings.Join(msgs, "; ")
}
