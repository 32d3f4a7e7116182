package notification

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	perr "moonmining/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// checker holds the validator and its english translator
type checker struct {
	v     *validator.Validate
	trans ut.Translator
}

var (
	checkOnce sync.Once
	chk       *checker
)

// get builds the singleton on first use; messages name fields by their yaml key
func get() *checker {
	checkOnce.Do(func() {
		loc := en.New()
		uni := ut.New(loc, loc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		_ = v.RegisterTranslation("required", trans,
			func(ut ut.Translator) error { return ut.Add("required", "{0} is missing", true) },
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T("required", fe.Field())
				return msg
			},
		)
		chk = &checker{v: v, trans: trans}
	})
	return chk
}

// check validates a details struct and maps the first violation to a MalformedEvent error
func check(d any) error {
	err := get().v.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return perr.Malformedf(fe.Field(), "%s", fe.Translate(get().trans))
	}
	return perr.Malformedf("", "%v", err)
}
