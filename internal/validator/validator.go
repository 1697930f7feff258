package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// trans is the English translator shared by every request.
var trans ut.Translator

// Setup installs JSON field names, English messages and the custom tags on
// Gin's validator. Call once at startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	trans, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterValidation("question_category", func(fl govalidator.FieldLevel) bool {
		return model.QuestionCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterTranslation("question_category", trans,
		func(ut ut.Translator) error {
			return ut.Add("question_category", "{0} must be one of aptitude, logical, quantitative, verbal or technical", true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T("question_category", fe.Field())
			return msg
		},
	)
}

// TranslateErrors maps a binding error to field messages. Nested fields keep
// their path, e.g. "questions[3].options", so a bulk upload points at the
// offending entry. Errors that are not validation errors land under "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fieldPath(fe)] = translate(fe)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// fieldPath drops the Go struct names (the root and any embedded struct)
// from the namespace, leaving the JSON path.
func fieldPath(fe govalidator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	for len(parts) > 1 && isGoName(parts[0]) {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

func isGoName(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

func translate(fe govalidator.FieldError) string {
	if trans == nil {
		return fe.Error()
	}
	return fe.Translate(trans)
}

// Struct validates a value decoded outside Gin, such as a WebSocket message.
func Struct(v interface{}) map[string]string {
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Bind decodes the JSON body into dst and validates it.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
