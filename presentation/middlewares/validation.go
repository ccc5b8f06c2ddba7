package middlewares

import (
	"errors"
	"reflect"
	"sync"

	"github.com/devscore/integrity/domain/model"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type DefaultValidator struct {
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
}

var _ binding.StructValidator = &DefaultValidator{}

func (v *DefaultValidator) ValidateStruct(obj any) error {
	if kindOfData(obj) == reflect.Struct {
		v.lazyinit()
		if err := v.validate.Struct(obj); err != nil {
			return err
		}
	}
	return nil
}

func (v *DefaultValidator) Engine() any {
	v.lazyinit()
	return v.validate
}

func (v *DefaultValidator) Translator() ut.Translator {
	v.lazyinit()
	return v.translator
}

func (v *DefaultValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New(validator.WithRequiredStructEnabled())
		v.validate.SetTagName("binding")

		v.validate.RegisterValidation("logtype", func(fl validator.FieldLevel) bool {
			_, err := model.ParseLogType(fl.Field().String())
			return err == nil
		})

		en := en.New()
		uni := ut.New(en, en)

		v.translator, _ = uni.GetTranslator("en")

		en_translations.RegisterDefaultTranslations(v.validate, v.translator)

		v.registerCustomTranslations()
	})
}

func (v *DefaultValidator) registerCustomTranslations() {
	v.register("required", "{0} is required", false)
	v.register("min", "{0} must be at least {1}", true)
	v.register("max", "{0} must be at most {1}", true)
	v.register("gte", "{0} must be greater than or equal to {1}", true)
	v.register("lte", "{0} must be less than or equal to {1}", true)
	v.register("logtype", "{0} must be one of SNAPSHOT, ACTIVITY_DUMP, TAB_SWITCH, FULL_SCREEN_EXIT, REPLAY", false)
}

func (v *DefaultValidator) register(tag, text string, withParam bool) {
	v.validate.RegisterTranslation(tag, v.translator, func(ut ut.Translator) error {
		return ut.Add(tag, text, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		if withParam {
			t, _ := ut.T(tag, fe.Field(), fe.Param())
			return t
		}
		t, _ := ut.T(tag, fe.Field())
		return t
	})
}

func TranslateValidationErrors(err error) []string {
	var messages []string

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		if v, ok := binding.Validator.(*DefaultValidator); ok {
			trans := v.Translator()
			for _, e := range validationErrs {
				messages = append(messages, e.Translate(trans))
			}
		}
	}

	return messages
}

func TranslateValidationError(err error) string {
	messages := TranslateValidationErrors(err)
	if len(messages) > 0 {
		return messages[0]
	}
	return err.Error()
}

func kindOfData(data any) reflect.Kind {
	value := reflect.ValueOf(data)
	valueType := value.Kind()

	if valueType == reflect.Pointer {
		valueType = value.Elem().Kind()
	}

	return valueType
}
