package validator

import (
	"database/sql/driver"
	"fmt"
	"net/url"
	"reflect"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/guregu/null/v6"

	"github.com/beanbocchi/genestack/internal/model"
)

var (
	once     sync.Once
	validate *CustomValidator
)

type CustomValidator struct {
	trans     ut.Translator
	validator *validator.Validate
}

func New() (*CustomValidator, error) {
	en := en.New()
	uni := ut.New(en, en)
	validate := validator.New(
		validator.WithRequiredStructEnabled(),
	)

	trans, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("failed to register translations: %w", err)
	}

	if err := validate.RegisterValidation("serverurl", isServerURL); err != nil {
		return nil, fmt.Errorf("failed to register serverurl: %w", err)
	}
	if err := validate.RegisterTranslation("serverurl", trans,
		func(ut ut.Translator) error {
			return ut.Add("serverurl", "{0} must be an http or https address with a host", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			text, _ := ut.T("serverurl", fe.Field())
			return text
		},
	); err != nil {
		return nil, fmt.Errorf("failed to register serverurl translation: %w", err)
	}

	validate.RegisterCustomTypeFunc(
		ParseNullable,
		null.Bool{},
		null.Int64{},
		null.String{},
	)

	return &CustomValidator{
		trans:     trans,
		validator: validate,
	}, nil
}

// Validate checks i and returns ErrValidation carrying the translated
// messages as a JSON object keyed by field namespace.
func (cv *CustomValidator) Validate(i any) error {
	err := cv.validator.Struct(i)
	if valErr, ok := err.(validator.ValidationErrors); ok {
		text, err := sonic.ConfigStd.Marshal(valErr.Translate(cv.trans))
		if err != nil {
			return valErr
		}
		return model.ErrValidation.Fmt(string(text))
	}

	return err
}

// isServerURL accepts absolute http(s) URLs naming a host.
func isServerURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type Nullable interface {
	driver.Valuer
}

// Workaround for omitnil not working with "untyped nil"
// https://github.com/go-playground/validator/issues/1209#issuecomment-1892359649
var nilValue *struct{}

// ParseNullable implements validator.CustomTypeFunc
func ParseNullable(field reflect.Value) any {
	if nullValue, ok := field.Interface().(Nullable); ok {
		if val, err := nullValue.Value(); err == nil {
			if val == nil {
				return nilValue
			}
			return val
		}
	}

	return nil
}

// Validate checks i with the shared validator.
func Validate(i any) error {
	once.Do(func() {
		var err error
		validate, err = New()
		if err != nil {
			panic(fmt.Sprintf("failed to create validator: %v", err))
		}
	})
	return validate.Validate(i)
}
