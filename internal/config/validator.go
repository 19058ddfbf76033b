package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterStructValidation(validateProgressWeights, ProgressWeights{})
	validate.RegisterStructValidation(validateRemote, RemoteConfig{})

	translations := map[string]string{
		"weights_sum":     "{0} must sum to 100",
		"required_driver": "{0} is required for the selected remote driver",
	}
	for tag, text := range translations {
		if err := validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(fe.Tag(), strings.TrimPrefix(fe.Namespace(), "Config."))
			return t
		}); err != nil {
			return nil, nil, fmt.Errorf("failed to register %s translation: %w", tag, err)
		}
	}

	return validate, trans, nil
}

func validateProgressWeights(sl validator.StructLevel) {
	weights := sl.Current().Interface().(ProgressWeights)
	if weights.Total() != 100 {
		sl.ReportError(weights.Total(), "total", "Total", "weights_sum", "")
	}
}

func validateRemote(sl validator.StructLevel) {
	remote := sl.Current().Interface().(RemoteConfig)
	switch remote.Driver {
	case "firebase":
		if remote.Firebase.BaseURL == "" {
			sl.ReportError(remote.Firebase.BaseURL, "firebase.base_url", "BaseURL", "required_driver", "")
		}
	case "mysql":
		if remote.Database.Host == "" {
			sl.ReportError(remote.Database.Host, "database.host", "Host", "required_driver", "")
		}
		if remote.Database.Database == "" {
			sl.ReportError(remote.Database.Database, "database.database", "Database", "required_driver", "")
		}
	}
}
