package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	unitKindTag  = "unitkind"
	unitKindText = "kind must be one of: video, text"
)

// InitValidators registers the course validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(unitKindTag, unitKindValidation)
	core.RegisterCustomTranslation(validate, translator, unitKindTag, unitKindText)
}

func unitKindValidation(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	for _, k := range UnitKinds {
		if k == kind {
			return true
		}
	}
	return false
}
