package coupon

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	couponTypeTag  = "coupontype"
	couponTypeText = "invalid coupon type"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(couponTypeTag, couponTypeValidation)
	core.RegisterCustomTranslation(validate, translator, couponTypeTag, couponTypeText)
}

func couponTypeValidation(fl validator.FieldLevel) bool {
	val := Type(fl.Field().String())
	for _, typ := range Types {
		if val == typ {
			return true
		}
	}
	return false
}
