package attendance

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

var (
	statusTag  = "attstatus"
	statusText = "status must be one of: present, absent, late, justified"
)

func init() {
	_ = core.Validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(statusTag, statusText)
}

// statusValidation checks that the provided status is in AllStatuses
func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}
