package handlers

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"restaurant-directory-api/auth"
	"restaurant-directory-api/models"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the custom binding tags to gin's validator and
// makes field errors use the request's field names.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(requestFieldName)
		if registerErr = v.RegisterValidation("strongpassword", strongPassword); registerErr != nil {
			return
		}
		registerErr = v.RegisterValidation("pricerange", priceRange)
	})
	return registerErr
}

func strongPassword(fl validator.FieldLevel) bool {
	return auth.StrongPassword(fl.Field().String())
}

func priceRange(fl validator.FieldLevel) bool {
	return models.PriceRange(fl.Field().String()).Valid()
}

func requestFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
