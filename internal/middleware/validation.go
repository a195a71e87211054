package middleware

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	pkgvalidator "github.com/jwalitptl/clinic-dashboard-api/pkg/validator"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom tags and json field names on gin's
// binding validator. Safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected binding validator engine")
			return
		}
		registerErr = pkgvalidator.Register(v)
	})
	return registerErr
}
