package customerio

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/getzep/cioexport/pkg/models"
)

const emailShapedTag = "email_shaped"

// emailShapedPattern accepts a dotted or quoted local part and either a
// bracketed IPv4 literal or a dotted domain ending in two or more letters.
var emailShapedPattern = regexp.MustCompile(
	`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`,
)

var validate = newIdentityValidator()

func newIdentityValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation(emailShapedTag, func(fl validator.FieldLevel) bool {
		return emailShapedPattern.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
	return v
}

// IsEmailShaped reports whether distinctID looks like an email address.
// Matching is case-insensitive.
func IsEmailShaped(distinctID string) bool {
	return validate.Var(strings.ToLower(distinctID), "required,"+emailShapedTag) == nil
}

// ClassifyIdentity returns the CustomerIdentity of distinctID.
func ClassifyIdentity(distinctID string) models.CustomerIdentity {
	if IsEmailShaped(distinctID) {
		return models.IdentityEmail
	}
	return models.IdentityOpaque
}
