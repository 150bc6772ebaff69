package domain

import "github.com/go-playground/validator/v10"

// validate is the package-level validator instance shared by all Validate
// methods in this package.
var validate = validator.New(validator.WithRequiredStructEnabled())
