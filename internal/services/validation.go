package services

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed field check, reported with a stable message key.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// fieldRule validates a single named field. Optional rules are skipped for
// absent fields; required rules fail them.
type fieldRule struct {
	field    string
	tag      string
	code     string
	required bool
}

// Workflow names for ValidateWorkflow. Each maps to an ordered rule list.
const (
	WorkflowSignUp        = "signUp"
	WorkflowSignIn        = "signIn"
	WorkflowVerifyUser    = "verifyUser"
	WorkflowResetPassword = "resetPassword"
	WorkflowSetupPassword = "setupPassword"
	WorkflowUpdateProfile = "updateProfile"
	WorkflowCreateByAdmin = "createUserByAdmin"
)

var workflowRules = map[string][]fieldRule{
	WorkflowSignUp: {
		{field: "email", tag: "required,email", code: "email.invalid", required: true},
		{field: "password", tag: "required,min=8,max=30", code: "password.length.invalid", required: true},
		{field: "firstName", tag: "required,max=30,alpha_space", code: "firstName.invalid", required: true},
		{field: "lastName", tag: "required,max=30,alpha_space", code: "lastName.invalid", required: true},
		{field: "role", tag: "omitempty,oneof=customer company", code: "role.invalid"},
	},
	WorkflowSignIn: {
		{field: "email", tag: "required,email", code: "email.invalid", required: true},
		{field: "password", tag: "required,min=8,max=30", code: "password.length.invalid", required: true},
	},
	WorkflowVerifyUser: {
		{field: "dob", tag: "required", code: "dob.invalid", required: true},
		{field: "countryCode", tag: "required,dialing_code", code: "countryCode.invalid", required: true},
		{field: "phoneNumber", tag: "required,numeric,min=6,max=15", code: "phoneNumber.invalid", required: true},
	},
	WorkflowResetPassword: {
		{field: "password", tag: "required,min=8,max=30", code: "password.length.invalid", required: true},
		{field: "confirmPassword", tag: "required", code: "confirmPassword.required", required: true},
	},
	WorkflowSetupPassword: {
		{field: "password", tag: "required,min=8,max=30", code: "password.length.invalid", required: true},
		{field: "confirmPassword", tag: "required", code: "confirmPassword.required", required: true},
	},
	WorkflowUpdateProfile: {
		{field: "firstName", tag: "omitempty,max=30,alpha_space", code: "firstName.invalid"},
		{field: "lastName", tag: "omitempty,max=30,alpha_space", code: "lastName.invalid"},
		{field: "countryCode", tag: "omitempty,dialing_code", code: "countryCode.invalid"},
		{field: "phoneNumber", tag: "omitempty,numeric,min=6,max=15", code: "phoneNumber.invalid"},
	},
	WorkflowCreateByAdmin: {
		{field: "email", tag: "required,email", code: "email.invalid", required: true},
		{field: "firstName", tag: "required,max=30,alpha_space", code: "firstName.invalid", required: true},
		{field: "lastName", tag: "required,max=30,alpha_space", code: "lastName.invalid", required: true},
		{field: "role", tag: "required,oneof=customer company master content", code: "role.invalid", required: true},
	},
}

var (
	workflowValidate = validator.New()

	alphaSpaceRegex  = regexp.MustCompile(`^[a-zA-Z ]+$`)
	countryCodeRegex = regexp.MustCompile(`^\+[0-9]{1,3}$`)
)

func init() {
	_ = workflowValidate.RegisterValidation("alpha_space", func(fl validator.FieldLevel) bool {
		return alphaSpaceRegex.MatchString(fl.Field().String())
	})
	// Registered under a name that does not collide with the library's
	// built-in country_code alias, which would take precedence.
	_ = workflowValidate.RegisterValidation("dialing_code", func(fl validator.FieldLevel) bool {
		return countryCodeRegex.MatchString(fl.Field().String())
	})
}

// ValidateWorkflow runs the named rule group against a field map and returns
// the list of failed fields. Unknown workflows validate nothing.
func ValidateWorkflow(workflow string, fields map[string]string) []FieldError {
	var errs []FieldError
	for _, rule := range workflowRules[workflow] {
		value, present := fields[rule.field]
		if !present && !rule.required {
			continue
		}
		if err := workflowValidate.Var(value, rule.tag); err != nil {
			errs = append(errs, FieldError{Field: rule.field, Code: rule.code})
		}
	}
	return errs
}
