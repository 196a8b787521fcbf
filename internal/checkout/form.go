package checkout

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Form is the delivery form submitted with a checkout.
type Form struct {
	CustomerName  string `json:"customerName" validate:"required"`
	CustomerEmail string `json:"customerEmail" validate:"required,contact_email"`
	CountryCode   string `json:"countryCode"`
	MobileNumber  string `json:"mobileNumber" validate:"required"`
	Address       string `json:"address" validate:"required"`
	Pincode       string `json:"pincode" validate:"required"`
	Country       string `json:"country" validate:"required"`
	City          string `json:"city" validate:"required"`
}

// Country holds the per-country contact rules.
type Country struct {
	Name        string
	Code        string
	DialCode    string
	PhoneLength int
	Pincode     *regexp.Regexp
}

// DefaultCountry is preselected on the form.
const DefaultCountry = "India"

// Countries is the static table of supported delivery countries.
var Countries = []Country{
	{Name: "India", Code: "IN", DialCode: "91", PhoneLength: 10, Pincode: regexp.MustCompile(`^\d{6}$`)},
	{Name: "United States", Code: "US", DialCode: "1", PhoneLength: 10, Pincode: regexp.MustCompile(`^\d{5}(-\d{4})?$`)},
	{Name: "United Kingdom", Code: "GB", DialCode: "44", PhoneLength: 10, Pincode: regexp.MustCompile(`(?i)^[A-Z]{1,2}\d[A-Z\d]? ?\d[A-Z]{2}$`)},
	{Name: "United Arab Emirates", Code: "AE", DialCode: "971", PhoneLength: 9},
	{Name: "Australia", Code: "AU", DialCode: "61", PhoneLength: 9, Pincode: regexp.MustCompile(`^\d{4}$`)},
	{Name: "Canada", Code: "CA", DialCode: "1", PhoneLength: 10, Pincode: regexp.MustCompile(`(?i)^[A-Z]\d[A-Z] ?\d[A-Z]\d$`)},
}

// LookupCountry finds a country by its display name.
func LookupCountry(name string) (Country, bool) {
	for _, c := range Countries {
		if c.Name == name {
			return c, true
		}
	}
	return Country{}, false
}

// Phone is the full contact number: dial prefix followed by the mobile number.
// The prefix comes from CountryCode when set, else from the country table.
func (f Form) Phone() string {
	code := f.CountryCode
	if code == "" {
		code = "+91"
		if c, ok := LookupCountry(f.Country); ok {
			code = "+" + c.DialCode
		}
	}
	return code + f.MobileNumber
}

// DeliveryAddress is the single-line address stored on the order.
func (f Form) DeliveryAddress() string {
	return fmt.Sprintf("%s, %s, %s, %s", f.Address, f.City, f.Pincode, f.Country)
}

// ValidationError carries one message per invalid form field, keyed by the
// field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "Please ensure all required fields are filled correctly."
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

var requiredMessages = map[string]string{
	"customerName":  "Full Name is required.",
	"customerEmail": "Email is required.",
	"mobileNumber":  "Mobile Number is required.",
	"address":       "Delivery Address is required.",
	"pincode":       "Pincode is required.",
	"country":       "Country is required.",
	"city":          "City is required.",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateForm returns the per-field errors of f, or nil when f is valid.
// Required checks ignore surrounding whitespace; country rules apply to
// the selected country only.
func ValidateForm(f Form) map[string]string {
	errs := make(map[string]string)

	trimmed := Form{
		CustomerName:  strings.TrimSpace(f.CustomerName),
		CustomerEmail: strings.TrimSpace(f.CustomerEmail),
		MobileNumber:  strings.TrimSpace(f.MobileNumber),
		Address:       strings.TrimSpace(f.Address),
		Pincode:       strings.TrimSpace(f.Pincode),
		Country:       strings.TrimSpace(f.Country),
		City:          strings.TrimSpace(f.City),
	}
	if err := validate.Struct(trimmed); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				switch fe.Tag() {
				case "required":
					errs[fe.Field()] = requiredMessages[fe.Field()]
				case "contact_email":
					errs[fe.Field()] = "Email is invalid."
				}
			}
		}
	}

	country, ok := LookupCountry(f.Country)
	if ok {
		if _, bad := errs["mobileNumber"]; !bad && country.PhoneLength > 0 &&
			(utf8.RuneCountInString(trimmed.MobileNumber) != country.PhoneLength || validate.Var(trimmed.MobileNumber, "number") != nil) {
			errs["mobileNumber"] = fmt.Sprintf("Must be %d digits for %s.", country.PhoneLength, country.Name)
		}
		if _, bad := errs["pincode"]; !bad && country.Pincode != nil && !country.Pincode.MatchString(f.Pincode) {
			errs["pincode"] = fmt.Sprintf("Invalid pincode format for %s.", country.Name)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
