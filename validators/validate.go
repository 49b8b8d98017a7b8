// Package validators holds the shared validator/v10 engine used by the
// per-area request validators.
package validators

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	phonePattern  = regexp.MustCompile(`^[0-9]{10}$`)
	aadharPattern = regexp.MustCompile(`^[0-9]{12}$`)
	otpPattern    = regexp.MustCompile(`^[0-9]{6}$`)
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	// custom validation tags
	phoneTag      = "phone10"
	aadharTag     = "aadhar"
	otpTag        = "otp6"
	notBlankTag   = "notblank"
	isoDateTag    = "isodate"
	identifierTag = "identifier"

	customMessages = map[string]string{
		phoneTag:      "must be a 10 digit phone number",
		aadharTag:     "must be a 12 digit Aadhar number",
		otpTag:        "must be a 6 digit code",
		notBlankTag:   "cannot be blank",
		isoDateTag:    "must be an ISO 8601 date",
		identifierTag: "must be a phone number or an email",
	}
)

// dateLayouts are tried in order by ParseDate
var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"}

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// report json names instead of Go field names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		}
		return name
	})

	_ = Validate.RegisterValidation(phoneTag, matches(phonePattern))
	_ = Validate.RegisterValidation(aadharTag, matches(aadharPattern))
	_ = Validate.RegisterValidation(otpTag, matches(otpPattern))
	_ = Validate.RegisterValidation(notBlankTag, notBlank)
	_ = Validate.RegisterValidation(isoDateTag, isoDate)
	_ = Validate.RegisterValidation(identifierTag, identifier)

	// the default translations are already registered, so a noop
	// registration func is enough for the custom tags
	registerFn := func(ut.Translator) error { return nil }
	for tag := range customMessages {
		_ = Validate.RegisterTranslation(tag, Translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	return fe.Field() + " " + customMessages[fe.Tag()]
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && re.MatchString(s)
	}
}

func notBlank(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && strings.TrimSpace(s) != ""
}

func isoDate(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := ParseDate(s)
	return err == nil
}

func identifier(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	return ok && (phonePattern.MatchString(s) || emailPattern.MatchString(s))
}

// ParseDate accepts a bare date or an RFC 3339 timestamp
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid date")
}

// IsPhone reports whether s is a bare 10 digit number
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// Struct validates v and returns field errors keyed by json name, or nil
func Struct(v interface{}) map[string]string {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}

	errs := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["body"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		key := fe.Field()
		if _, seen := errs[key]; !seen {
			errs[key] = fe.Translate(Translator)
		}
	}
	return errs
}

// TrimStrings trims every exported string field of the struct v points to
func TrimStrings(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}
