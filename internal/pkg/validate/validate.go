package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/nbutton23/zxcvbn-go"
)

// DefaultPasswordMinLength applies until SetPasswordMinLength is called.
const DefaultPasswordMinLength = 10

// v is the package-level singleton validator. Custom tags are registered in
// init() before the first call to Struct.
var v = validator.New()

var (
	passwordMinLength  atomic.Int64
	passwordMinEntropy atomic.Uint64 // math.Float64bits
)

func init() {
	passwordMinLength.Store(DefaultPasswordMinLength)
	if err := v.RegisterValidation("password", validPassword); err != nil {
		panic(err)
	}
}

// SetPasswordMinLength sets the minimum number of characters the "password"
// tag accepts. Values below 1 are ignored.
func SetPasswordMinLength(n int) {
	if n < 1 {
		return
	}
	passwordMinLength.Store(int64(n))
}

// SetPasswordMinEntropy sets the zxcvbn entropy, in bits, the "password" tag
// requires. Zero, the default, disables the strength check.
func SetPasswordMinEntropy(bits float64) {
	if bits < 0 || math.IsNaN(bits) {
		bits = 0
	}
	passwordMinEntropy.Store(math.Float64bits(bits))
}

// validPassword rejects secrets that are too short, contain only whitespace
// or are too easy to guess. An Email field next to the password counts as a
// known term when scoring.
func validPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if int64(utf8.RuneCountInString(s)) < passwordMinLength.Load() {
		return false
	}
	if strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0 {
		return false
	}
	floor := math.Float64frombits(passwordMinEntropy.Load())
	if floor == 0 {
		return true
	}
	return zxcvbn.PasswordStrength(s, userTerms(fl.Parent())).Entropy >= floor
}

func userTerms(parent reflect.Value) []string {
	for parent.Kind() == reflect.Pointer {
		parent = parent.Elem()
	}
	if parent.Kind() != reflect.Struct {
		return nil
	}
	email := parent.FieldByName("Email")
	if !email.IsValid() || email.Kind() != reflect.String || email.String() == "" {
		return nil
	}
	terms := []string{email.String()}
	if local, _, ok := strings.Cut(email.String(), "@"); ok {
		terms = append(terms, local)
	}
	return terms
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
