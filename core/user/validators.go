package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/sistemanotas/notas/core"
)

var (
	roleTag            = "role"
	errInvalidRoleText = "rol inválido"

	requiredIfTag         = "required_if"
	errCodeRequiredText   = "el código es obligatorio para los alumnos"
	errCodeNotAllowedText = "solo los alumnos pueden tener código"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("la contraseña debe tener al menos %d caracteres", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "la contraseña no debe contener espacios"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "la contraseña no puede ser completamente numérica"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "la contraseña es demasiado similar a los datos del usuario"
)

// InitValidators registers the user validations and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, errInvalidRoleText)
	core.RegisterCustomTranslation(validate, translator, requiredIfTag, errCodeRequiredText, true)

	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{}, ChangePassword{}, ResetUserPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).IsValid()
}

// userStructValidation applies the password policy to the structs carrying a new password.
func userStructValidation(sl validator.StructLevel) {
	switch v := sl.Current().Interface().(type) {
	case NewUser:
		validatePassword(v.Password, sl, v.Name, v.Email, v.Code)
	case UpdateUser:
		if v.Password != "" {
			validatePassword(v.Password, sl, v.Name, v.Email, v.Code)
		}
	case ChangePassword:
		validatePassword(v.Password, sl, v.usr.Name, v.usr.Email, v.usr.Code.String)
	case ResetUserPassword:
		validatePassword(v.Password, sl, v.usr.Name, v.usr.Email, v.usr.Code.String)
	}
}

func validatePassword(pwd string, sl validator.StructLevel, attrs ...string) {
	if pwd == "" {
		return // reported by `required`
	}
	if tag := checkPassword(pwd, attrs...); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// checkPassword returns the tag of the first password rule violated, or "" if pwd is acceptable:
// - minLen: 8
// - no whitespace
// - not all numeric
// - not similar to the user attributes
func checkPassword(pwd string, attrs ...string) string {
	runes := []rune(pwd)
	if len(runes) < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range runes {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(runes) {
		return pwdNotAllNumTag
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		attr = strings.ToLower(attr)
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(attr, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
		// compare with the local part too, "juanperez1" vs "juanperez@colegio.edu"
		if at := strings.IndexByte(attr, '@'); at > 0 {
			local := attr[:at]
			if difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(local, "")).QuickRatio() >= pwdMaxSim {
				return pwdAttrSimTag
			}
		}
	}
	return ""
}
