package user

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/darasa/core"
)

var (
	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"
	commonPasswords []string

	pwdTexts = map[string]string{
		pwdMinLenTag:    pwdMinLenText,
		pwdNoSpaceTag:   pwdNoSpaceText,
		pwdNotAllNumTag: pwdNotAllNumText,
		pwdAttrSimTag:   pwdAttrSimText,
		pwdNoCommonTag:  pwdNoCommonText,
	}
)

// InitValidators registers the password policy on NewUser, ChangePassword and ResetUserPassword.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(userStructValidation, NewUser{}, ChangePassword{})
	for tag, text := range pwdTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// LoadCommonPasswords reads a gzipped, newline separated list of passwords to refuse.
// A missing file only disables the check.
func LoadCommonPasswords(path string, logger core.Logger) {
	file, err := os.Open(path)
	if err != nil {
		logger.Warn(fmt.Sprintf("common passwords not loaded: %v", err))
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	gzRdr, err := gzip.NewReader(file)
	if err != nil {
		logger.Error(fmt.Sprintf("common passwords not loaded: %v", err), err)
		return
	}
	pwds := make([]string, 0, 20000)
	scanner := bufio.NewScanner(gzRdr)
	for scanner.Scan() {
		pwds = append(pwds, strings.ToLower(strings.TrimSpace(scanner.Text())))
	}
	sort.Strings(pwds)
	commonPasswords = pwds
}

// userStructValidation does struct level validation on NewUser and ChangePassword structs.
func userStructValidation(sl validator.StructLevel) {
	var pwd, name, email string
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		pwd, name, email = usr.Password, usr.Name, usr.Email
	case ChangePassword:
		pwd, name, email = usr.Password, usr.name, usr.email
	default:
		return
	}
	if pwd == "" {
		return // reported by `required`
	}
	if tag := checkPassword(pwd, name, email); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// validatePasswordPolicy is checkPassword for callers outside of struct validation.
func validatePasswordPolicy(pwd, name, email string) error {
	if tag := checkPassword(pwd, name, email); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: pwdTexts[tag]})
	}
	return nil
}

// checkPassword applies the password policy and returns the tag of the first violated rule:
// - minLen: 6
// - no whitespace
// - no all numeric
// - no user attrs similarity
// - no common password
func checkPassword(pwd, name, email string) string {
	var digitCount int

	runes := []rune(pwd)
	if len(runes) < pwdMinLen {
		return pwdMinLenTag
	}
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

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(usrAttr), "")).QuickRatio()
	}
	localPart := strings.SplitN(email, "@", 2)[0]
	if getRatio(pwd, name) >= pwdMaxSim || getRatio(pwd, email) >= pwdMaxSim || getRatio(pwd, localPart) >= pwdMaxSim {
		return pwdAttrSimTag
	}

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) && commonPasswords[idx] == lpwd {
		return pwdNoCommonTag
	}
	return ""
}
