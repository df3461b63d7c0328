package whisper

import (
	"fmt"
	"sort"
	"strings"
)

// LanguageAuto lets the model pick the spoken language itself.
const LanguageAuto = "auto"

var languages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"ru": "Russian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"hi": "Hindi",
}

func LanguageCodes() []string {
	codes := make([]string, 0, len(languages)+1)
	codes = append(codes, LanguageAuto)
	for code := range languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// NormalizeLanguage validates a user-supplied language code. Empty input
// and "auto" mean autodetection.
func NormalizeLanguage(input string) (string, error) {
	code := strings.TrimSpace(strings.ToLower(input))
	if code == "" || code == LanguageAuto {
		return LanguageAuto, nil
	}

	if _, ok := languages[code]; !ok {
		return "", fmt.Errorf("unsupported language %q (supported: %s)", input, strings.Join(LanguageCodes(), ", "))
	}

	return code, nil
}
