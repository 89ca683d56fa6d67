package conf

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/aviaudio/perch/internal/errors"
)

// supportedLocales are the locales label files ship for. The matcher maps
// region variants (en-US, pt-BR) onto these bases.
var supportedLocales = []language.Tag{
	language.English,    // en
	language.German,     // de
	language.Spanish,    // es
	language.French,     // fr
	language.Italian,    // it
	language.Dutch,      // nl
	language.Polish,     // pl
	language.Portuguese, // pt
	language.Finnish,    // fi
	language.Swedish,    // sv
	language.Norwegian,  // no
	language.Danish,     // da
	language.Czech,      // cs
	language.Russian,    // ru
	language.Japanese,   // ja
	language.Chinese,    // zh
}

var localeMatcher = language.NewMatcher(supportedLocales)

// NormalizeLocale maps a user supplied locale string onto a supported base
// locale code. Empty input yields the default fallback locale. Unparseable
// input is a configuration error; a parseable but unsupported locale matches
// to the closest supported one per BCP 47 rules.
func NormalizeLocale(locale string) (string, error) {
	locale = strings.TrimSpace(strings.ToLower(locale))
	if locale == "" {
		return DefaultFallbackLocale, nil
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return "", errors.Newf("unsupported locale %q: %v", locale, err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("locale", locale).
			Build()
	}

	_, idx, conf := localeMatcher.Match(tag)
	if conf == language.No {
		return DefaultFallbackLocale, nil
	}
	base, _ := supportedLocales[idx].Base()
	return base.String(), nil
}
