package birdnet

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aviaudio/perch/internal/conf"
	"github.com/aviaudio/perch/internal/errors"
	"github.com/aviaudio/perch/internal/logger"
)

// LabelSet holds the raw label lines for the default locale and, when
// available, the UI locale. Files are merged by line index: line i of both
// files describes model class i.
type LabelSet struct {
	Default   []string // always the fallback locale, drives class identity
	Localized []string // nil when the UI locale file is missing or unreadable
	Locale    string   // actual locale of Localized, or the fallback locale
}

// LoadLabelSet reads labels_<locale>.txt files from dir. The default locale
// file is required; a missing or unreadable file for a non-default locale
// falls back silently to the default set, which matches the product
// behavior of continuing in the fallback language.
func LoadLabelSet(dir, locale string) (*LabelSet, error) {
	defaultLines, err := readLabelFile(filepath.Join(dir, labelFileName(conf.DefaultFallbackLocale)))
	if err != nil {
		return nil, errors.New(err).
			Component("birdnet").
			Category(errors.CategoryLabelLoad).
			Context("dir", dir).
			Context("locale", conf.DefaultFallbackLocale).
			Build()
	}

	set := &LabelSet{Default: defaultLines, Locale: conf.DefaultFallbackLocale}
	if locale == "" || locale == conf.DefaultFallbackLocale {
		return set, nil
	}

	localized, err := readLabelFile(filepath.Join(dir, labelFileName(locale)))
	switch {
	case err != nil:
		getLogger().Warn("label file for locale unavailable, using fallback",
			logger.String("requested_locale", locale),
			logger.String("fallback_locale", conf.DefaultFallbackLocale),
			logger.Error(err))
	case len(localized) != len(defaultLines):
		getLogger().Warn("label file line count mismatch, using fallback",
			logger.String("requested_locale", locale),
			logger.Int("localized_lines", len(localized)),
			logger.Int("default_lines", len(defaultLines)))
	default:
		set.Localized = localized
		set.Locale = locale
	}
	return set, nil
}

// Validate checks the label count against the model's class count. A
// mismatch means labels and model artifact are out of sync.
func (ls *LabelSet) Validate(numClasses int) error {
	if len(ls.Default) != numClasses {
		return errors.Newf("label count mismatch: model expects %d classes but label file has %d lines",
			numClasses, len(ls.Default)).
			Component("birdnet").
			Category(errors.CategoryValidation).
			Context("expected_labels", numClasses).
			Context("actual_labels", len(ls.Default)).
			Build()
	}
	return nil
}

func labelFileName(locale string) string {
	return fmt.Sprintf("labels_%s.txt", locale)
}

func readLabelFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path built from configured label directory
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
