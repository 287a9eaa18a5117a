package services

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	languageDetector     lingua.LanguageDetector
	languageDetectorOnce sync.Once
)

func getLanguageDetector() lingua.LanguageDetector {
	languageDetectorOnce.Do(func() {
		languageDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English,
				lingua.Chinese,
				lingua.Japanese,
				lingua.Korean,
				lingua.Spanish,
				lingua.French,
				lingua.German,
				lingua.Russian,
				lingua.Portuguese,
				lingua.Italian,
			).
			WithLowAccuracyMode().
			Build()
	})
	return languageDetector
}

// DetectLanguage returns the lowercase ISO 639-1 code of the text, "unknown" when nothing matched.
func DetectLanguage(content string) string {
	if len(strings.TrimSpace(content)) == 0 {
		return "unknown"
	}
	if lang, ok := getLanguageDetector().DetectLanguageOf(content); ok {
		return strings.ToLower(lang.IsoCode639_1().String())
	}
	return "unknown"
}
