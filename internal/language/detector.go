// Package language detects the language of document text and translates
// documents into the pipeline's default language before classification.
package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// EnglishCode is the ISO 639-1 code of the default language.
const EnglishCode = "en"

// Detection is the outcome of a language check.
type Detection struct {
	Code       string  // ISO 639-1, lower case
	Name       string  // English name, e.g. "Spanish"
	Confidence float64 // 0..1; 0 when the default was assumed
}

// Is reports whether d is the language with ISO 639-1 code.
func (d Detection) Is(code string) bool {
	return strings.EqualFold(d.Code, code)
}

// English is the default language.
var English = Detection{Code: EnglishCode, Name: lingua.English.String()}

// Detector determines the dominant language of a text.
type Detector interface {
	Detect(text string) Detection
}

// supported is the language set documents are expected in.
var supported = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Chinese,
	lingua.Vietnamese,
	lingua.Tagalog,
	lingua.Korean,
}

// LinguaDetector is a Detector backed by lingua-go.
type LinguaDetector struct {
	detector lingua.LanguageDetector
	fallback Detection
}

// Lookup returns the supported language with ISO 639-1 code.
func Lookup(code string) (Detection, bool) {
	for _, l := range supported {
		if strings.EqualFold(l.IsoCode639_1().String(), code) {
			return Detection{Code: strings.ToLower(l.IsoCode639_1().String()), Name: l.String()}, true
		}
	}
	return Detection{}, false
}

// NewLinguaDetector builds a detector. Text whose language cannot be
// determined is reported as defaultCode; an unknown default falls back to English.
func NewLinguaDetector(defaultCode string) *LinguaDetector {
	fallback, ok := Lookup(defaultCode)
	if !ok {
		fallback = English
	}

	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(supported...).
			Build(),
		fallback: fallback,
	}
}

// Default returns the language assumed for undetectable text.
func (d *LinguaDetector) Default() Detection { return d.fallback }

// Detect implements Detector.
func (d *LinguaDetector) Detect(text string) Detection {
	if strings.TrimSpace(text) == "" {
		return d.fallback
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return d.fallback
	}
	return Detection{
		Code:       strings.ToLower(lang.IsoCode639_1().String()),
		Name:       lang.String(),
		Confidence: d.detector.ComputeLanguageConfidence(text, lang),
	}
}
