package language

import (
	"strings"
	"unicode"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Languages supported for fact-checking.
var supportedLanguages = []string{"en", "es", "fr", "de", "zh", "ja", "ar", "pt", "ru", "hi", "it", "ko"}

const (
	englishMatchRatio  = 0.2
	maxHeuristicScore  = 0.9
	defaultEnglishConf = 0.5
)

var englishStopwords = toSet(strings.Fields(
	"the this is are was were been being have has had do does did will would could should " +
		"might must shall can may a an and but or not be to of for with that it you he she they " +
		"we i my your his her their our its what which who whom whose where when why how all " +
		"each every both few more most other some such no nor too very just also only"))

var stopwordsByLanguage = map[string]map[string]struct{}{
	"es": toSet(strings.Fields("el la los las de que es un una por con no se para")),
	"fr": toSet(strings.Fields("le la les de un une et est pour dans ce qui ne pas")),
	"de": toSet(strings.Fields("der die das und von zu den mit ist des dem")),
	"pt": toSet(strings.Fields("o a os as de que do da em um uma para com não por")),
	"it": toSet(strings.Fields("il lo la i gli le di da con su per tra fra")),
}

var diacriticsByLanguage = map[string]string{
	"es": "áéíóúñ",
	"fr": "àâçéèêëîïôùûü",
	"de": "äöüß",
	"pt": "ãõç",
	"it": "àèéìòù",
}

var scriptsByLanguage = []struct {
	code   string
	ranges []*unicode.RangeTable
}{
	// Kana before Han: Japanese text usually mixes both, Chinese has no kana.
	{code: "ja", ranges: []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana}},
	{code: "zh", ranges: []*unicode.RangeTable{unicode.Han}},
	{code: "ar", ranges: []*unicode.RangeTable{unicode.Arabic}},
	{code: "ru", ranges: []*unicode.RangeTable{unicode.Cyrillic}},
	{code: "ko", ranges: []*unicode.RangeTable{unicode.Hangul}},
	{code: "hi", ranges: []*unicode.RangeTable{unicode.Devanagari}},
}

// DetectHeuristic guesses the language of text without calling any API.
// English is checked first via stopword ratio, then non-Latin scripts, then
// stopwords and diacritics of other supported Latin-script languages.
func DetectHeuristic(text string) Detection {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return defaultDetection()
	}

	if matches := countMatches(words, englishStopwords); matches >= 2 {
		ratio := float64(matches) / float64(len(words))
		if ratio >= englishMatchRatio {
			return Detection{
				Language:   "en",
				Confidence: clampScore(ratio * 2),
				Name:       LanguageName("en"),
				Method:     "heuristic",
			}
		}
	}

	for _, script := range scriptsByLanguage {
		if count := countRunesIn(text, script.ranges); count > 0 {
			return heuristicDetection(script.code, count, len(words))
		}
	}

	for _, code := range []string{"es", "fr", "de", "pt", "it"} {
		count := countMatches(words, stopwordsByLanguage[code])
		count += countRunesOf(text, diacriticsByLanguage[code])

		if count > 0 {
			return heuristicDetection(code, count, len(words))
		}
	}

	return defaultDetection()
}

// LanguageName returns the English display name for a language code.
func LanguageName(code string) string {
	tag, err := xlang.Parse(code)
	if err != nil {
		return code
	}

	name := display.English.Languages().Name(tag)
	if name == "" {
		return code
	}

	return name
}

// SupportedLanguages lists the language codes supported for fact-checking.
func SupportedLanguages() []string {
	out := make([]string, len(supportedLanguages))
	copy(out, supportedLanguages)

	return out
}

// IsLanguageSupported reports whether a language code is supported.
func IsLanguageSupported(code string) bool {
	for _, supported := range supportedLanguages {
		if code == supported {
			return true
		}
	}

	return false
}

func heuristicDetection(code string, matches, wordCount int) Detection {
	return Detection{
		Language:   code,
		Confidence: clampScore(float64(matches) / float64(wordCount) * 2),
		Name:       LanguageName(code),
		Method:     "heuristic",
	}
}

func defaultDetection() Detection {
	return Detection{
		Language:   "en",
		Confidence: defaultEnglishConf,
		Name:       LanguageName("en"),
		Method:     "default",
	}
}

func countMatches(words []string, set map[string]struct{}) int {
	count := 0

	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if _, ok := set[w]; ok {
			count++
		}
	}

	return count
}

func countRunesIn(text string, ranges []*unicode.RangeTable) int {
	count := 0

	for _, r := range text {
		if unicode.In(r, ranges...) {
			count++
		}
	}

	return count
}

func countRunesOf(text, chars string) int {
	count := 0

	for _, r := range strings.ToLower(text) {
		if strings.ContainsRune(chars, r) {
			count++
		}
	}

	return count
}

func clampScore(v float64) float64 {
	if v > maxHeuristicScore {
		return maxHeuristicScore
	}

	return v
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	return set
}
