package translation

import (
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// Configure loads the .po catalogue for lang from dir. Unknown or empty languages fall back to
// the English message ids.
func Configure(dir, lang string) {
	gotext.Configure(dir, NormalizeLanguage(lang), "default")
}

// NormalizeLanguage turns values like "it_IT.UTF-8" or "pt-BR" into a base language code.
func NormalizeLanguage(lang string) string {
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil || tag == language.Und {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
