package translation

import (
	"github.com/leonelquinteros/gotext"
	"strings"
)

// Configure loads the message catalog for lang from the locales directory.
// English source strings double as message ids, so a missing catalog still
// yields readable text.
func Configure(localesDir, lang string) {
	gotext.Configure(localesDir, strings.ToLower(lang), "default")
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
