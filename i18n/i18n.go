// Package i18n translates locsmith's own messages.
//
// The tool localizes other people's projects, so its own output should
// hold itself to the same standard: user-facing strings go through T
// (or N for counted messages) and the catalogs ship inside the binary.
// Call Init once at startup; before that, T and N pass the English
// source text through untouched, which keeps the package safe to use
// from code paths that may run before main.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Catalog layout: locales/<lang>/LC_MESSAGES/locsmith.po
//
//go:embed all:locales
var locales embed.FS

const domain = "locsmith"

var po *gotext.Locale

// Init loads the embedded catalog for lang. An empty lang falls back to
// the environment (see detectLanguage); an unknown lang simply yields
// untranslated output, never an error.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T returns the translation of msgid, or msgid itself when no catalog
// entry exists or Init has not run.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N is the plural form of T; the catalog's plural formula picks between
// the forms, with English one/many as the fallback.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// gettext precedence for the locale environment.
var localeEnv = []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

// detectLanguage resolves the user's preferred language from the
// environment, returning "en" when nothing usable is set.
func detectLanguage() string {
	for _, env := range localeEnv {
		if lang := normalizeLocale(env, os.Getenv(env)); lang != "" {
			return lang
		}
	}
	return "en"
}

// normalizeLocale reduces an environment value to a bare language tag:
// "zh_CN.UTF-8" becomes "zh_CN", a LANGUAGE list keeps its first entry,
// and the C/POSIX pseudo-locales count as unset.
func normalizeLocale(env, val string) string {
	if env == "LANGUAGE" {
		val, _, _ = strings.Cut(val, ":")
	}
	val, _, _ = strings.Cut(val, ".")
	if val == "C" || val == "POSIX" {
		return ""
	}
	return val
}
