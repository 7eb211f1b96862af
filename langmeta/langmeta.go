// Package langmeta maps .lproj locale codes to native display names for
// CLI output. Apple locale codes carry script subtags (zh-Hans, zh-Hant)
// and region subtags (pt-BR, en-GB); Resolve normalizes either form and
// falls back to the base language.
package langmeta

import "strings"

// Meta describes locale display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry covers the locales that commonly appear as *.lproj bundles.
// Variants not listed resolve through base-language fallback.
var Registry = map[string]Meta{
	"Base":    {Name: "Base (development language)", Flag: ""},
	"ar":      {Name: "العربية", Flag: "🇸🇦"},
	"ca":      {Name: "Català", Flag: "🇪🇸"},
	"cs":      {Name: "Čeština", Flag: "🇨🇿"},
	"da":      {Name: "Dansk", Flag: "🇩🇰"},
	"de":      {Name: "Deutsch", Flag: "🇩🇪"},
	"el":      {Name: "Ελληνικά", Flag: "🇬🇷"},
	"en":      {Name: "English", Flag: "🇺🇸"},
	"en-AU":   {Name: "English (Australia)", Flag: "🇦🇺"},
	"en-GB":   {Name: "English (UK)", Flag: "🇬🇧"},
	"en-US":   {Name: "English (US)", Flag: "🇺🇸"},
	"es":      {Name: "Español", Flag: "🇪🇸"},
	"es-419":  {Name: "Español (Latinoamérica)", Flag: "🇲🇽"},
	"fi":      {Name: "Suomi", Flag: "🇫🇮"},
	"fr":      {Name: "Français", Flag: "🇫🇷"},
	"fr-CA":   {Name: "Français (Canada)", Flag: "🇨🇦"},
	"he":      {Name: "עברית", Flag: "🇮🇱"},
	"hi":      {Name: "हिन्दी", Flag: "🇮🇳"},
	"hr":      {Name: "Hrvatski", Flag: "🇭🇷"},
	"hu":      {Name: "Magyar", Flag: "🇭🇺"},
	"id":      {Name: "Bahasa Indonesia", Flag: "🇮🇩"},
	"it":      {Name: "Italiano", Flag: "🇮🇹"},
	"ja":      {Name: "日本語", Flag: "🇯🇵"},
	"ko":      {Name: "한국어", Flag: "🇰🇷"},
	"ms":      {Name: "Bahasa Melayu", Flag: "🇲🇾"},
	"nb":      {Name: "Norsk bokmål", Flag: "🇳🇴"},
	"nl":      {Name: "Nederlands", Flag: "🇳🇱"},
	"pl":      {Name: "Polski", Flag: "🇵🇱"},
	"pt":      {Name: "Português", Flag: "🇵🇹"},
	"pt-BR":   {Name: "Português (Brasil)", Flag: "🇧🇷"},
	"pt-PT":   {Name: "Português (Portugal)", Flag: "🇵🇹"},
	"ro":      {Name: "Română", Flag: "🇷🇴"},
	"ru":      {Name: "Русский", Flag: "🇷🇺"},
	"sk":      {Name: "Slovenčina", Flag: "🇸🇰"},
	"sv":      {Name: "Svenska", Flag: "🇸🇪"},
	"th":      {Name: "ไทย", Flag: "🇹🇭"},
	"tr":      {Name: "Türkçe", Flag: "🇹🇷"},
	"uk":      {Name: "Українська", Flag: "🇺🇦"},
	"vi":      {Name: "Tiếng Việt", Flag: "🇻🇳"},
	"zh":      {Name: "中文", Flag: "🇨🇳"},
	"zh-HK":   {Name: "中文（香港）", Flag: "🇭🇰"},
	"zh-Hans": {Name: "简体中文", Flag: "🇨🇳"},
	"zh-Hant": {Name: "繁體中文", Flag: "🇹🇼"},
}

// canonicalize normalizes a locale code: underscores become hyphens, the
// language subtag is lowercased, a 4-letter script subtag is title-cased
// (Hans, Hant), and a region subtag is uppercased (BR, GB).
func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	if normalized == "Base" {
		return normalized
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	for i := 1; i < len(parts); i++ {
		p := parts[i]
		if len(p) == 4 {
			parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
		} else {
			parts[i] = strings.ToUpper(p)
		}
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort display metadata for a locale code,
// accepting zh_hans, zh-Hans, pt_BR and similar spellings. Unknown
// variants fall back to the base language; a fully unknown code comes
// back name-as-code with no flag.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang}
}

// Display formats a locale code for CLI output: "zh-Hans (简体中文)".
// A code that resolves to itself is shown bare.
func Display(lang string) string {
	m := Resolve(lang)
	if m.Name == lang || m.Name == "" {
		return lang
	}
	return lang + " (" + m.Name + ")"
}
