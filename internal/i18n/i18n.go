// Package i18n translates dot-separated message keys into English or Malay,
// with {param} placeholders filled from key/value pairs.
package i18n

import (
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Supported languages.
const (
	English = "en"
	Malay   = "ms"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	catalogs = mustLoadCatalogs()
	matcher  = language.NewMatcher([]language.Tag{language.English, language.Malay})
	matched  = []string{English, Malay}
)

func mustLoadCatalogs() map[string]map[string]any {
	out := make(map[string]map[string]any, 2)
	for _, lang := range []string{English, Malay} {
		data, err := localeFS.ReadFile("locales/" + lang + ".yaml")
		if err != nil {
			panic(fmt.Sprintf("i18n: read %s catalog: %v", lang, err))
		}
		var cat map[string]any
		if err := yaml.Unmarshal(data, &cat); err != nil {
			panic(fmt.Sprintf("i18n: parse %s catalog: %v", lang, err))
		}
		out[lang] = cat
	}
	return out
}

// Negotiate maps a language preference (a config value, an Accept-Language
// header or a POSIX locale such as ms_MY.UTF-8) to a supported language.
// Tags starting with "my" are treated as Malay. Anything unmatched is English.
func Negotiate(prefs ...string) string {
	for _, p := range prefs {
		p = strings.ToLower(strings.TrimSpace(p))
		if i := strings.IndexAny(p, ".@"); i >= 0 && !strings.ContainsAny(p, ",;") {
			p = p[:i]
		}
		p = strings.ReplaceAll(p, "_", "-")
		if p == "" || p == "c" || p == "posix" {
			continue
		}
		if strings.HasPrefix(p, "my") {
			return Malay
		}
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil || len(tags) == 0 {
			continue
		}
		if _, idx, conf := matcher.Match(tags...); conf != language.No {
			return matched[idx]
		}
	}
	return English
}

// Translator resolves keys for one language.
type Translator struct {
	lang   string
	logger *slog.Logger
}

// New returns a Translator for lang. Unsupported languages are logged and
// replaced by English.
func New(lang string) *Translator {
	t := &Translator{lang: English, logger: slog.Default()}
	switch lang {
	case English, Malay:
		t.lang = lang
	case "":
	default:
		t.lang = Negotiate(lang)
		if t.lang == English {
			t.logger.Warn("unsupported language, using en", "lang", lang)
		}
	}
	return t
}

// Lang returns the active language code.
func (t *Translator) Lang() string { return t.lang }

// T looks up key (e.g. "tree.empty") and substitutes {name} placeholders from
// kv, given as alternating names and values. A key that is missing or does not
// name a string is logged and returned unchanged.
//
//	tr.T("member.added", "name", "Siti", "id", "M3")
func (t *Translator) T(key string, kv ...any) string {
	var node any = catalogs[t.lang]
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			node = nil
			break
		}
		node = m[part]
	}
	text, ok := node.(string)
	if !ok {
		t.logger.Warn("translation not found", "lang", t.lang, "key", key)
		return key
	}
	if len(kv) == 0 {
		return text
	}

	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+fmt.Sprint(kv[i])+"}", fmt.Sprint(kv[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
