// Package i18n selects the request language and translates fixed UI strings.
// Catalogs are YAML files keyed by the English text.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// Default is used when nothing else matches.
const Default = "en"

// Supported lists the locales the application ships, default first.
var Supported = []language.Tag{language.English, language.Swahili, language.Zulu}

// Bundle holds the loaded catalogs and the Accept-Language matcher.
type Bundle struct {
	cat      *catalog.Builder
	matcher  language.Matcher
	printers map[string]*message.Printer
}

// Load reads every embedded catalog.  A missing or malformed file is an
// error since the binary cannot serve that locale.
func Load() (*Bundle, error) {
	b := &Bundle{
		cat:      catalog.NewBuilder(catalog.Fallback(language.English)),
		matcher:  language.NewMatcher(Supported),
		printers: make(map[string]*message.Printer, len(Supported)),
	}
	for _, tag := range Supported {
		code := tag.String()
		raw, err := localesFS.ReadFile(path.Join("locales", code+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("read %s catalog: %w", code, err)
		}
		var entries map[string]string
		if err := yaml.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("parse %s catalog: %w", code, err)
		}
		for key, msg := range entries {
			if err := b.cat.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("%s catalog key %q: %w", code, key, err)
			}
		}
	}
	for _, tag := range Supported {
		b.printers[tag.String()] = message.NewPrinter(tag, message.Catalog(b.cat))
	}
	return b, nil
}

// IsSupported reports whether code names a shipped locale.
func IsSupported(code string) bool {
	for _, tag := range Supported {
		if tag.String() == code {
			return true
		}
	}
	return false
}

// Select picks the request language.  An explicit form value wins, then the
// language stored in the session, then the best Accept-Language match.
// Unsupported explicit or stored values are ignored.
func (b *Bundle) Select(form, stored, acceptLanguage string) string {
	if IsSupported(form) {
		return form
	}
	if IsSupported(stored) {
		return stored
	}
	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			_, idx, conf := b.matcher.Match(tags...)
			if conf != language.No {
				return Supported[idx].String()
			}
		}
	}
	return Default
}

// T translates key into lang, falling back to the English key.
func (b *Bundle) T(lang, key string) string {
	p, ok := b.printers[lang]
	if !ok {
		p = b.printers[Default]
	}
	// Keys are plain text, never format strings.
	if strings.Contains(key, "%") {
		return key
	}
	return p.Sprintf(key)
}

// Translator returns T bound to lang, for templates.
func (b *Bundle) Translator(lang string) func(string) string {
	return func(key string) string { return b.T(lang, key) }
}
