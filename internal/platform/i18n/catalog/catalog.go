// Package catalog loads the embedded locale message bundle.
//
// Each file under locales/<locale>/<namespace>.yaml holds the messages of one
// namespace. The "core" namespace carries printf-style CLI strings and is
// registered with golang.org/x/text/message; the "errors" namespace carries
// text/template error messages rendered by the errors/i18n package.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other locale falls back to.
const BaseLocale = "en-US"

// CoreNamespace holds the keys registered with x/text.
const CoreNamespace = "core"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

type localeMessages struct {
	tag        language.Tag
	namespaces map[string]map[string]string
}

func (l *localeMessages) lookup(key string) (string, bool) {
	for _, messages := range l.namespaces {
		if value, ok := messages[key]; ok {
			return value, true
		}
	}
	return "", false
}

// Bundle is a set of locales loaded from catalog files.
type Bundle struct {
	locales map[string]*localeMessages
	// order lists locales with BaseLocale first; matcher indexes into it.
	order   []string
	matcher language.Matcher
}

//go:embed locales/*/*.yaml
var embeddedCatalogFS embed.FS

var defaultBundle = mustLoadAndRegisterEmbedded()

// Default returns the process-wide embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads the catalog files compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedCatalogFS)
}

// LoadFromFS loads catalog files matching locales/*/*.yaml from catalogFS.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]*localeMessages{}}
	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, err
		}
	}
	if err := b.index(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	dirLocale := path.Base(path.Dir(p))
	fileNamespace := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	switch {
	case locale == "":
		return fmt.Errorf("catalog %s: locale is required", p)
	case locale != dirLocale:
		return fmt.Errorf("catalog %s: locale %q must match directory %q", p, locale, dirLocale)
	}
	namespace := strings.TrimSpace(file.Namespace)
	switch {
	case namespace == "":
		return fmt.Errorf("catalog %s: namespace is required", p)
	case namespace != fileNamespace:
		return fmt.Errorf("catalog %s: namespace %q must match file name %q", p, namespace, fileNamespace)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: no messages", p)
	}

	lm, ok := b.locales[locale]
	if !ok {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("catalog %s: parse locale: %w", p, err)
		}
		lm = &localeMessages{tag: tag, namespaces: map[string]map[string]string{}}
		b.locales[locale] = lm
	}
	if _, dup := lm.namespaces[namespace]; dup {
		return fmt.Errorf("catalog %s: namespace %q defined twice for %s", p, namespace, locale)
	}

	messages := make(map[string]string, len(file.Messages))
	for rawKey, value := range file.Messages {
		key := strings.TrimSpace(rawKey)
		if key == "" {
			return fmt.Errorf("catalog %s: blank message key", p)
		}
		if strings.HasPrefix(key, CoreNamespace+".") != (namespace == CoreNamespace) {
			return fmt.Errorf("catalog %s: key %q does not belong to namespace %q", p, key, namespace)
		}
		if _, dup := lm.lookup(key); dup {
			return fmt.Errorf("catalog %s: duplicate key %q in %s", p, key, locale)
		}
		messages[key] = value
	}
	lm.namespaces[namespace] = messages
	return nil
}

// index checks translations against the base locale and builds the matcher.
func (b *Bundle) index() error {
	base, ok := b.locales[BaseLocale]
	if !ok {
		return fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	b.order = []string{BaseLocale}
	for locale, lm := range b.locales {
		if locale == BaseLocale {
			continue
		}
		for namespace, messages := range lm.namespaces {
			for key := range messages {
				if _, ok := base.namespaces[namespace][key]; !ok {
					return fmt.Errorf("locale %s: key %q is missing from %s/%s", locale, key, BaseLocale, namespace)
				}
			}
		}
		b.order = append(b.order, locale)
	}
	sort.Strings(b.order[1:])

	tags := make([]language.Tag, len(b.order))
	for i, locale := range b.order {
		tags[i] = b.locales[locale].tag
	}
	b.matcher = language.NewMatcher(tags)
	return nil
}

// Register makes the core namespace of every locale available to
// message.Printer.
func (b *Bundle) Register() error {
	for _, locale := range b.order {
		lm := b.locales[locale]
		for key, value := range lm.namespaces[CoreNamespace] {
			if err := message.SetString(lm.tag, key, value); err != nil {
				return fmt.Errorf("register %s/%s: %w", locale, key, err)
			}
		}
	}
	return nil
}

// Locales returns the loaded locales, BaseLocale first.
func (b *Bundle) Locales() []string {
	return append([]string(nil), b.order...)
}

// HasLocale reports whether locale was loaded as is.
func (b *Bundle) HasLocale(locale string) bool {
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Match returns the loaded locale closest to the requested one. Unknown or
// malformed locales match BaseLocale.
func (b *Bundle) Match(locale string) string {
	locale = strings.TrimSpace(locale)
	if _, ok := b.locales[locale]; ok {
		return locale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return BaseLocale
	}
	_, i, confidence := b.matcher.Match(tag)
	if confidence == language.No {
		return BaseLocale
	}
	return b.order[i]
}

// Message returns the message for key in the closest locale, falling back to
// BaseLocale when that locale lacks a translation.
func (b *Bundle) Message(locale, key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	if value, ok := b.locales[b.Match(locale)].lookup(key); ok {
		return value, true
	}
	return b.locales[BaseLocale].lookup(key)
}

// Namespace returns a copy of one namespace for the closest locale that
// defines it, along with that locale.
func (b *Bundle) Namespace(locale, namespace string) (string, map[string]string) {
	namespace = strings.TrimSpace(namespace)
	resolved := b.Match(locale)
	messages, ok := b.locales[resolved].namespaces[namespace]
	if !ok {
		resolved = BaseLocale
		messages = b.locales[BaseLocale].namespaces[namespace]
	}
	out := make(map[string]string, len(messages))
	for key, value := range messages {
		out[key] = value
	}
	return resolved, out
}

// Printer returns a message printer for the loaded locale closest to locale.
func Printer(locale string) *message.Printer {
	b := Default()
	return message.NewPrinter(b.locales[b.Match(locale)].tag)
}

func mustLoadAndRegisterEmbedded() *Bundle {
	b, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := b.Register(); err != nil {
		panic(err)
	}
	return b
}
