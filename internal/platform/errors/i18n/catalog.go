// Package i18n provides internationalization support for error messages.
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale and the fallback for unknown locales.
const BaseLocale = "en-US"

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	tag      language.Tag
	messages map[Code]string
}

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

//go:embed locales/*.yaml
var embeddedLocales embed.FS

var (
	catalogsMu sync.RWMutex
	// catalogs holds embedded, registered, and override catalogs by locale.
	catalogs = map[string]*Catalog{}

	supported []string
	matcher   language.Matcher
)

func init() {
	if err := loadLocales(embeddedLocales); err != nil {
		panic(fmt.Sprintf("load error catalogs: %v", err))
	}
}

// GetCatalog returns the catalog for the given locale.
// Falls back to en-US if the locale cannot be matched.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = BaseLocale
	}
	if c, ok := lookupCatalog(requested); ok {
		return c
	}
	if c, ok := lookupCatalog(resolveLocale(requested)); ok {
		return c
	}
	c, _ := lookupCatalog(BaseLocale)
	return c
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Missing metadata renders as empty. Falls back to the error code itself if no
// template is found, and to the raw template when it fails to parse or execute.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").
		Option("missingkey=zero").
		Funcs(template.FuncMap{"amount": c.formatAmount}).
		Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// formatAmount groups digits of a decimal amount for the catalog's locale.
func (c *Catalog) formatAmount(value string) string {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return value
	}
	return message.NewPrinter(c.tag).Sprintf("%d", n)
}

// NewCatalog creates a new catalog with the given locale and messages.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Catalog{
		locale:   locale,
		tag:      tag,
		messages: cloned,
	}
}

// Locales returns the embedded locales in sorted order.
func Locales() []string {
	out := append([]string(nil), supported...)
	sort.Strings(out)
	return out
}

func loadLocales(fsys fs.FS) error {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no locale files found")
	}
	sort.Strings(paths)

	loaded := map[string]*Catalog{}
	var tags []language.Tag
	var locales []string
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		locale := strings.TrimSpace(file.Locale)
		if locale == "" {
			return fmt.Errorf("%s: locale is required", path)
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("%s: parse locale %q: %w", path, locale, err)
		}
		loaded[locale] = NewCatalog(locale, file.Messages)
		if locale == BaseLocale {
			// The matcher falls back to its first tag.
			tags = append([]language.Tag{tag}, tags...)
			locales = append([]string{locale}, locales...)
			continue
		}
		tags = append(tags, tag)
		locales = append(locales, locale)
	}
	if _, ok := loaded[BaseLocale]; !ok {
		return fmt.Errorf("base locale %s is missing", BaseLocale)
	}

	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	for locale, cat := range loaded {
		catalogs[locale] = cat
	}
	supported = locales
	matcher = language.NewMatcher(tags)
	return nil
}

func resolveLocale(requested string) string {
	tag, err := language.Parse(requested)
	if err != nil {
		return BaseLocale
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No || index < 0 || index >= len(supported) {
		return BaseLocale
	}
	return supported[index]
}

func lookupCatalog(locale string) (*Catalog, bool) {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()
	cat, ok := catalogs[locale]
	return cat, ok
}
