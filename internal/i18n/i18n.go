package i18n

import (
	"embed"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var locales embed.FS

// I18n manages internationalization and translations
type I18n struct {
	bundle      *i18n.Bundle
	defaultLang language.Tag
	tags        []language.Tag
	matcher     language.Matcher
}

// New builds a translator from the embedded locales. defaultLang falls back
// to English when it cannot be parsed.
func New(defaultLang string) (*I18n, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded locales: %w", err)
	}
	for _, e := range entries {
		if _, err := bundle.LoadMessageFileFS(locales, path.Join("locales", e.Name())); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", e.Name(), err)
		}
	}

	t := &I18n{bundle: bundle, defaultLang: tag}
	t.rebuildMatcher()
	return t, nil
}

// LoadTranslations loads extra .toml files from dir, overriding embedded messages
func (i *I18n) LoadTranslations(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read translations directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".toml") {
			continue
		}
		if _, err := i.bundle.LoadMessageFile(filepath.Join(dir, file.Name())); err != nil {
			return fmt.Errorf("failed to load %s: %w", file.Name(), err)
		}
	}
	i.rebuildMatcher()
	return nil
}

func (i *I18n) rebuildMatcher() {
	tags := []language.Tag{i.defaultLang}
	for _, t := range i.bundle.LanguageTags() {
		if t != i.defaultLang {
			tags = append(tags, t)
		}
	}
	i.tags = tags
	i.matcher = language.NewMatcher(tags)
}

// Translate returns a localized string for the given message ID and language.
// Unknown IDs come back unchanged.
func (i *I18n) Translate(msgID, lang string, data map[string]any) string {
	localizer := i18n.NewLocalizer(i.bundle, lang, i.defaultLang.String())
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		return msgID
	}
	return msg
}

// LanguageFromRequest picks the best supported language from X-Lang or Accept-Language
func (i *I18n) LanguageFromRequest(r *http.Request) string {
	if lang := r.Header.Get("X-Lang"); lang != "" {
		return i.Match(lang)
	}
	return i.Match(r.Header.Get("Accept-Language"))
}

// Match maps an Accept-Language style value to a supported base language
func (i *I18n) Match(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return i.DefaultLanguage()
	}
	_, idx, conf := i.matcher.Match(tags...)
	if conf == language.No {
		return i.DefaultLanguage()
	}
	base, _ := i.tags[idx].Base()
	return base.String()
}

// DefaultLanguage returns the base code of the default language
func (i *I18n) DefaultLanguage() string {
	base, _ := i.defaultLang.Base()
	return base.String()
}
