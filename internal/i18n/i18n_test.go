package i18n

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_EmbeddedLocales(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	data := map[string]any{"Username": "ana", "Code": "123456", "Minutes": 10}
	en := tr.Translate("MailOTPBody", "en", data)
	assert.Contains(t, en, "Your verification code is 123456")
	assert.NotContains(t, en, "Enter it at")

	fr := tr.Translate("MailOTPBody", "fr", data)
	assert.Contains(t, fr, "Votre code de vérification est 123456")

	// unknown language falls back to the default
	de := tr.Translate("MailOTPSubject", "de", nil)
	assert.Equal(t, "Your HydroWatch verification code", de)

	assert.Equal(t, "NoSuchMessage", tr.Translate("NoSuchMessage", "en", nil))
}

func TestLoadTranslations_Overrides(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.toml"), []byte("[MailOTPSubject]\nother = \"Custom subject\"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("skip"), 0644))
	require.NoError(t, tr.LoadTranslations(dir))

	assert.Equal(t, "Custom subject", tr.Translate("MailOTPSubject", "en", nil))
	assert.Error(t, tr.LoadTranslations(filepath.Join(dir, "missing")))
}

func TestLanguageFromRequest(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "en", tr.LanguageFromRequest(r))

	r.Header.Set("Accept-Language", "fr-CA,fr;q=0.9,en;q=0.5")
	assert.Equal(t, "fr", tr.LanguageFromRequest(r))

	r.Header.Set("X-Lang", "en-GB")
	assert.Equal(t, "en", tr.LanguageFromRequest(r))

	assert.Equal(t, "en", tr.Match("ja"))
	assert.Equal(t, "en", tr.Match(";;;"))
}

func TestNew_BadDefault(t *testing.T) {
	tr, err := New("!!")
	require.NoError(t, err)
	assert.Equal(t, "en", tr.DefaultLanguage())
}
