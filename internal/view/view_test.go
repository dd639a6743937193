package view

import (
	"bytes"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/session"
)

func TestNewRendererParsesEveryPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	for _, name := range []string{
		"listing", "login", "register", "verify", "post_resource", "profile", "messages",
		"events", "event_detail", "event_new", "about", "mission_vision", "contact", "error",
	} {
		assert.Contains(t, r.pages, name)
	}
	assert.NotContains(t, r.pages, "layout")
}

func TestRenderTranslatesAndShowsFlashes(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	upper := map[string]string{"About": "Kuhusu", "Logged out successfully.": "Umetoka kwa mafanikio."}
	page := &Page{
		Title:     "About",
		Lang:      "sw",
		Languages: []string{"en", "sw", "zu"},
		Flashes:   []session.Flash{{Kind: session.FlashSuccess, Message: "Logged out successfully."}},
		T: func(s string) string {
			if v, ok := upper[s]; ok {
				return v
			}
			return s
		},
	}
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "about", page, nil))
	out := buf.String()
	assert.Contains(t, out, `<html lang="sw">`)
	assert.Contains(t, out, "Kuhusu")
	assert.Contains(t, out, "Umetoka kwa mafanikio.")
	assert.Contains(t, out, `href="/login"`)

	// The translator is bound per render, not shared.
	buf.Reset()
	require.NoError(t, r.Render(&buf, "about", &Page{Lang: "en", User: &model.User{Username: "amani"}}, nil))
	assert.NotContains(t, buf.String(), "Kuhusu")
	assert.Contains(t, buf.String(), "amani")
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	assert.Error(t, r.Render(&bytes.Buffer{}, "nope", &Page{}, nil))
}

func TestFragmentsEscape(t *testing.T) {
	assert.Equal(t, `<p class="text-red-500">a &lt;b&gt;</p>`, ErrorFragment("a <b>"))
	assert.Equal(t, `<p class="text-green-500">ok</p>`, SuccessFragment("ok"))
}

func TestNullStringHelper(t *testing.T) {
	ns := baseFuncs["ns"].(func(interface{}) string)
	assert.Equal(t, "Nairobi", ns(sql.NullString{String: "Nairobi", Valid: true}))
	assert.Equal(t, "", ns(sql.NullString{}))
	assert.Equal(t, "plain", ns("plain"))
	assert.Equal(t, "", ns(42))
}
