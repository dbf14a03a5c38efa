package view

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderKnownPages(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	cases := []struct {
		name string
		data TemplateData
	}{
		{"pages/landing.html", TemplateData{Title: "Bookshelf", Locale: "en"}},
		{"pages/login.html", TemplateData{Title: "Sign in", Locale: "en", Data: map[string]any{"Form": map[string]string{"Handle": "", "Next": ""}}}},
		{"pages/register.html", TemplateData{Title: "Register", Locale: "en", Data: map[string]any{"Form": map[string]string{"Handle": "", "Email": ""}}}},
		{"pages/books/list.html", TemplateData{Title: "Books", Locale: "en", CurrentUser: &shared.CurrentUser{Handle: "alice"}, Data: map[string]any{"Books": nil}}},
		{"pages/admin/permissions.html", TemplateData{Title: "Permissions", Locale: "en", CurrentUser: &shared.CurrentUser{Handle: "alice"}, Data: map[string]any{"Permissions": nil}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := httptest.NewRecorder()
			require.NoError(t, engine.Render(res, tc.name, tc.data))
			assert.Contains(t, res.Header().Get("Content-Type"), "text/html")
			assert.NotEmpty(t, res.Body.String())
		})
	}
}

func TestLandingLocalized(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	res := httptest.NewRecorder()
	require.NoError(t, engine.Render(res, "pages/landing.html", TemplateData{Title: "Bookshelf", Locale: "zh"}))
	assert.True(t, strings.Contains(res.Body.String(), "欢迎"), "expected Chinese greeting for zh locale")
}
