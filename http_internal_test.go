package registration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scionlab/go-registration/config"
)

type stubIdentity struct{ id string }

func (s stubIdentity) ID() string       { return s.id }
func (s stubIdentity) Username() string { return "scion" }
func (s stubIdentity) Email() string    { return "scion@example.com" }
func (s stubIdentity) Role() string     { return RoleUser }

type stubClaims struct{ uid string }

func (s stubClaims) Subject() string       { return s.uid }
func (s stubClaims) UserID() string        { return s.uid }
func (s stubClaims) Role() string          { return RoleUser }
func (s stubClaims) HasRole(r string) bool { return r == RoleUser }
func (s stubClaims) Expires() time.Time    { return time.Time{} }
func (s stubClaims) IssuedAt() time.Time   { return time.Time{} }

func TestIsSafeRedirect(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"/user/", true},
		{"/registration/activate/complete/?x=1", true},
		{"", false},
		{"user/", false},
		{"//evil.com", false},
		{"//evil.com/user/", false},
		{"http://evil.com", false},
		{"https://evil.com/user/", false},
		{"javascript:alert(1)", false},
		{"/\\evil.example", false},
		{"/user/\\..\\", false},
		{"/\t/evil.example", false},
		{"/user/\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, isSafeRedirect(tt.target))
		})
	}
}

func TestIsAuthenticated(t *testing.T) {
	var nilUser *User

	tests := []struct {
		name string
		user any
		want bool
	}{
		{"nil", nil, false},
		{"user", &User{Email: "scion@example.com"}, true},
		{"typed nil user", nilUser, false},
		{"identity", stubIdentity{id: "42"}, true},
		{"identity without id", stubIdentity{}, false},
		{"claims", stubClaims{uid: "42"}, true},
		{"claims without user", stubClaims{}, false},
		{"string", "scion", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAuthenticated(tt.user))
		})
	}
}

func TestViewContextOverridesHelpers(t *testing.T) {
	base := TemplateHelpers(DefaultRoutes(), config.Defaults().GetRegistration())
	out := viewContext(base, fiber.Map{"site_name": "Other", "form": "data"})

	assert.Equal(t, "Other", out["site_name"])
	assert.Equal(t, "data", out["form"])
	assert.Contains(t, out, "urls")
	assert.Equal(t, "SCIONLab", base["site_name"])
}

func TestTemplateHelpersWithFiber(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	user := &User{Email: "scion@example.com"}

	var helpers map[string]any
	app.Get("/", func(c *fiber.Ctx) error {
		c.Locals(TemplateUserKey, user)
		helpers = TemplateHelpersWithFiber(c, "", DefaultRoutes(), nil)
		return nil
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)

	assert.Same(t, user, helpers[TemplateUserKey])
	assert.NotContains(t, helpers, "site_name")
	urls, ok := helpers["urls"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "/login/", urls[RouteLogin])
}

func newTestRouteAuthenticator(t *testing.T) *RouteAuthenticator {
	t.Helper()
	cfg := config.Defaults().GetAuth()
	a, err := NewHTTPAuthenticator(NewAuthenticator(nil, cfg), cfg, "")
	require.NoError(t, err)
	a.Logger = defLogger{}
	return a
}

func TestGetRedirect(t *testing.T) {
	a := newTestRouteAuthenticator(t)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler := func(c *fiber.Ctx) error {
		return c.SendString(a.GetRedirect(c, "/user/"))
	}
	app.Get("/r", handler)
	app.Post("/r", handler)

	query := func(next string) string {
		return "/r?" + url.Values{RedirectFieldName: {next}}.Encode()
	}

	tests := []struct {
		name   string
		req    func() *http.Request
		want   string
		clears bool
	}{
		{
			name: "no hint",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodGet, "/r", nil) },
			want: "/user/",
		},
		{
			name: "query",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodGet, query("/user/settings/"), nil) },
			want: "/user/settings/",
		},
		{
			name: "form",
			req: func() *http.Request {
				body := url.Values{RedirectFieldName: {"/registration/"}}.Encode()
				req := httptest.NewRequest(http.MethodPost, "/r", strings.NewReader(body))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			want: "/registration/",
		},
		{
			name: "protocol relative",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodGet, query("//evil.com"), nil) },
			want: "/user/",
		},
		{
			name: "absolute",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodGet, query("http://evil.com"), nil) },
			want: "/user/",
		},
		{
			name: "backslash",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodGet, query("/\\evil.example"), nil) },
			want: "/user/",
		},
		{
			name: "cookie",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/r", nil)
				req.AddCookie(&http.Cookie{Name: "redirect_to", Value: "/user/ases/"})
				return req
			},
			want:   "/user/ases/",
			clears: true,
		},
		{
			name: "unsafe cookie",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/r", nil)
				req.AddCookie(&http.Cookie{Name: "redirect_to", Value: "https://evil.com"})
				return req
			},
			want:   "/user/",
			clears: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(tt.req(), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))

			cleared := false
			for _, c := range resp.Cookies() {
				if c.Name == "redirect_to" && c.Value == "" {
					cleared = true
				}
			}
			assert.Equal(t, tt.clears, cleared)
		})
	}
}

func TestAuthErrorRedirectsToLogin(t *testing.T) {
	a := newTestRouteAuthenticator(t)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler := func(c *fiber.Ctx) error {
		return a.ErrorHandler(c, goerrors.New("missing token", goerrors.CategoryAuth))
	}
	app.Get("/user/", handler)
	app.Post("/user/", handler)

	tests := []struct {
		method string
		status int
	}{
		{http.MethodGet, http.StatusFound},
		{http.MethodPost, http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, "/user/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "/login/?next=%2Fuser%2F", resp.Header.Get("Location"))

			var redirectCookie *http.Cookie
			for _, c := range resp.Cookies() {
				if c.Name == "redirect_to" {
					redirectCookie = c
				}
			}
			require.NotNil(t, redirectCookie)
			assert.Equal(t, "/user/", redirectCookie.Value)
		})
	}
}

func TestNewHTTPAuthenticatorRequiresAuthenticator(t *testing.T) {
	_, err := NewHTTPAuthenticator(nil, config.Defaults().GetAuth(), "/login/")
	assert.Error(t, err)
}

func TestRouteAuthenticatorCookieDurations(t *testing.T) {
	a := newTestRouteAuthenticator(t)
	cfg := config.Defaults().GetAuth()

	assert.Equal(t, time.Duration(cfg.TokenExpiration)*time.Hour, a.GetCookieDuration())
	assert.GreaterOrEqual(t, a.GetExtendedCookieDuration(), a.GetCookieDuration())
}

func TestClaimsContextHelpers(t *testing.T) {
	claims := stubClaims{uid: "42"}

	_, ok := GetClaims(context.Background())
	assert.False(t, ok)

	ctx := ContextEnricherAdapter(context.Background(), claims)
	got, ok := GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, "42", got.UserID())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	var fromLocals AuthClaims
	var found, missing bool
	app.Get("/", func(c *fiber.Ctx) error {
		_, missing = GetFiberClaims(c, "jwt")
		c.Locals("jwt", claims)
		fromLocals, found = GetFiberClaims(c, "jwt")
		return nil
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)

	assert.False(t, missing)
	require.True(t, found)
	assert.Equal(t, "42", fromLocals.Subject())
}
