package testclient

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	names []string
}

func (f *fakeRecorder) Reset()          { f.names = nil }
func (f *fakeRecorder) Names() []string { return append([]string(nil), f.names...) }
func (f *fakeRecorder) add(name string) { f.names = append(f.names, name) }

func newTestApp(rec *fakeRecorder) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/start", func(c *fiber.Ctx) error {
		rec.add("start.html")
		return c.Redirect("/middle", fiber.StatusFound)
	})

	app.Get("/middle", func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{Name: "seen", Value: "yes", Path: "/"})
		return c.Redirect("/end", fiber.StatusFound)
	})

	app.Get("/end", func(c *fiber.Ctx) error {
		rec.add("end.html")
		return c.SendString(c.Method() + " seen=" + c.Cookies("seen"))
	})

	app.Post("/form", func(c *fiber.Ctx) error {
		return c.Redirect("/end", fiber.StatusFound)
	})

	app.Post("/keep", func(c *fiber.Ctx) error {
		return c.Redirect("/echo", fiber.StatusTemporaryRedirect)
	})

	app.Post("/echo", func(c *fiber.Ctx) error {
		return c.SendString(c.Method() + " " + c.FormValue("name"))
	})

	app.Get("/loop-a", func(c *fiber.Ctx) error {
		return c.Redirect("/loop-b", fiber.StatusFound)
	})

	app.Get("/loop-b", func(c *fiber.Ctx) error {
		return c.Redirect("/loop-a", fiber.StatusFound)
	})

	return app
}

func TestGetWithoutFollow(t *testing.T) {
	rec := &fakeRecorder{}
	client, err := New(newTestApp(rec), rec)
	require.NoError(t, err)

	resp, err := client.Get("/start", false)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/middle", resp.Location())
	assert.Empty(t, resp.RedirectChain)
	assert.Equal(t, []string{"start.html"}, resp.Templates)
	assert.Equal(t, "http://testserver/start", resp.URL.String())
}

func TestGetFollowsChainAndKeepsCookies(t *testing.T) {
	rec := &fakeRecorder{}
	client, err := New(newTestApp(rec), rec)
	require.NoError(t, err)

	resp, err := client.Get("/start", true)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GET seen=yes", string(resp.Body))
	assert.Equal(t, []Redirect{
		{URL: "/middle", StatusCode: http.StatusFound},
		{URL: "/end", StatusCode: http.StatusFound},
	}, resp.RedirectChain)
	assert.True(t, resp.UsedTemplate("start.html"))
	assert.True(t, resp.UsedTemplate("end.html"))
	assert.False(t, resp.UsedTemplate("middle.html"))

	cookies := client.Cookies("/")
	require.Len(t, cookies, 1)
	assert.Equal(t, "seen", cookies[0].Name)
}

func TestRecorderIsResetPerRequest(t *testing.T) {
	rec := &fakeRecorder{}
	client, err := New(newTestApp(rec), rec)
	require.NoError(t, err)

	_, err = client.Get("/start", true)
	require.NoError(t, err)

	resp, err := client.Get("/end", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"end.html"}, resp.Templates)
}

func TestPostRedirectContinuesAsGet(t *testing.T) {
	client, err := New(newTestApp(&fakeRecorder{}), nil)
	require.NoError(t, err)

	resp, err := client.PostForm("/form", url.Values{"name": {"scion"}}, true)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GET seen=", string(resp.Body))
	assert.Nil(t, resp.Templates)
}

func TestTemporaryRedirectRepeatsMethodAndBody(t *testing.T) {
	client, err := New(newTestApp(&fakeRecorder{}), nil)
	require.NoError(t, err)

	resp, err := client.PostForm("/keep", url.Values{"name": {"scion"}}, true)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "POST scion", string(resp.Body))
	require.Len(t, resp.RedirectChain, 1)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.RedirectChain[0].StatusCode)
}

func TestRedirectLoop(t *testing.T) {
	client, err := New(newTestApp(&fakeRecorder{}), nil)
	require.NoError(t, err)

	_, err = client.Get("/loop-a", true)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, ErrRedirectLoop.TextCode, richErr.TextCode)
}

func TestMaxRedirects(t *testing.T) {
	client, err := New(newTestApp(&fakeRecorder{}), nil, WithMaxRedirects(1))
	require.NoError(t, err)

	_, err = client.Get("/start", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect loop")
}

func TestWithOrigin(t *testing.T) {
	origin, err := url.Parse("https://portal.example.com")
	require.NoError(t, err)

	client, err := New(newTestApp(&fakeRecorder{}), nil, WithOrigin(origin))
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example.com", client.Origin().String())

	resp, err := client.Get("/end", false)
	require.NoError(t, err)
	assert.Equal(t, "portal.example.com", resp.URL.Host)
}

func TestEmptyLocation(t *testing.T) {
	client, err := New(newTestApp(&fakeRecorder{}), nil)
	require.NoError(t, err)

	_, err = client.Get(" ", false)
	assert.Error(t, err)
}
