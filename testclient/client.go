// Package testclient drives an in-process Fiber app the way a browser would:
// cookies are kept between requests, redirects can be followed and the
// templates rendered while serving a response are reported with it.
package testclient

import (
	"bytes"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/scionlab/go-registration/views"
)

// DefaultOrigin is the scheme and host requests are addressed to
const DefaultOrigin = "http://testserver"

// DefaultMaxRedirects bounds a followed redirect chain
const DefaultMaxRedirects = 20

// ErrRedirectLoop is returned when a followed chain revisits a location or
// exceeds the redirect limit
var ErrRedirectLoop = goerrors.New("redirect loop detected", goerrors.CategoryOperation).
	WithTextCode("REDIRECT_LOOP")

// Redirect is a hop of a followed redirect chain
type Redirect struct {
	URL        string
	StatusCode int
}

// Response is the final response of a request
type Response struct {
	StatusCode    int
	Header        http.Header
	Body          []byte
	URL           *url.URL
	RedirectChain []Redirect
	Templates     []string
}

// UsedTemplate reports whether name was rendered while serving the response
func (r *Response) UsedTemplate(name string) bool {
	for _, t := range r.Templates {
		if t == name {
			return true
		}
	}
	return false
}

// Location returns the redirect target of an unfollowed response
func (r *Response) Location() string {
	return r.Header.Get(fiber.HeaderLocation)
}

type Client struct {
	app          *fiber.App
	recorder     views.TemplateRecorder
	jar          http.CookieJar
	origin       *url.URL
	maxRedirects int
}

type Option func(*Client)

// WithOrigin changes the scheme and host of the simulated requests
func WithOrigin(origin *url.URL) Option {
	return func(c *Client) {
		if origin != nil {
			c.origin = origin
		}
	}
}

func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRedirects = n
		}
	}
}

// New returns a client for app. recorder may be nil, responses then carry
// no templates.
func New(app *fiber.App, recorder views.TemplateRecorder, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create cookie jar")
	}

	origin, _ := url.Parse(DefaultOrigin)

	c := &Client{
		app:          app,
		recorder:     recorder,
		jar:          jar,
		origin:       origin,
		maxRedirects: DefaultMaxRedirects,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// Origin returns the scheme and host requests are sent to
func (c *Client) Origin() *url.URL {
	u := *c.origin
	return &u
}

// Cookies returns the cookies the client would send to path
func (c *Client) Cookies(path string) []*http.Cookie {
	u, err := c.resolve(nil, path)
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}

func (c *Client) Get(path string, follow bool) (*Response, error) {
	return c.Do(http.MethodGet, path, nil, follow)
}

func (c *Client) PostForm(path string, data url.Values, follow bool) (*Response, error) {
	return c.Do(http.MethodPost, path, data, follow)
}

// Do sends the request and optionally follows redirects. 301, 302 and 303
// continue as GET without a body, 307 and 308 repeat method and body.
func (c *Client) Do(method, path string, data url.Values, follow bool) (*Response, error) {
	if c.recorder != nil {
		c.recorder.Reset()
	}

	target, err := c.resolve(nil, path)
	if err != nil {
		return nil, err
	}

	var body []byte
	if data != nil {
		body = []byte(data.Encode())
	}

	resp, err := c.send(method, target, body)
	if err != nil {
		return nil, err
	}

	visited := map[string]struct{}{}
	for follow && isRedirect(resp.StatusCode) {
		next, err := c.resolve(resp.URL, resp.Location())
		if err != nil {
			return nil, err
		}

		resp.RedirectChain = append(resp.RedirectChain, Redirect{
			URL:        resp.Location(),
			StatusCode: resp.StatusCode,
		})

		key := method + " " + next.String()
		if _, seen := visited[key]; seen || len(resp.RedirectChain) > c.maxRedirects {
			return nil, ErrRedirectLoop.Clone().WithMetadata(map[string]any{
				"location": next.String(),
				"hops":     len(resp.RedirectChain),
			})
		}
		visited[key] = struct{}{}

		switch resp.StatusCode {
		case http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		default:
			method = http.MethodGet
			body = nil
		}

		chain := resp.RedirectChain
		resp, err = c.send(method, next, body)
		if err != nil {
			return nil, err
		}
		resp.RedirectChain = chain
	}

	if c.recorder != nil {
		resp.Templates = c.recorder.Names()
	}

	return resp, nil
}

func (c *Client) send(method string, target *url.URL, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, target.String(), reader)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to build request")
	}

	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}

	for _, ck := range c.jar.Cookies(target) {
		req.AddCookie(ck)
	}

	res, err := c.app.Test(req, -1)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "request failed").
			WithMetadata(map[string]any{"method": method, "url": target.String()})
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read response body")
	}

	if cookies := res.Cookies(); len(cookies) > 0 {
		c.jar.SetCookies(target, cookies)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       raw,
		URL:        target,
	}, nil
}

func (c *Client) resolve(base *url.URL, ref string) (*url.URL, error) {
	if base == nil {
		base = c.origin
	}

	if strings.TrimSpace(ref) == "" {
		return nil, goerrors.New("empty request location", goerrors.CategoryBadInput)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request location").
			WithMetadata(map[string]any{"location": ref})
	}

	return base.ResolveReference(u), nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}
