package registration

import (
	"net/url"
	"sort"
	"strings"
)

// Route names used by the controller, templates and the mail composer.
const (
	RouteLogin                = "login"
	RouteLogout               = "logout"
	RouteRegistrationForm     = "registration_form"
	RouteRegistrationComplete = "django_registration_complete"
	RouteRegistrationClosed   = "django_registration_disallowed"
	RouteActivationComplete   = "django_registration_activation_complete"
	RouteActivate             = "django_registration_activate"
	RouteUser                 = "user"
)

// ActivationKeyParam is the path parameter holding the activation key
const ActivationKeyParam = "activation_key"

// RouteTable maps symbolic route names to Fiber path templates
type RouteTable map[string]string

// DefaultRoutes returns the portal route table. The activation complete route
// shares its prefix with the activation route and has to be mounted first.
func DefaultRoutes() RouteTable {
	return RouteTable{
		RouteLogin:                "/login/",
		RouteLogout:               "/logout/",
		RouteRegistrationForm:     "/registration/register/",
		RouteRegistrationComplete: "/registration/register/complete/",
		RouteRegistrationClosed:   "/registration/register/closed/",
		RouteActivationComplete:   "/registration/activate/complete/",
		RouteActivate:             "/registration/activate/:" + ActivationKeyParam + "/",
		RouteUser:                 "/user/",
	}
}

// Path returns the raw template registered under name
func (r RouteTable) Path(name string) (string, error) {
	p, ok := r[name]
	if !ok {
		return "", ErrRouteNotFound.Clone().WithMetadata(map[string]any{"route": name})
	}
	return p, nil
}

// Reverse builds a concrete path for the named route replacing every
// ":param" segment with its escaped value.
func (r RouteTable) Reverse(name string, params ...map[string]string) (string, error) {
	tpl, err := r.Path(name)
	if err != nil {
		return "", err
	}

	values := map[string]string{}
	for _, p := range params {
		for k, v := range p {
			values[k] = v
		}
	}

	segments := strings.Split(tpl, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}

		key := strings.TrimSuffix(strings.TrimPrefix(seg, ":"), "?")
		val, ok := values[key]
		if !ok || val == "" {
			return "", ErrRouteParamMissing.Clone().WithMetadata(map[string]any{
				"route": name,
				"param": key,
			})
		}
		segments[i] = url.PathEscape(val)
	}

	return strings.Join(segments, "/"), nil
}

// MustReverse is Reverse for static configuration, it panics on error
func (r RouteTable) MustReverse(name string, params ...map[string]string) string {
	p, err := r.Reverse(name, params...)
	if err != nil {
		panic(err)
	}
	return p
}

// Static returns the reversed paths of every route without parameters,
// templates use it to build links.
func (r RouteTable) Static() map[string]string {
	out := make(map[string]string, len(r))
	for name, tpl := range r {
		if strings.Contains(tpl, "/:") {
			continue
		}
		out[name] = tpl
	}
	return out
}

// Names returns the registered route names in a stable order
func (r RouteTable) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
