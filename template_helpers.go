package registration

import (
	"maps"

	"github.com/gofiber/fiber/v2"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns the data every page template can rely on.
//
// In templates, you can then use:
//
//	<a href="{{ urls.login }}">{{ site_name }}</a>
//	{% if is_authenticated(current_user) %}
func TemplateHelpers(routes RouteTable, cfg RegistrationConfig) map[string]any {
	helpers := map[string]any{
		"urls":             routes.Static(),
		"is_authenticated": isAuthenticated,
	}

	if cfg != nil {
		helpers["site_name"] = cfg.GetSiteName()
	}

	return helpers
}

// TemplateHelpersWithFiber adds the user stored by the JWT middleware under
// userKey to the helpers.
func TemplateHelpersWithFiber(c *fiber.Ctx, userKey string, routes RouteTable, cfg RegistrationConfig) map[string]any {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	helpers := TemplateHelpers(routes, cfg)
	if user := c.Locals(userKey); user != nil {
		helpers[TemplateUserKey] = user
	}

	return helpers
}

// viewContext merges data over the template helpers
func viewContext(base map[string]any, data fiber.Map) map[string]any {
	out := map[string]any{}
	maps.Copy(out, base)
	maps.Copy(out, data)
	return out
}

// GetTemplateUser is a convenience function to extract user data from the
// fiber context for template usage.
func GetTemplateUser(c *fiber.Ctx, userKey string) (any, bool) {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	user := c.Locals(userKey)
	return user, user != nil
}

func isAuthenticated(user any) bool {
	if user == nil {
		return false
	}

	switch u := user.(type) {
	case *User:
		return u != nil
	case Identity:
		return u != nil && u.ID() != ""
	case AuthClaims:
		return u != nil && u.UserID() != ""
	default:
		return false
	}
}
