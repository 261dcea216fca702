package registration_test

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	registration "github.com/scionlab/go-registration"
)

func TestReverse(t *testing.T) {
	routes := registration.DefaultRoutes()

	tests := []struct {
		name    string
		route   string
		params  map[string]string
		want    string
		wantErr *goerrors.Error
	}{
		{
			name:  "static route",
			route: registration.RouteLogin,
			want:  "/login/",
		},
		{
			name:   "activation route",
			route:  registration.RouteActivate,
			params: map[string]string{registration.ActivationKeyParam: "abc-123"},
			want:   "/registration/activate/abc-123/",
		},
		{
			name:   "escapes parameters",
			route:  registration.RouteActivate,
			params: map[string]string{registration.ActivationKeyParam: "a/b c"},
			want:   "/registration/activate/a%2Fb%20c/",
		},
		{
			name:    "missing parameter",
			route:   registration.RouteActivate,
			wantErr: registration.ErrRouteParamMissing,
		},
		{
			name:    "unknown route",
			route:   "admin",
			wantErr: registration.ErrRouteNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var params []map[string]string
			if tt.params != nil {
				params = append(params, tt.params)
			}

			got, err := routes.Reverse(tt.route, params...)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, registration.IsError(err, tt.wantErr))
				assert.True(t, goerrors.IsCategory(err, tt.wantErr.Category))

				var richErr *goerrors.Error
				require.ErrorAs(t, err, &richErr)
				assert.Equal(t, tt.route, richErr.Metadata["route"])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMustReversePanics(t *testing.T) {
	routes := registration.DefaultRoutes()

	assert.Equal(t, "/user/", routes.MustReverse(registration.RouteUser))
	assert.Panics(t, func() {
		routes.MustReverse(registration.RouteActivate)
	})
}

func TestStaticSkipsParameterizedRoutes(t *testing.T) {
	static := registration.DefaultRoutes().Static()

	assert.Equal(t, "/registration/register/", static[registration.RouteRegistrationForm])
	assert.Equal(t, "/registration/activate/complete/", static[registration.RouteActivationComplete])
	assert.NotContains(t, static, registration.RouteActivate)
}

func TestNamesAreSorted(t *testing.T) {
	names := registration.DefaultRoutes().Names()

	require.Len(t, names, 8)
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, registration.RouteActivate)
}
