package config

import (
	"fmt"
	"time"
)

type BaseConfig struct {
	Name         string       `koanf:"name" json:"name"`
	Debug        bool         `koanf:"debug" json:"debug"`
	Auth         Auth         `koanf:"auth" json:"auth"`
	Registration Registration `koanf:"registration" json:"registration"`
	Mail         Mail         `koanf:"mail" json:"mail"`
	Persistence  Persistence  `koanf:"persistence" json:"persistence"`
	Server       Server       `koanf:"server" json:"server"`
}

type Auth struct {
	SigningKey            string   `koanf:"signing_key" json:"signing_key"`
	SigningMethod         string   `koanf:"signing_method" json:"signing_method"`
	ContextKey            string   `koanf:"context_key" json:"context_key"`
	TokenExpiration       int      `koanf:"token_expiration" json:"token_expiration"`
	ExtendedTokenDuration int      `koanf:"extended_token_duration" json:"extended_token_duration"`
	TokenLookup           string   `koanf:"token_lookup" json:"token_lookup"`
	AuthScheme            string   `koanf:"auth_scheme" json:"auth_scheme"`
	Issuer                string   `koanf:"issuer" json:"issuer"`
	Audience              []string `koanf:"audience" json:"audience"`
	CookieSecure          bool     `koanf:"cookie_secure" json:"cookie_secure"`
	RejectedRouteKey      string   `koanf:"rejected_route_key" json:"rejected_route_key"`
}

type Registration struct {
	SiteName           string `koanf:"site_name" json:"site_name"`
	DefaultFromEmail   string `koanf:"default_from_email" json:"default_from_email"`
	ActivationDays     int    `koanf:"activation_days" json:"activation_days"`
	RegistrationOpen   bool   `koanf:"registration_open" json:"registration_open"`
	UseHashid          bool   `koanf:"use_hashid" json:"use_hashid"`
	DefaultPhoneRegion string `koanf:"default_phone_region" json:"default_phone_region"`
}

type Mail struct {
	Backend  string `koanf:"backend" json:"backend"`
	Host     string `koanf:"host" json:"host"`
	Port     int    `koanf:"port" json:"port"`
	Username string `koanf:"username" json:"username"`
	Password string `koanf:"password" json:"password"`
}

type Persistence struct {
	DSN                   string `koanf:"dsn" json:"dsn"`
	PingTimeoutExpression string `koanf:"ping_timeout" json:"ping_timeout"`
}

type Server struct {
	Address string `koanf:"address" json:"address"`
}

// Defaults returns the configuration used by tests and local development
func Defaults() *BaseConfig {
	return &BaseConfig{
		Name: "scionlab",
		Auth: Auth{
			SigningKey:            "scionlab-development-signing-key",
			SigningMethod:         "HS256",
			ContextKey:            "jwt",
			TokenExpiration:       24,
			ExtendedTokenDuration: 24 * 14,
			TokenLookup:           "cookie:jwt",
			AuthScheme:            "Bearer",
			Issuer:                "scionlab",
			Audience:              []string{"scionlab:portal"},
			RejectedRouteKey:      "redirect_to",
		},
		Registration: Registration{
			SiteName:           "SCIONLab",
			DefaultFromEmail:   "scionlab-admins@sympa.ethz.ch",
			ActivationDays:     7,
			RegistrationOpen:   true,
			DefaultPhoneRegion: "CH",
		},
		Mail: Mail{
			Backend: "console",
		},
		Persistence: Persistence{
			PingTimeoutExpression: "2s",
		},
		Server: Server{
			Address: ":8000",
		},
	}
}

func (a BaseConfig) Validate() error {
	if a.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	switch a.Auth.SigningMethod {
	case "", "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("auth.signing_method %q is not supported", a.Auth.SigningMethod)
	}
	if a.Registration.ActivationDays < 0 {
		return fmt.Errorf("registration.activation_days must not be negative")
	}
	switch a.Mail.Backend {
	case "", "console", "memory", "smtp":
	default:
		return fmt.Errorf("mail.backend %q is not supported", a.Mail.Backend)
	}
	return nil
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 2 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}
