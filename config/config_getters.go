package config

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetSigningMethod() string {
	return a.SigningMethod
}

func (a Auth) GetContextKey() string {
	return a.ContextKey
}

func (a Auth) GetTokenExpiration() int {
	return a.TokenExpiration
}

func (a Auth) GetExtendedTokenDuration() int {
	return a.ExtendedTokenDuration
}

func (a Auth) GetTokenLookup() string {
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	return a.AuthScheme
}

func (a Auth) GetIssuer() string {
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	return a.Audience
}

func (a Auth) GetCookieSecure() bool {
	return a.CookieSecure
}

func (a Auth) GetRejectedRouteKey() string {
	return a.RejectedRouteKey
}

func (r Registration) GetSiteName() string {
	return r.SiteName
}

func (r Registration) GetDefaultFromEmail() string {
	return r.DefaultFromEmail
}

func (r Registration) GetActivationDays() int {
	return r.ActivationDays
}

func (r Registration) GetRegistrationOpen() bool {
	return r.RegistrationOpen
}

func (r Registration) GetUseHashid() bool {
	return r.UseHashid
}

func (r Registration) GetDefaultPhoneRegion() string {
	return r.DefaultPhoneRegion
}

func (m Mail) GetBackend() string {
	return m.Backend
}

func (m Mail) GetHost() string {
	return m.Host
}

func (m Mail) GetPort() int {
	return m.Port
}

func (m Mail) GetUsername() string {
	return m.Username
}

func (m Mail) GetPassword() string {
	return m.Password
}

func (p Persistence) GetDSN() string {
	return p.DSN
}

func (s Server) GetAddress() string {
	return s.Address
}

func (a BaseConfig) GetAuth() Auth {
	return a.Auth
}

func (a BaseConfig) GetRegistration() Registration {
	return a.Registration
}

func (a BaseConfig) GetMail() Mail {
	return a.Mail
}

func (a BaseConfig) GetPersistence() Persistence {
	return a.Persistence
}

func (a BaseConfig) GetServer() Server {
	return a.Server
}
