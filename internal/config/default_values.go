package config

const (
	DefaultBackendBaseURL = "http://127.0.0.1:5000"
	DefaultBackendAPIPath = "/api"
	DefaultSessionKey     = "user"
)
