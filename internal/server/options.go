package server

import "time"

// Options configures a Handler. The zero value serves without timeout,
// CORS, forwarded headers or authentication.
type Options struct {
	// Timeout bounds requests whose context has no deadline. 0 disables it.
	Timeout time.Duration
	// Pretty indents JSON responses.
	Pretty bool
	// MaxBodyBytes caps the request body. 0 leaves JSON bodies unbounded and
	// caps multipart bodies at 32 MiB.
	MaxBodyBytes int64
	// CORSOrigins lists the allowed origins; "*" allows any. Empty disables
	// CORS headers.
	CORSOrigins []string
	// MetadataHeaders names the HTTP headers resolvers may read through
	// request.Request.Header, matched case-insensitively.
	MetadataHeaders []string
	// GraphiQL serves the IDE to browsers issuing a GET without a query.
	GraphiQL bool
	// Auth verifies bearer tokens. Without it every request is anonymous.
	Auth *Authenticator
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option        { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                        { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option           { return func(o *Options) { o.MaxBodyBytes = n } }
func WithGraphiQL(enable bool) Option           { return func(o *Options) { o.GraphiQL = enable } }
func WithAuthenticator(a *Authenticator) Option { return func(o *Options) { o.Auth = a } }

func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORSOrigins = origins }
}

func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}
