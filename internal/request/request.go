// Package request carries the HTTP request facts resolvers need (method,
// content type, forwarded headers, uploaded files and the authenticated
// user) through the resolution context.
package request

import (
	"context"
	"mime"
	"net/http"
	"slices"
	"strings"

	"google.golang.org/grpc/metadata"
)

// User is the authenticated principal of a request. An anonymous request has
// a nil *User.
type User struct {
	ID          string
	Username    string
	Staff       bool
	Superuser   bool
	Permissions []string
}

// HasPerm reports whether u holds perm. Superusers hold every permission.
func (u *User) HasPerm(perm string) bool {
	if u == nil {
		return false
	}
	return u.Superuser || slices.Contains(u.Permissions, perm)
}

// HasPerms reports whether u holds all of perms.
func (u *User) HasPerms(perms ...string) bool {
	for _, p := range perms {
		if !u.HasPerm(p) {
			return false
		}
	}
	return true
}

// File is one uploaded multipart part.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
}

type Request struct {
	Method      string
	ContentType string
	// Header holds the forwarded headers with lower-cased keys.
	Header metadata.MD
	// Files maps multipart field names to uploads.
	Files map[string]*File
	User  *User
}

// Authenticated reports whether the request carries a user.
func (r *Request) Authenticated() bool { return r != nil && r.User != nil }

// Multipart reports whether the request body was multipart/form-data.
func (r *Request) Multipart() bool {
	if r == nil || r.ContentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(r.ContentType)
	return err == nil && strings.EqualFold(mt, "multipart/form-data")
}

// Safe reports whether the method is read-only.
func (r *Request) Safe() bool {
	if r == nil {
		return false
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

type key struct{}

// NewContext returns a copy of parent carrying r.
func NewContext(parent context.Context, r *Request) context.Context {
	return context.WithValue(parent, key{}, r)
}

// FromContext returns the request stored in ctx or an empty anonymous one.
func FromContext(ctx context.Context) *Request {
	if r, ok := ctx.Value(key{}).(*Request); ok && r != nil {
		return r
	}
	return &Request{}
}
