// Package permission evaluates ordered permission providers against a
// request and, optionally, a target object.
package permission

import (
	"context"
	"fmt"

	"github.com/hanpama/relaygraph/internal/fault"
	"github.com/hanpama/relaygraph/internal/request"
)

// DefaultMessage is reported for providers without a message of their own.
const DefaultMessage = "You do not have permission to perform this action."

// Provider decides whether a request, and an object it targets, may proceed.
// Message may return "" to use DefaultMessage.
type Provider interface {
	HasPermission(ctx context.Context, r *request.Request) bool
	HasObjectPermission(ctx context.Context, r *request.Request, obj any) bool
	Message() string
}

// DeniedError reports a denial. It is surfaced as a request-level error.
type DeniedError struct {
	Message string
}

func (e *DeniedError) Error() string { return e.Message }
func (e *DeniedError) Unwrap() error { return fault.ErrPermissionDenied }

// Deny returns a DeniedError carrying msg, or DefaultMessage when msg is "".
func Deny(msg string) error {
	if msg == "" {
		msg = DefaultMessage
	}
	return &DeniedError{Message: msg}
}

// Gate is an ordered provider list. Evaluation stops at the first denial.
type Gate []Provider

// Check runs HasPermission for every provider in order.
func (g Gate) Check(ctx context.Context, r *request.Request) error {
	for _, p := range g {
		if !p.HasPermission(ctx, r) {
			return Deny(p.Message())
		}
	}
	return nil
}

// CheckObject runs HasObjectPermission for every provider in order.
func (g Gate) CheckObject(ctx context.Context, r *request.Request, obj any) error {
	for _, p := range g {
		if !p.HasObjectPermission(ctx, r, obj) {
			return Deny(p.Message())
		}
	}
	return nil
}

// Base allows everything; embed it to implement only the checks you need.
type Base struct{}

func (Base) HasPermission(context.Context, *request.Request) bool            { return true }
func (Base) HasObjectPermission(context.Context, *request.Request, any) bool { return true }
func (Base) Message() string                                                 { return "" }

// Func adapts functions to a Provider. Nil functions allow.
type Func struct {
	Request func(ctx context.Context, r *request.Request) bool
	Object  func(ctx context.Context, r *request.Request, obj any) bool
	Msg     string
}

func (f Func) HasPermission(ctx context.Context, r *request.Request) bool {
	return f.Request == nil || f.Request(ctx, r)
}

func (f Func) HasObjectPermission(ctx context.Context, r *request.Request, obj any) bool {
	return f.Object == nil || f.Object(ctx, r, obj)
}

func (f Func) Message() string { return f.Msg }

type allowAny struct{ Base }

type isAuthenticated struct{ Base }

func (isAuthenticated) HasPermission(_ context.Context, r *request.Request) bool {
	return r.Authenticated()
}

type isAdminUser struct{ Base }

func (isAdminUser) HasPermission(_ context.Context, r *request.Request) bool {
	return r.Authenticated() && r.User.Staff
}

type isAuthenticatedOrReadOnly struct{ Base }

func (isAuthenticatedOrReadOnly) HasPermission(_ context.Context, r *request.Request) bool {
	return r.Safe() || r.Authenticated()
}

var (
	// AllowAny allows every request.
	AllowAny Provider = allowAny{}
	// IsAuthenticated requires an authenticated user.
	IsAuthenticated Provider = isAuthenticated{}
	// IsAdminUser requires a staff user.
	IsAdminUser Provider = isAdminUser{}
	// IsAuthenticatedOrReadOnly allows safe methods to anyone.
	IsAuthenticatedOrReadOnly Provider = isAuthenticatedOrReadOnly{}
)

// HasPerms requires the user to hold every named permission.
func HasPerms(perms ...string) Provider {
	return Func{
		Request: func(_ context.Context, r *request.Request) bool {
			return r.Authenticated() && r.User.HasPerms(perms...)
		},
		Msg: fmt.Sprintf("Permission %v required.", perms),
	}
}
