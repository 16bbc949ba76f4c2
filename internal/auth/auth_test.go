package auth_test

import (
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/silsilah/internal/auth"
)

func TestAuthenticator(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name    string
		token   string
		headers map[string]string
		admin   bool
		wantErr error
	}{
		{name: "disabled allows anonymous", token: "", admin: false, wantErr: nil},
		{name: "whitespace token is disabled", token: "  ", admin: false, wantErr: nil},
		{name: "missing token", token: "s3cret", wantErr: auth.ErrUnauthorized},
		{
			name:    "bearer token",
			token:   "s3cret",
			headers: map[string]string{"Authorization": "Bearer s3cret"},
			admin:   true,
		},
		{
			name:    "bearer scheme is case insensitive",
			token:   "s3cret",
			headers: map[string]string{"Authorization": "bearer s3cret"},
			admin:   true,
		},
		{
			name:    "header token",
			token:   "s3cret",
			headers: map[string]string{auth.HeaderToken: "s3cret"},
			admin:   true,
		},
		{
			name:    "wrong token",
			token:   "s3cret",
			headers: map[string]string{"Authorization": "Bearer nope"},
			wantErr: auth.ErrUnauthorized,
		},
		{
			name:    "basic scheme is rejected",
			token:   "s3cret",
			headers: map[string]string{"Authorization": "Basic s3cret"},
			wantErr: auth.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			a := auth.New(tt.token)
			req := httptest.NewRequest("POST", "/api/members", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			s := a.Session(req)
			c.Assert(s.IsAdmin(), qt.Equals, tt.admin)
			err := a.Require(s)
			if tt.wantErr == nil {
				c.Assert(err, qt.IsNil)
			} else {
				c.Assert(err, qt.ErrorIs, tt.wantErr)
			}
		})
	}
}
