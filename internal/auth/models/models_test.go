package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "teamdns/pkg/domain-errors"
)

func validRegister() RegisterRequest {
	return RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "s3cret-pass"}
}

func TestRegisterRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *RegisterRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(*RegisterRequest) {}},
		{name: "missing username", mutate: func(r *RegisterRequest) { r.Username = "" }, wantErr: "username is required"},
		{name: "short username", mutate: func(r *RegisterRequest) { r.Username = "al" }, wantErr: "username must be at least"},
		{name: "username with spaces", mutate: func(r *RegisterRequest) { r.Username = "al ice" }, wantErr: "username must be at least"},
		{name: "long username", mutate: func(r *RegisterRequest) { r.Username = strings.Repeat("a", 51) }, wantErr: "50 characters"},
		{name: "bad email", mutate: func(r *RegisterRequest) { r.Email = "not-an-email" }, wantErr: "email is invalid"},
		{name: "display name email", mutate: func(r *RegisterRequest) { r.Email = "Alice <alice@example.com>" }, wantErr: "email is invalid"},
		{name: "short password", mutate: func(r *RegisterRequest) { r.Password = "short" }, wantErr: "at least 8"},
		{name: "long password", mutate: func(r *RegisterRequest) { r.Password = strings.Repeat("p", 73) }, wantErr: "72 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegister()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestRegisterRequestNormalize(t *testing.T) {
	req := RegisterRequest{Username: "  bob ", Email: " Bob@Example.COM ", FullName: " Bob B "}
	req.Normalize()

	assert.Equal(t, "bob", req.Username)
	assert.Equal(t, "bob@example.com", req.Email)
	assert.Equal(t, "Bob B", req.FullName)
}

func TestLoginRequestValidate(t *testing.T) {
	assert.Error(t, (&LoginRequest{Username: "a"}).Validate())
	assert.NoError(t, (&LoginRequest{Username: "a", Password: "b"}).Validate())
	assert.Error(t, (*LoginRequest)(nil).Validate())
}
