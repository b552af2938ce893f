package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	reserved := map[string]bool{"localhost": true}

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"simple", "myservice", false},
		{"with separators", "my-service.v2_beta", false},
		{"single letter", "a", false},
		{"empty", "", true},
		{"reserved", "localhost", true},
		{"leading digit", "1service", true},
		{"leading dash", "-service", true},
		{"index namespace", "^TOKEN_OWNERS", true},
		{"whitespace", "my service", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.token, reserved)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrInvalid, AsError(err).Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    Record
		admin   bool
		wantErr string
	}{
		{
			name: "minimal valid",
			body: Record{"cmd": "/usr/bin/service"},
		},
		{
			name:    "unknown key",
			body:    Record{"cmd": "/x", "bogus": "y"},
			wantErr: "unsupported key",
		},
		{
			name:    "no user fields",
			body:    Record{},
			wantErr: "no user fields",
		},
		{
			name:    "admin-only key as user",
			body:    Record{"cmd": "/x", "root": "other"},
			wantErr: "cannot be set by a user",
		},
		{
			name:  "admin-only key as admin",
			body:  Record{"cmd": "/x", "root": "other"},
			admin: true,
		},
		{
			name:    "previous must be a map",
			body:    Record{"cmd": "/x", "previous": "nope"},
			admin:   true,
			wantErr: "must be a map",
		},
		{
			name: "auth disabled needs wildcard permitted-user",
			body: Record{
				"cmd": "/x", "cpus": 1, "mem": 128, "version": "1",
				"authentication": "disabled",
			},
			wantErr: "permitted-user",
		},
		{
			name: "auth disabled complete",
			body: Record{
				"cmd": "/x", "cpus": 1, "mem": 128, "version": "1",
				"authentication": "disabled", "permitted-user": "*",
			},
		},
		{
			name: "auth disabled incomplete",
			body: Record{
				"cmd": "/x", "authentication": "disabled", "permitted-user": "*",
			},
			wantErr: "must define cpus",
		},
		{
			name:    "interstitial requires complete description",
			body:    Record{"cmd": "/x", "interstitial-secs": 30},
			wantErr: "must define cpus",
		},
		{
			name: "interstitial complete",
			body: Record{
				"cmd": "/x", "cpus": 1, "mem": 128, "version": "1",
				"interstitial-secs": 30,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest("mytoken", tt.body, tt.admin)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseUpdateTime(t *testing.T) {
	ms, err := ParseUpdateTime("2026-01-02T15:04:05Z")
	require.NoError(t, err)
	want := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, ms)

	ms, err = ParseUpdateTime(float64(1735689600000))
	require.NoError(t, err)
	assert.Equal(t, int64(1735689600000), ms)

	_, err = ParseUpdateTime("yesterday")
	assert.Error(t, err)

	_, err = ParseUpdateTime(true)
	assert.Error(t, err)
}
