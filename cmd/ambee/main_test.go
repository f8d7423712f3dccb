package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/ambee/internal/ambeetest"
	"github.com/breatheroute/ambee/pkg/ambee"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestRun_PrintsRecord(t *testing.T) {
	srv := ambeetest.NewServer(t)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-lat", "12", "-lng", "77", "weather"}, &stdout, &stderr, env(map[string]string{
		"AMBEE_API_KEY":  ambeetest.APIKey,
		"AMBEE_BASE_URL": srv.URL,
	}))
	require.NoError(t, err)

	var w ambee.Weather
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &w))
	require.NotNil(t, w.Temperature)
	assert.Equal(t, 68.3, *w.Temperature)
	assert.Contains(t, stdout.String(), "\n  \"temperature\": 68.3")
}

func TestRun_Errors(t *testing.T) {
	srv := ambeetest.NewServer(t)
	srv.Fail("/latest/pollen/by-lat-lng", http.StatusInternalServerError)

	vars := map[string]string{"AMBEE_API_KEY": ambeetest.APIKey, "AMBEE_BASE_URL": srv.URL}

	tests := []struct {
		name string
		args []string
		env  map[string]string
		is   error
	}{
		{name: "no resource", args: nil, env: vars, is: errUsage},
		{name: "unknown resource", args: []string{"uv"}, env: vars, is: errUsage},
		{name: "no key", args: []string{"pollen"}, env: map[string]string{}},
		{name: "api error", args: []string{"pollen"}, env: vars, is: ambee.ErrAPI},
		{name: "rejected key", args: []string{"-key", "wrong", "pollen"}, env: vars, is: ambee.ErrAuthentication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr, env(tt.env))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			assert.Zero(t, stdout.Len())
		})
	}
}
