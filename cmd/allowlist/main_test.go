package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/nftkit/allowlist-go/pkg/config"
)

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("ALLOWLIST_CONFIG", "")
	t.Setenv(config.EnvAllowListPort, "")

	app := newApp()
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app.Run(append([]string{"allowlist"}, args...))
}

func TestServePortIsValidated(t *testing.T) {
	testCases := []struct {
		name string
		port string
	}{
		{"Zero", "0"},
		{"Too large", "70000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := runApp(t, "serve", "--port", tc.port)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}

	t.Run("Valid port passes validation", func(t *testing.T) {
		err := runApp(t, "serve", "--port", "9000")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "server.port")
		assert.Contains(t, err.Error(), "no member file")
	})
}
