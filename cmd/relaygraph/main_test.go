package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/relaygraph/internal/server"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "relaygraph dev\n", out)
}

func TestSchema(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)
	require.Contains(t, out, "type WidgetConnection {")
	require.Contains(t, out, "enum WidgetFinish {")
	require.Contains(t, out, "type WidgetMutationResponse {")
	require.NotContains(t, out, "__Schema")

	path := filepath.Join(t.TempDir(), "schema.graphql")
	_, err = execute(t, "schema", "--out", path)
	require.NoError(t, err)
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, out, string(written))
}

func TestToken(t *testing.T) {
	_, err := execute(t, "token")
	require.ErrorContains(t, err, "jwt_secret")

	t.Setenv("RELAYGRAPH_AUTH_JWT_SECRET", "local")
	out, err := execute(t, "token", "--user", "ana", "--staff")
	require.NoError(t, err)

	claims, err := server.NewAuthenticator([]byte("local")).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	u := claims.User()
	require.Equal(t, "ana", u.ID)
	require.True(t, u.Staff)
}

func TestBadConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "version")
	require.ErrorContains(t, err, "read config")
}
