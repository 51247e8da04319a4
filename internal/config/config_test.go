package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/relaygraph/internal/logging"
)

func TestDefaults(t *testing.T) {
	c, err := Load(New(), "")
	require.NoError(t, err)
	want := &Config{
		Server: Server{
			Addr:            ":8080",
			Timeout:         10 * time.Second,
			MaxBodyBytes:    32 << 20,
			MetadataHeaders: []string{},
			CORSOrigins:     []string{},
			GraphiQL:        true,
		},
		GraphQL:  GraphQL{DefaultPageSize: 100, Introspection: true},
		Database: Database{Path: "relaygraph.db"},
		Auth:     Auth{TokenTTL: time.Hour},
		Log:      logging.Config{Level: "info", Format: "text", Output: "stderr"},
		Otel:     Otel{Service: "relaygraph"},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relaygraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  timeout: 3s
  cors_origins: ["https://app.example"]
graphql:
  default_page_size: 25
log:
  format: json
`), 0o644))
	t.Setenv("RELAYGRAPH_SERVER_ADDR", ":7070")
	t.Setenv("RELAYGRAPH_AUTH_JWT_SECRET", "s3cret")

	c, err := Load(New(), path)
	require.NoError(t, err)
	require.Equal(t, ":7070", c.Server.Addr, "environment wins over the file")
	require.Equal(t, 3*time.Second, c.Server.Timeout)
	require.Equal(t, []string{"https://app.example"}, c.Server.CORSOrigins)
	require.Equal(t, 25, c.GraphQL.DefaultPageSize)
	require.Equal(t, "json", c.Log.Format)
	require.Equal(t, "s3cret", c.Auth.JWTSecret)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")

	v := New()
	v.Set("graphql.default_page_size", -1)
	_, err = Load(v, "")
	require.ErrorContains(t, err, "default_page_size")

	v = New()
	v.Set("server.addr", "")
	_, err = Load(v, "")
	require.ErrorContains(t, err, "server.addr")
}
