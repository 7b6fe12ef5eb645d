package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	c, err := loadConfig([]string{"-secret", "s"}, envMap(nil), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "postgres", c.Storage)
	assert.Equal(t, 20000*time.Second, c.TokenTTL)
	assert.Equal(t, 20, c.DefaultLimit)
	assert.Equal(t, 100, c.MaxLimit)
	assert.True(t, c.Metrics)
	assert.Equal(t, 5, c.LoginMaxFail)
	assert.Equal(t, 15*time.Minute, c.LoginWindow)
	assert.Equal(t, 15*time.Minute, c.LoginBlock)
}

func TestLoadConfig_EnvAndFlags(t *testing.T) {
	t.Parallel()

	env := envMap(map[string]string{
		"BUCKETLIST_ADDR":          ":9000",
		"BUCKETLIST_SECRET":        "from-env",
		"BUCKETLIST_TOKEN_TTL":     "3600",
		"BUCKETLIST_DEFAULT_LIMIT": "10",
		"BUCKETLIST_MAX_LIMIT":     "50",
		"BUCKETLIST_METRICS":       "false",
		"BUCKETLIST_STORAGE":       "memory",
	})
	c, err := loadConfig(nil, env, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Addr)
	assert.Equal(t, "from-env", c.Secret)
	assert.Equal(t, time.Hour, c.TokenTTL)
	assert.Equal(t, 10, c.paging().DefaultLimit)
	assert.Equal(t, 50, c.paging().MaxLimit)
	assert.False(t, c.Metrics)
	assert.Equal(t, "memory", c.Storage)

	// flags win over env
	c, err = loadConfig([]string{"-addr", ":7000", "-token-ttl", "90s"}, env, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.Addr)
	assert.Equal(t, 90*time.Second, c.TokenTTL)
}

func TestLoadConfig_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		args []string
		env  map[string]string
	}{
		"missing secret": {},
		"bad storage":    {args: []string{"-secret", "s", "-storage", "redis"}},
		"default>max":    {args: []string{"-secret", "s", "-default-limit", "200"}},
		"zero ttl":       {args: []string{"-secret", "s", "-token-ttl", "0s"}},
		"bad env ttl":    {args: []string{"-secret", "s"}, env: map[string]string{"BUCKETLIST_TOKEN_TTL": "soon"}},
		"bad env limit":  {args: []string{"-secret", "s"}, env: map[string]string{"BUCKETLIST_MAX_LIMIT": "lots"}},
		"unknown flag":   {args: []string{"-secret", "s", "-nope"}},
	}
	for name, c := range cases {
		_, err := loadConfig(c.args, envMap(c.env), io.Discard)
		assert.Error(t, err, name)
	}
}
