package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

//runWith parses argv through a command carrying the given flags and hands the
//resulting context to load.
func runWith(t *testing.T, flags []cli.Flag, load func(c *cli.Context) error, argv ...string) {
	t.Helper()
	app := cli.NewApp()
	app.Commands = []cli.Command{{Name: "cmd", Flags: flags, Action: load}}
	require.NoError(t, app.Run(append([]string{"realm", "cmd"}, argv...)))
}

func TestRelayArgsDefaults(t *testing.T) {
	var args *RelayConfig
	var err error
	runWith(t, GetRelayCommand().Flags, func(c *cli.Context) error {
		args, err = loadRelayConfig(c)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "localhost:8000", args.Address)
	assert.Equal(t, "relay.db", args.Database)
	assert.Equal(t, 5*time.Minute, args.SessionTimeout)
	assert.Equal(t, 720*time.Hour, args.Retention)
}

func TestRelayArgsFlagsOverrideEnv(t *testing.T) {
	t.Setenv("REALM_RELAY_ADDRESS", "0.0.0.0:9000")
	t.Setenv("REALM_RELAY_DATABASE", "env.db")
	t.Setenv("REALM_SESSION_TIMEOUT", "1m")

	var args *RelayConfig
	var err error
	runWith(t, GetRelayCommand().Flags, func(c *cli.Context) error {
		args, err = loadRelayConfig(c)
		return nil
	}, "--database", "flag.db", "--timeout", "30s")

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", args.Address)
	assert.Equal(t, "flag.db", args.Database)
	assert.Equal(t, 30*time.Second, args.SessionTimeout)
	assert.Contains(t, args.String(), "flag.db")
}

func TestRelayArgsValidation(t *testing.T) {
	valid := RelayConfig{Address: "localhost:8000", Database: "relay.db", SessionTimeout: time.Minute}
	require.NoError(t, valid.ValidateInput())

	tests := []struct {
		name   string
		mutate func(args *RelayConfig)
	}{
		{"address", func(args *RelayConfig) { args.Address = "" }},
		{"database", func(args *RelayConfig) { args.Database = "" }},
		{"timeout", func(args *RelayConfig) { args.SessionTimeout = 0 }},
		{"retention", func(args *RelayConfig) { args.Retention = -time.Hour }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			args := valid
			test.mutate(&args)
			assert.Error(t, args.ValidateInput())
		})
	}
}

func TestPeerArgs(t *testing.T) {
	t.Setenv("REALM_COLONY", "Outpost")
	t.Setenv("REALM_RECEIVE_ITEMS", "true")

	var args *PeerConfig
	var err error
	runWith(t, GetPeerCommand().Flags, func(c *cli.Context) error {
		args, err = loadPeerConfig(c)
		return nil
	}, "--relay", "10.0.0.1:8000", "--no-items", "--seed", "42")

	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8000", args.Relay)
	assert.Equal(t, "Outpost", args.Colony)
	assert.Equal(t, int64(42), args.Seed)
	assert.True(t, args.ReceiveColonists)
	assert.False(t, args.ReceiveItems)
	assert.Equal(t, "identity.txt", args.IdentityFile)
}

func TestPeerArgsRandomSeed(t *testing.T) {
	var args *PeerConfig
	var err error
	runWith(t, GetPeerCommand().Flags, func(c *cli.Context) error {
		args, err = loadPeerConfig(c)
		return nil
	})

	require.NoError(t, err)
	assert.NotZero(t, args.Seed)
}

func TestPeerArgsValidation(t *testing.T) {
	args := PeerConfig{Relay: "localhost:8000", IdentityFile: "id.txt", Database: "peer.db"}
	assert.Error(t, args.ValidateInput())

	args.Colony = "Outpost"
	assert.NoError(t, args.ValidateInput())
}
