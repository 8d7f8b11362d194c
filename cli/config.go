package cli

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

type RelayConfig struct {
	Address        string        `env:"REALM_RELAY_ADDRESS"     envDefault:"localhost:8000"`
	Database       string        `env:"REALM_RELAY_DATABASE"    envDefault:"relay.db"`
	SessionTimeout time.Duration `env:"REALM_SESSION_TIMEOUT"   envDefault:"5m"`
	Retention      time.Duration `env:"REALM_LEDGER_RETENTION"  envDefault:"720h"`
	LogLevel       string        `env:"REALM_LOG_LEVEL"         envDefault:"info"`
	Development    bool          `env:"REALM_LOG_DEVELOPMENT"`
}

type PeerConfig struct {
	Relay            string `env:"REALM_RELAY"             envDefault:"localhost:8000"`
	IdentityFile     string `env:"REALM_IDENTITY_FILE"     envDefault:"identity.txt"`
	Name             string `env:"REALM_NAME"`
	Database         string `env:"REALM_PEER_DATABASE"     envDefault:"peer.db"`
	Colony           string `env:"REALM_COLONY"            envDefault:"New Arrivals"`
	Seed             int64  `env:"REALM_SEED"`
	ReceiveColonists bool   `env:"REALM_RECEIVE_COLONISTS" envDefault:"true"`
	ReceiveItems     bool   `env:"REALM_RECEIVE_ITEMS"     envDefault:"true"`
	LogLevel         string `env:"REALM_LOG_LEVEL"         envDefault:"warn"`
	Development      bool   `env:"REALM_LOG_DEVELOPMENT"`
}

//Environment first, explicitly set flags win.
func loadRelayConfig(c *cli.Context) (*RelayConfig, error) {
	args := &RelayConfig{}
	if err := env.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}

	if c.IsSet("address") {
		args.Address = c.String("address")
	}
	if c.IsSet("database") {
		args.Database = c.String("database")
	}
	if c.IsSet("timeout") {
		args.SessionTimeout = c.Duration("timeout")
	}
	if c.IsSet("retention") {
		args.Retention = c.Duration("retention")
	}
	if c.IsSet("log-level") {
		args.LogLevel = c.String("log-level")
	}
	if c.IsSet("dev") {
		args.Development = c.Bool("dev")
	}

	return args, args.ValidateInput()
}

func loadPeerConfig(c *cli.Context) (*PeerConfig, error) {
	args := &PeerConfig{}
	if err := env.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}

	if c.IsSet("relay") {
		args.Relay = c.String("relay")
	}
	if c.IsSet("identity") {
		args.IdentityFile = c.String("identity")
	}
	if c.IsSet("name") {
		args.Name = c.String("name")
	}
	if c.IsSet("database") {
		args.Database = c.String("database")
	}
	if c.IsSet("colony") {
		args.Colony = c.String("colony")
	}
	if c.IsSet("seed") {
		args.Seed = c.Int64("seed")
	}
	if c.IsSet("no-colonists") {
		args.ReceiveColonists = !c.Bool("no-colonists")
	}
	if c.IsSet("no-items") {
		args.ReceiveItems = !c.Bool("no-items")
	}
	if c.IsSet("log-level") {
		args.LogLevel = c.String("log-level")
	}
	if c.IsSet("dev") {
		args.Development = c.Bool("dev")
	}
	if args.Seed == 0 {
		args.Seed = time.Now().UnixNano()
	}

	return args, args.ValidateInput()
}

func (args RelayConfig) ValidateInput() error {
	if len(args.Address) == 0 {
		return errors.New("argument missing: address")
	}

	if len(args.Database) == 0 {
		return errors.New("argument missing: database")
	}

	if args.SessionTimeout <= 0 {
		return errors.New("argument invalid: session timeout must be positive")
	}

	if args.Retention < 0 {
		return errors.New("argument invalid: retention must not be negative")
	}

	return nil
}

func (args RelayConfig) String() string {
	return fmt.Sprintf("Starting realm relay with arguments \n"+
		"- Address:\t\t\t %v\n"+
		"- Database:\t\t\t %v\n"+
		"- Session Timeout:\t\t %v\n"+
		"- Ledger Retention:\t\t %v\n",
		args.Address,
		args.Database,
		args.SessionTimeout,
		args.Retention)
}

func (args PeerConfig) ValidateInput() error {
	if len(args.Relay) == 0 {
		return errors.New("argument missing: relay")
	}

	if len(args.IdentityFile) == 0 {
		return errors.New("argument missing: identity")
	}

	if len(args.Database) == 0 {
		return errors.New("argument missing: database")
	}

	if len(args.Colony) == 0 {
		return errors.New("argument missing: colony")
	}

	return nil
}

func (args PeerConfig) String() string {
	return fmt.Sprintf("Starting realm peer with arguments \n"+
		"- Relay:\t\t\t %v\n"+
		"- Identity File:\t\t %v\n"+
		"- Database:\t\t\t %v\n"+
		"- Colony:\t\t\t %v\n"+
		"- Receive Colonists:\t\t %v\n"+
		"- Receive Items:\t\t %v\n",
		args.Relay,
		args.IdentityFile,
		args.Database,
		args.Colony,
		args.ReceiveColonists,
		args.ReceiveItems)
}
