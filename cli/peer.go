package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/way365/realm-exchange/client"
	"github.com/way365/realm-exchange/identity"
	"github.com/way365/realm-exchange/logging"
	"github.com/way365/realm-exchange/protocol"
	"github.com/way365/realm-exchange/storage"
	"github.com/way365/realm-exchange/world"
	"go.uber.org/zap"
)

func GetPeerCommand() cli.Command {
	return cli.Command{
		Name:  "peer",
		Usage: "join a realm with a colony and trade colonists and items",
		Action: func(c *cli.Context) error {
			args, err := loadPeerConfig(c)
			if err != nil {
				return err
			}

			fmt.Println(args.String())

			return StartPeer(args)
		},
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "relay, r",
				Usage: "connect to the relay at `IP:PORT`",
			},
			cli.StringFlag{
				Name:  "identity, i",
				Usage: "load the identity from `FILE`, creating it when missing",
			},
			cli.StringFlag{
				Name:  "name, n",
				Usage: "display `NAME` used when a new identity is created",
			},
			cli.StringFlag{
				Name:  "database, d",
				Usage: "keep salvaged envelopes in `FILE`",
			},
			cli.StringFlag{
				Name:  "colony, c",
				Usage: "`NAME` of the local colony",
			},
			cli.Int64Flag{
				Name:  "seed",
				Usage: "random `SEED` of the local colony map",
			},
			cli.BoolFlag{
				Name:  "no-colonists",
				Usage: "refuse incoming colonists",
			},
			cli.BoolFlag{
				Name:  "no-items",
				Usage: "refuse incoming items",
			},
			cli.StringFlag{
				Name:  "log-level",
				Usage: "minimum `LEVEL` to log",
			},
			cli.BoolFlag{
				Name:  "dev",
				Usage: "log in human readable development format",
			},
		},
	}
}

func StartPeer(args *PeerConfig) error {
	logger, err := logging.InitLogger(args.LogLevel, args.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	self, err := identity.ExtractIdentityFromFile(args.IdentityFile, args.Name)
	if err != nil {
		logger.Error("load identity", zap.Error(err))
		return err
	}
	self.Preferences = protocol.Preferences{
		ReceiveColonists: args.ReceiveColonists,
		ReceiveItems:     args.ReceiveItems,
	}

	store, err := storage.Init(args.Database, logger)
	if err != nil {
		logger.Error("open salvage store", zap.Error(err))
		return err
	}
	defer store.TearDown()

	colony := world.NewColony(args.Colony, world.MAP_SIZE, args.Seed, logger)
	colony.SpawnStarters()

	console := NewConsole(os.Stdout, colony, store, logger)
	peer, err := client.Dial(args.Relay, self, client.Collaborators{
		Decisions: console,
		World:     colony,
		Notifier:  console,
		Salvage:   store,
	}, logger)
	if err != nil {
		logger.Error("dial relay", zap.String("relay", args.Relay), zap.Error(err))
		return err
	}
	console.Attach(peer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ran := make(chan error, 1)
	go func() {
		ran <- peer.Run(ctx)
		cancel()
	}()

	fmt.Printf("Joined the realm as %v with colony %v\n", self, colony.Name())
	if err := console.Run(ctx, os.Stdin); err != nil {
		logger.Warn("console stopped", zap.Error(err))
	}
	cancel()

	if err := <-ran; err != nil {
		if errors.Is(err, client.ErrRejected) {
			fmt.Println("The relay refused this session:", err)
		}
		return err
	}
	return nil
}
