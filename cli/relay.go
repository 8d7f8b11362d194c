package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/way365/realm-exchange/logging"
	"github.com/way365/realm-exchange/relay"
	"github.com/way365/realm-exchange/storage"
	"go.uber.org/zap"
)

func GetRelayCommand() cli.Command {
	return cli.Command{
		Name:  "relay",
		Usage: "start the relay server that arbitrates exchanges between peers",
		Action: func(c *cli.Context) error {
			args, err := loadRelayConfig(c)
			if err != nil {
				return err
			}

			fmt.Println(args.String())

			return StartRelay(args)
		},
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "address, a",
				Usage: "listen at `IP:PORT`",
			},
			cli.StringFlag{
				Name:  "database, d",
				Usage: "load the transaction ledger from `FILE`",
			},
			cli.DurationFlag{
				Name:  "timeout, t",
				Usage: "interrupt transactions left open longer than `DURATION`",
			},
			cli.DurationFlag{
				Name:  "retention",
				Usage: "prune closed transactions older than `DURATION` at startup, 0 keeps everything",
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

func StartRelay(args *RelayConfig) error {
	logger, err := logging.InitLogger(args.LogLevel, args.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := storage.Init(args.Database, logger)
	if err != nil {
		logger.Error("open ledger", zap.Error(err))
		return err
	}
	defer store.TearDown()

	if args.Retention > 0 {
		pruned, err := store.DeleteClosedTxBefore(time.Now().Add(-args.Retention))
		if err != nil {
			logger.Error("prune ledger", zap.Error(err))
			return err
		}
		logger.Info("ledger pruned", zap.Int("transactions", pruned))
	}

	hub, err := relay.NewHub(store, relay.Options{SessionTimeout: args.SessionTimeout}, logger)
	if err != nil {
		logger.Error("start hub", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return relay.NewServer(hub, logger).ListenAndServe(ctx, args.Address)
}
