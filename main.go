package main

import (
	"os"

	"github.com/urfave/cli"
	realmcli "github.com/way365/realm-exchange/cli"
	"github.com/way365/realm-exchange/logging"
	"go.uber.org/zap"
)

func main() {
	logger, err := logging.InitLogger("error", false)
	if err != nil {
		panic(err)
	}

	app := cli.NewApp()

	app.Name = "realm-exchange"
	app.Usage = "trade colonists and items between colonies through a shared relay"
	app.Version = "1.0.0"
	app.EnableBashCompletion = true
	app.Commands = []cli.Command{
		realmcli.GetRelayCommand(),
		realmcli.GetPeerCommand(),
		realmcli.GetGenerateIdentityCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("realm-exchange", zap.Error(err))
	}
}
