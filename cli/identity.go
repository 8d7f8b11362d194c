package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/way365/realm-exchange/identity"
)

func GetGenerateIdentityCommand() cli.Command {
	return cli.Command{
		Name:  "generate-identity",
		Usage: "generate a peer identity, or print the existing one",
		Action: func(c *cli.Context) error {
			filename := c.String("file")
			if filename == "" {
				return errors.New("argument missing: file")
			}

			user, err := identity.ExtractIdentityFromFile(filename, c.String("name"))
			if err != nil {
				return err
			}

			fmt.Printf("Identity ready in %v\n", filename)
			fmt.Printf("ID: %v\n", user.ID)
			fmt.Printf("Name: %v\n", user.Name)

			return nil
		},
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "file, f",
				Usage: "the identity's `FILE` name",
				Value: "identity.txt",
			},
			cli.StringFlag{
				Name:  "name, n",
				Usage: "display `NAME` of a new identity",
			},
		},
	}
}
