package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/joho/godotenv"
	"github.com/lagrangedao/go-compute-to-data/build"
	"github.com/urfave/cli/v2"
)

const (
	FlagRepo = "repo"
	FlagFrom = "from"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		logs.GetLogger().Warnf("load .env failed, error: %v", err)
	}

	app := &cli.App{
		Name:                 "c2d-client",
		Usage:                "A compute-to-data client that prices, pays for and starts compute jobs on a provider's environments.",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    FlagRepo,
				EnvVars: []string{"C2D_PATH"},
				Usage:   "c2d repo path",
				Value:   "~/.swan/c2d",
			},
			&cli.StringFlag{
				Name:  FlagFrom,
				Usage: "wallet address that pays and signs, defaults to Wallet.Address or the first key",
			},
		},
		Before: func(cctx *cli.Context) error {
			return os.Setenv("C2D_PATH", expandHome(cctx.String(FlagRepo)))
		},
		Commands: []*cli.Command{
			runCmd,
			envCmd,
			priceCmd,
			jobCmd,
			walletCmd,
			credentialCmd,
		},
	}
	app.Setup()

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func repoPath(cctx *cli.Context) string {
	return expandHome(cctx.String(FlagRepo))
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
