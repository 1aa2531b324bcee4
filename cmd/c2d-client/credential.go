package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/lagrangedao/go-compute-to-data/conf"
	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/initializer"
	"github.com/urfave/cli/v2"
)

var credentialCmd = &cli.Command{
	Name:  "credential",
	Usage: "Manage SSI credential sessions",
	Subcommands: []*cli.Command{
		credentialReset,
		credentialVerify,
	},
}

var credentialReset = &cli.Command{
	Name:  "reset",
	Usage: "Drop every cached credential and verifier session",
	Action: func(cctx *cli.Context) error {
		if err := conf.InitConfig(repoPath(cctx)); err != nil {
			return err
		}
		store, err := initializer.NewCacheStore(conf.GetConfig().Cache)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := credential.NewCache(store, conf.GetConfig().Policy.SessionTTL()).Reset(); err != nil {
			return err
		}
		fmt.Println("credential cache cleared")
		return nil
	},
}

var credentialVerify = &cli.Command{
	Name:  "verify",
	Usage: "Present credentials for an asset service and print the verifier session",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "did",
			Usage:    "asset DID",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "service",
			Usage:    "service id",
			Required: true,
		},
		yesFlag,
	},
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		comps, err := setup(cctx, !cctx.Bool("yes"))
		if err != nil {
			return err
		}
		defer comps.Close()

		if !comps.Gate.Enabled() {
			color.Yellow("SSI verification is disabled, set Policy.SsiEnabled to use it")
			return nil
		}
		sessionID, err := comps.Gate.Verify(ctx, credential.Request{
			AssetID:   cctx.String("did"),
			ServiceID: cctx.String("service"),
			AccountID: comps.Chain.Address(),
		})
		if err != nil {
			return err
		}
		color.Green("verifier session: %s", sessionID)
		return nil
	},
}
