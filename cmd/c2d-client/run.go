package main

import (
	"context"
	"strconv"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	cors "github.com/itsjamie/gin-cors"
	"github.com/lagrangedao/go-compute-to-data/internal/computing"
	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/initializer"
	"github.com/lagrangedao/go-compute-to-data/routers"
	"github.com/lagrangedao/go-compute-to-data/util"
	"github.com/lagrangedao/go-compute-to-data/yaml"
	"github.com/urfave/cli/v2"
)

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "Start the local status API",
	Action: func(cctx *cli.Context) error {
		logs.GetLogger().Info("Start in compute-to-data client mode.")

		comps, err := initializer.ProjectInit(initializer.Options{
			RepoPath: repoPath(cctx),
			Account:  cctx.String(FlagFrom),
			Prompter: credential.AutoPrompter{},
		})
		if err != nil {
			return err
		}
		defer comps.Close()
		cfg := comps.Config

		resolver := yaml.NewFileResolver()
		if err := resolver.LoadDir(cfg.Assets.Dir); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		svc := computing.NewC2DService(ctx, comps.Orchestrator, resolver, comps.Chain.Address())

		r := gin.Default()
		r.Use(cors.Middleware(cors.Config{
			Origins:         "*",
			Methods:         "GET, PUT, POST, DELETE",
			RequestHeaders:  "Origin, Authorization, Content-Type",
			ExposedHeaders:  "",
			MaxAge:          50 * time.Second,
			ValidateHeaders: false,
		}))
		pprof.Register(r)

		v1 := r.Group("/api/v1")
		routers.C2DManager(v1.Group("/compute"), svc)

		shutdownChan := make(chan struct{})
		httpStopper, err := util.ServeHttp(r, "c2d-api", ":"+strconv.Itoa(cfg.API.Port), cfg.API.CrtFile, cfg.API.KeyFile)
		if err != nil {
			logs.GetLogger().Fatalf("failed to start c2d-api endpoint: %s", err)
		}

		finishCh := util.MonitorShutdown(shutdownChan,
			util.ShutdownHandler{Component: "c2d-api", StopFunc: httpStopper},
			util.ShutdownHandler{Component: "orchestrator", StopFunc: func(context.Context) error {
				cancel()
				return nil
			}},
		)
		<-finishCh

		return nil
	},
}
