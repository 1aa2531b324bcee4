package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/computing"
	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/initializer"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var jobFileFlag = &cli.StringFlag{
	Name:     "file",
	Aliases:  []string{"f"},
	Usage:    "job description file",
	Required: true,
}

var yesFlag = &cli.BoolFlag{
	Name:    "yes",
	Aliases: []string{"y"},
	Usage:   "accept every prompt with its default answer",
}

func setup(cctx *cli.Context, interactive bool) (*initializer.Components, error) {
	opts := initializer.Options{
		RepoPath: repoPath(cctx),
		Account:  cctx.String(FlagFrom),
		Prompter: credential.AutoPrompter{},
		Confirm:  autoConfirm,
		Notify:   printStep,
	}
	if interactive {
		p := newStdinPrompter()
		opts.Prompter = p
		opts.Confirm = p.Confirmer()
	}
	return initializer.ProjectInit(opts)
}

var envCmd = &cli.Command{
	Name:  "env",
	Usage: "Inspect the provider's compute environments",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List compute environments",
			Action: func(cctx *cli.Context) error {
				ctx := reqContext(cctx)
				comps, err := setup(cctx, false)
				if err != nil {
					return err
				}
				defer comps.Close()

				envs, err := comps.Orchestrator.Environments(ctx)
				if err != nil {
					return err
				}
				printEnvironments(envs, comps.Config.Market.ChainId)
				return nil
			},
		},
	},
}

func printEnvironments(envs []models.ComputeEnvironment, chainID int64) {
	table := NewVisualTable("ID", "CPU", "RAM", "DISK", "MAX DURATION", "FREE", "FEE TOKEN", "RUNNING")
	for _, env := range envs {
		free := "no"
		if env.Free != nil {
			free = fmt.Sprintf("%ds", env.Free.MaxJobDuration)
		}
		var tokens []string
		for _, fee := range env.FeesForChain(chainID) {
			tokens = append(tokens, fee.FeeToken)
		}
		table.Append(env.ID, limit(env.PaidResource("cpu")), limit(env.PaidResource("ram")), limit(env.PaidResource("disk")),
			fmt.Sprintf("%ds", env.MaxJobDuration), free, strings.Join(tokens, ","), strconv.Itoa(env.RunningJobs))
		if env.Free != nil {
			table.Color(5, tablewriter.Colors{tablewriter.Bold, tablewriter.FgGreenColor})
		}
	}
	table.Generate()
}

func limit(r *models.ComputeResource) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%v-%v", r.Min, r.Max)
}

var priceCmd = &cli.Command{
	Name:  "price",
	Usage: "Quote the price and fees of a job without paying",
	Flags: []cli.Flag{jobFileFlag},
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		comps, input, err := loadJob(ctx, cctx, false)
		if err != nil {
			return err
		}
		defer comps.Close()

		pf, err := comps.Orchestrator.InitPriceAndFees(ctx, input, false)
		if err != nil {
			return err
		}
		printPrice(pf)
		return nil
	},
}

func loadJob(ctx context.Context, cctx *cli.Context, interactive bool) (*initializer.Components, computing.JobInput, error) {
	req, resolver, err := yaml.HandlerYaml(cctx.String("file"))
	if err != nil {
		return nil, computing.JobInput{}, err
	}
	comps, err := setup(cctx, interactive)
	if err != nil {
		return nil, computing.JobInput{}, err
	}
	if err := resolver.LoadDir(comps.Config.Assets.Dir); err != nil {
		comps.Close()
		return nil, computing.JobInput{}, err
	}
	input, err := computing.ResolveJob(ctx, resolver, comps.Chain.Address(), *req)
	if err != nil {
		comps.Close()
		return nil, computing.JobInput{}, err
	}
	return comps, input, nil
}

func printPrice(pf *computing.PriceAndFees) {
	fmt.Printf("Environment: %s, mode: %s, duration: %ds\n", pf.Environment.ID, pf.Resources.Mode, pf.Resources.JobDuration)
	table := NewVisualTable("YOU WILL PAY", "SYMBOL")
	for _, line := range pf.Totals {
		table.Append(strconv.FormatFloat(line.Value, 'f', -1, 64), line.Symbol)
	}
	table.Generate()
}

var jobCmd = &cli.Command{
	Name:  "job",
	Usage: "Start and inspect compute jobs",
	Subcommands: []*cli.Command{
		jobStart,
		jobStatus,
	},
}

var jobStart = &cli.Command{
	Name:  "start",
	Usage: "Pay for and start a compute job",
	Flags: []cli.Flag{jobFileFlag, yesFlag},
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		interactive := !cctx.Bool("yes")
		comps, input, err := loadJob(ctx, cctx, interactive)
		if err != nil {
			return err
		}
		defer comps.Close()
		orch := comps.Orchestrator

		pf, err := orch.InitPriceAndFees(ctx, input, false)
		if err != nil {
			return err
		}
		printPrice(pf)
		prompter := newStdinPrompter()
		if interactive && !prompter.yes("Start the job?", false) {
			return nil
		}

		updates, cancel := orch.Subscribe()
		done := make(chan struct{})
		go func() {
			defer close(done)
			last := ""
			for st := range updates {
				if st.StepText != last && st.StepText != "" && st.State != constants.JobStateSuccess && st.State != constants.JobStateFailed {
					printStep(st.StepText)
				}
				last = st.StepText
			}
		}()

		err = orch.StartJob(ctx, input)
		for interactive && orch.Status().State == constants.JobStateFailed && orch.Status().Retry {
			if err != nil {
				color.Red(errorText(err))
			} else {
				color.Yellow(constants.StepCancelled)
			}
			if !prompter.yes("Retry?", false) {
				break
			}
			err = orch.Retry(ctx)
		}
		cancel()
		<-done

		st := orch.Status()
		if err != nil {
			color.Red(errorText(err))
			return err
		}
		if st.State == constants.JobStateSuccess {
			color.Green("%s: %s", constants.StepJobStarted, st.JobID)
			printJobs(st.Jobs)
		}
		return nil
	},
}

func errorText(err error) string {
	var se *computing.SubmitError
	if errors.As(err, &se) {
		return se.Message()
	}
	return err.Error()
}

var jobStatus = &cli.Command{
	Name:      "status",
	Usage:     "List compute jobs of the account",
	ArgsUsage: "[job id]",
	Action: func(cctx *cli.Context) error {
		ctx := reqContext(cctx)
		comps, err := setup(cctx, false)
		if err != nil {
			return err
		}
		defer comps.Close()

		jobs, err := comps.Provider.ComputeStatus(ctx, comps.Chain.Address(), cctx.Args().First())
		if err != nil {
			return err
		}
		printJobs(jobs)
		return nil
	},
}

func printJobs(jobs []models.ComputeJob) {
	table := NewVisualTable("JOB ID", "STATUS", "ENVIRONMENT", "CREATED")
	for _, job := range jobs {
		table.Append(job.JobID, job.StatusText, job.Environment, job.DateCreated)
	}
	table.Generate()
}
