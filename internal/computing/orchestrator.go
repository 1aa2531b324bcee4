package computing

import (
	"context"
	"errors"
	"sync"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/google/uuid"
	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

// JobInput is everything the user chose for one job.
type JobInput struct {
	Datasets         []*models.DatasetSelection
	Algorithm        *models.AlgorithmSelection
	Form             FormValues
	Resources        map[string]*models.EnvResourceValues
	CustomParameters map[string]interface{}
}

// PriceAndFees is the result of one price and fee initialization.
type PriceAndFees struct {
	DatasetResponses      []*models.OrderPriceAndFees          `json:"datasetResponses"`
	AlgorithmPrice        *models.OrderPriceAndFees            `json:"algoOrderPriceAndFees"`
	Initialized           *models.ProviderInitializationResult `json:"initializedProvider"`
	Environment           *models.ComputeEnvironment           `json:"selectedComputeEnv"`
	Resources             *models.ResourceRequest              `json:"selectedResources"`
	Totals                []PriceLine                          `json:"totals"`
	AlgorithmHasDatatoken bool                                 `json:"algorithmHasDatatoken"`
}

// Status is the caller facing view of the current submission.
type Status struct {
	AttemptID   string              `json:"attemptId,omitempty"`
	State       string              `json:"state"`
	StepText    string              `json:"stepText"`
	IsOrdering  bool                `json:"isOrdering"`
	Retry       bool                `json:"retry"`
	SubmitError string              `json:"submitError,omitempty"`
	ErrorKind   string              `json:"errorKind,omitempty"`
	JobID       string              `json:"jobId,omitempty"`
	Jobs        []models.ComputeJob `json:"jobs,omitempty"`
}

type OrchestratorConfig struct {
	ChainID      int64
	PaymentToken string
}

type Deps struct {
	Provider ProviderAPI
	Chain    Chain
	Gate     CredentialGate
	Prices   *PriceCalculator
	Payer    *EscrowPayer
}

// Orchestrator sequences a job submission and is the only writer of its state.
type Orchestrator struct {
	cfg         OrchestratorConfig
	provider    ProviderAPI
	chain       Chain
	gate        CredentialGate
	selector    *ResourceSelector
	initializer *ProviderInitializer
	payer       *EscrowPayer
	orders      *OrderExecutor
	starter     *JobStarter

	lk          sync.Mutex
	status      Status
	envs        []models.ComputeEnvironment
	lastInput   *JobInput
	subscribers map[int]chan Status
	nextSub     int
}

func NewOrchestrator(cfg OrchestratorConfig, deps Deps, consumeMarketFee models.ConsumeMarketFee) *Orchestrator {
	prices := deps.Prices
	if prices == nil {
		prices = &PriceCalculator{}
	}
	return &Orchestrator{
		cfg:         cfg,
		provider:    deps.Provider,
		chain:       deps.Chain,
		gate:        deps.Gate,
		selector:    &ResourceSelector{ChainID: cfg.ChainID, PaymentToken: cfg.PaymentToken},
		initializer: NewProviderInitializer(deps.Provider, deps.Chain, prices),
		payer:       deps.Payer,
		orders:      NewOrderExecutor(deps.Chain, consumeMarketFee),
		starter:     NewJobStarter(deps.Provider, deps.Chain),
		status:      Status{State: constants.JobStateIdle},
		subscribers: make(map[int]chan Status),
	}
}

// Environments returns the provider environments, fetched once per session.
func (o *Orchestrator) Environments(ctx context.Context) ([]models.ComputeEnvironment, error) {
	o.lk.Lock()
	envs := o.envs
	o.lk.Unlock()
	if envs != nil {
		return envs, nil
	}
	return o.RefreshEnvironments(ctx)
}

func (o *Orchestrator) RefreshEnvironments(ctx context.Context) ([]models.ComputeEnvironment, error) {
	envs, err := o.provider.GetComputeEnvironments(ctx, o.cfg.ChainID)
	if err != nil {
		return nil, Classify(err, RemoteCallFailure, "environments")
	}
	if envs == nil {
		envs = []models.ComputeEnvironment{}
	}
	o.lk.Lock()
	o.envs = envs
	o.lk.Unlock()
	return envs, nil
}

// InitPriceAndFees quotes prices and fees without moving any funds.
func (o *Orchestrator) InitPriceAndFees(ctx context.Context, input JobInput, withEscrow bool) (*PriceAndFees, error) {
	pf, err := o.initPriceAndFees(ctx, input, withEscrow)
	if err != nil {
		return nil, err
	}
	return pf, nil
}

func (o *Orchestrator) initPriceAndFees(ctx context.Context, input JobInput, withEscrow bool) (*PriceAndFees, *SubmitError) {
	envs, err := o.Environments(ctx)
	if err != nil {
		return nil, Classify(err, RemoteCallFailure, constants.StepInitializing)
	}
	env, res := o.selector.Select(envs, input.Resources, input.Form)
	if err := validateInput(env, res, input); err != nil {
		return nil, newError(ConfigurationError, constants.StepInitializing, err)
	}

	account := o.chain.Address()
	algoHeld, err := o.orders.HasDatatoken(ctx, input.Algorithm, account)
	if err != nil {
		return nil, Classify(err, RemoteCallFailure, constants.StepInitializing)
	}

	out, err := o.initializer.Initialize(ctx, InitializeInput{
		Datasets:              input.Datasets,
		Algorithm:             input.Algorithm,
		Environment:           env,
		Resources:             res,
		Consumer:              account,
		ChainID:               o.cfg.ChainID,
		PaymentToken:          o.cfg.PaymentToken,
		WithEscrow:            withEscrow,
		AlgorithmHasDatatoken: algoHeld,
		AlgorithmParams:       input.CustomParameters,
	})
	if err != nil {
		return nil, Classify(err, RemoteCallFailure, constants.StepInitializing)
	}

	pf := &PriceAndFees{
		DatasetResponses:      out.DatasetPrices,
		AlgorithmPrice:        out.AlgorithmPrice,
		Initialized:           out.Result,
		Environment:           env,
		Resources:             res,
		AlgorithmHasDatatoken: algoHeld,
	}
	pf.Totals = o.totals(ctx, input, pf)
	return pf, nil
}

func validateInput(env *models.ComputeEnvironment, res *models.ResourceRequest, input JobInput) error {
	if env == nil {
		return ErrNoEnvironment
	}
	if res == nil {
		return ErrNoResources
	}
	if len(input.Datasets) == 0 {
		return ErrNoDatasets
	}
	for _, ds := range input.Datasets {
		if ds == nil || ds.Asset == nil || ds.Service == nil {
			return ErrNoDatasets
		}
	}
	if input.Algorithm == nil || input.Algorithm.Asset == nil {
		return ErrNoAlgorithm
	}
	if input.Algorithm.Service == nil {
		return ErrAlgorithmService
	}
	return ValidateResources(env, res)
}

func (o *Orchestrator) totals(ctx context.Context, input JobInput, pf *PriceAndFees) []PriceLine {
	datasets := make([]PriceInput, len(input.Datasets))
	for i, ds := range input.Datasets {
		datasets[i] = PriceInput{Symbol: ds.Symbol(), Price: pf.DatasetResponses[i]}
	}
	algorithm := PriceInput{Symbol: input.Algorithm.Symbol(), Price: pf.AlgorithmPrice}
	return Totals(datasets, algorithm, pf.Resources.Price, o.c2dSymbol(ctx, pf))
}

// c2dSymbol is the symbol of the token the provider is paid in.
func (o *Orchestrator) c2dSymbol(ctx context.Context, pf *PriceAndFees) string {
	token := paymentToken(pf.Resources, o.cfg.PaymentToken)
	if pf.Initialized != nil && pf.Initialized.Payment != nil && pf.Initialized.Payment.Token != "" {
		token = pf.Initialized.Payment.Token
	}
	if token == "" {
		return ""
	}
	symbol, err := o.chain.Symbol(ctx, token)
	if err != nil {
		logs.GetLogger().Warnf("read symbol of %s failed, error: %v", token, err)
		return token
	}
	return symbol
}

// StartJob runs one submission attempt. A wallet rejection returns nil and marks the
// attempt retryable; other failures are returned as *SubmitError.
func (o *Orchestrator) StartJob(ctx context.Context, input JobInput) error {
	o.lk.Lock()
	if o.status.IsOrdering {
		o.lk.Unlock()
		return ErrJobInProgress
	}
	o.status = Status{
		AttemptID:  uuid.NewString(),
		State:      constants.JobStateInitializing,
		StepText:   constants.StepInitializing,
		IsOrdering: true,
	}
	o.lastInput = &input
	snapshot := o.status
	o.lk.Unlock()
	o.publish(snapshot)
	logs.GetLogger().Infof("job submission started, attempt: %s", snapshot.AttemptID)

	job, serr := o.attempt(ctx, input)
	if serr != nil {
		return o.fail(serr)
	}
	o.succeed(ctx, job)
	return nil
}

func (o *Orchestrator) attempt(ctx context.Context, input JobInput) (*models.ComputeJob, *SubmitError) {
	pf, serr := o.initPriceAndFees(ctx, input, true)
	if serr != nil {
		return nil, serr
	}

	o.setStep("", constants.StepCheckingOrderable)
	for _, ds := range input.Datasets {
		if !IsOrderable(ds, input.Algorithm) {
			return nil, newError(ConfigurationError, constants.StepCheckingOrderable, ErrNotOrderable)
		}
	}

	account := o.chain.Address()
	assets := append([]*models.AssetSelection{input.Algorithm}, input.Datasets...)
	if o.gate != nil && o.gate.Enabled() {
		o.setStep(constants.JobStateAwaitingCredentials, constants.StepVerifyingSession)
		for _, sel := range assets {
			if !sel.Asset.RequiresSSI() {
				continue
			}
			sid, err := o.gate.Verify(ctx, credential.Request{AssetID: sel.AssetID(), ServiceID: sel.ServiceID(), AccountID: account})
			if err != nil {
				if errors.Is(err, credential.ErrAborted) {
					return nil, newError(UserCancelled, constants.StepVerifyingSession, err)
				}
				return nil, newError(CredentialFailure, constants.StepVerifyingSession, err)
			}
			sel.SessionID = sid
		}
	}

	if pf.Resources.IsPaid() {
		o.setStep(constants.JobStatePaying, constants.StepApproveEscrow)
		err := o.payer.Pay(ctx, PaymentInput{
			Payment:     pf.Initialized.Payment,
			Environment: pf.Environment,
			Resources:   pf.Resources,
			Token:       paymentToken(pf.Resources, o.cfg.PaymentToken),
			Owner:       account,
		}, func(text string) { o.setStep("", text) })
		if err != nil {
			return nil, Classify(err, EscrowFailure, constants.JobStatePaying)
		}
	}

	o.setStep(constants.JobStateOrdering, constants.StepOrderAlgorithm)
	inputs := make([]OrderInput, 0, len(assets))
	inputs = append(inputs, OrderInput{
		Selection:       input.Algorithm,
		Price:           pf.AlgorithmPrice,
		Initialize:      pf.Initialized.Algorithm,
		Account:         account,
		HasDatatoken:    pf.AlgorithmHasDatatoken,
		ConsumerAddress: pf.Environment.ConsumerAddress,
		Step:            constants.StepOrderAlgorithm,
	})
	for i, ds := range input.Datasets {
		inputs = append(inputs, OrderInput{
			Selection:       ds,
			Price:           pf.DatasetResponses[i],
			Initialize:      &pf.Initialized.Datasets[i],
			Account:         account,
			ConsumerAddress: pf.Environment.ConsumerAddress,
			Step:            constants.StepOrderDataset,
		})
	}
	txs, err := o.orders.OrderAll(ctx, inputs, o.beforeOrder, func(text string) { o.setStep("", text) })
	if err != nil {
		return nil, Classify(err, RemoteCallFailure, constants.JobStateOrdering)
	}

	o.setStep(constants.JobStateStarting, constants.StepStartingJob)
	job, err := o.starter.Start(ctx, StartInput{
		Datasets:         input.Datasets,
		DatasetTxs:       txs[1:],
		Algorithm:        input.Algorithm,
		AlgorithmTx:      txs[0],
		Environment:      pf.Environment,
		Resources:        pf.Resources,
		ChainID:          o.cfg.ChainID,
		PaymentToken:     o.cfg.PaymentToken,
		CustomParameters: input.CustomParameters,
	})
	if err != nil {
		return nil, Classify(err, RemoteCallFailure, constants.JobStateStarting)
	}
	return job, nil
}

// beforeOrder looks up the datatoken balance and confirms the verifier session of the asset.
func (o *Orchestrator) beforeOrder(ctx context.Context, in *OrderInput) error {
	if in.Selection != nil && !in.HasDatatoken && in.Step == constants.StepOrderDataset {
		held, err := o.orders.HasDatatoken(ctx, in.Selection, in.Account)
		if err != nil {
			return err
		}
		in.HasDatatoken = held
	}
	if o.gate == nil || !o.gate.Enabled() || !in.Selection.Asset.RequiresSSI() {
		return nil
	}
	sid, err := o.gate.CheckSession(ctx, in.Selection.AssetID(), in.Selection.ServiceID())
	if err != nil {
		return newError(CredentialFailure, constants.StepVerifyingSession, err)
	}
	in.VerifierSessionID = sid
	in.Selection.SessionID = sid
	return nil
}

func (o *Orchestrator) fail(serr *SubmitError) error {
	if serr.Kind == CredentialFailure && o.gate != nil {
		if err := o.gate.Reset(); err != nil {
			logs.GetLogger().Errorf("reset credential cache failed, error: %v", err)
		}
	}

	o.lk.Lock()
	o.status.IsOrdering = false
	o.status.State = constants.JobStateFailed
	o.status.Retry = serr.Retryable()
	o.status.ErrorKind = serr.Kind.String()
	if serr.Kind == UserCancelled {
		o.status.StepText = constants.StepCancelled
		o.status.SubmitError = ""
	} else {
		o.status.SubmitError = serr.Message()
	}
	snapshot := o.status
	o.lk.Unlock()
	o.publish(snapshot)

	if serr.Kind == UserCancelled {
		logs.GetLogger().Infof("job submission cancelled by the user, attempt: %s", snapshot.AttemptID)
		return nil
	}
	logs.GetLogger().Errorf("job submission failed, attempt: %s, kind: %s, error: %v", snapshot.AttemptID, serr.Kind, serr)
	return serr
}

func (o *Orchestrator) succeed(ctx context.Context, job *models.ComputeJob) {
	jobs, err := o.provider.ComputeStatus(ctx, o.chain.Address(), "")
	if err != nil {
		logs.GetLogger().Warnf("refresh compute jobs failed, error: %v", err)
	}
	if o.gate != nil {
		if err := o.gate.Reset(); err != nil {
			logs.GetLogger().Errorf("reset credential cache failed, error: %v", err)
		}
	}

	o.lk.Lock()
	o.status.IsOrdering = false
	o.status.State = constants.JobStateSuccess
	o.status.StepText = constants.StepJobStarted
	o.status.JobID = job.JobID
	o.status.Jobs = jobs
	o.status.Retry = false
	o.lastInput = nil
	snapshot := o.status
	o.lk.Unlock()
	o.publish(snapshot)
	logs.GetLogger().Infof("job submission succeeded, attempt: %s, job: %s", snapshot.AttemptID, describeJob(job))
}

func (o *Orchestrator) setStep(state, text string) {
	o.lk.Lock()
	if state != "" {
		o.status.State = state
	}
	o.status.StepText = text
	snapshot := o.status
	o.lk.Unlock()
	o.publish(snapshot)
}

// Retry re-runs the last submission when its failure was retryable.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.lk.Lock()
	if o.status.IsOrdering {
		o.lk.Unlock()
		return ErrJobInProgress
	}
	input := o.lastInput
	retry := o.status.Retry
	o.lk.Unlock()
	if input == nil || !retry {
		return ErrNothingToRetry
	}
	return o.StartJob(ctx, *input)
}

// Reset drops the transient submission state.
func (o *Orchestrator) Reset() error {
	o.lk.Lock()
	if o.status.IsOrdering {
		o.lk.Unlock()
		return ErrJobInProgress
	}
	o.status = Status{State: constants.JobStateIdle}
	o.lastInput = nil
	snapshot := o.status
	o.lk.Unlock()
	o.publish(snapshot)
	return nil
}

func (o *Orchestrator) Status() Status {
	o.lk.Lock()
	defer o.lk.Unlock()
	return o.status
}

func (o *Orchestrator) IsOrdering() bool {
	return o.Status().IsOrdering
}

// ResetCredentials clears the credential cache.
func (o *Orchestrator) ResetCredentials() error {
	if o.gate == nil {
		return nil
	}
	return o.gate.Reset()
}

// Subscribe streams status snapshots until cancel is called. Slow readers miss updates.
func (o *Orchestrator) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 16)
	o.lk.Lock()
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = ch
	o.lk.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.lk.Lock()
			delete(o.subscribers, id)
			o.lk.Unlock()
			close(ch)
		})
	}
}

func (o *Orchestrator) publish(s Status) {
	o.lk.Lock()
	defer o.lk.Unlock()
	for _, ch := range o.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}
