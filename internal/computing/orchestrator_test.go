package computing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orchestratorFixture struct {
	orch     *Orchestrator
	provider *fakeProvider
	chain    *fakeChain
	gate     *fakeGate
}

func newFixture() *orchestratorFixture {
	p := &fakeProvider{
		envs: []models.ComputeEnvironment{testEnvironment()},
		initResult: &models.ProviderInitializationResult{
			Datasets:  []models.ProviderComputeInitialize{{ProviderFee: testFee("0")}},
			Algorithm: &models.ProviderComputeInitialize{ProviderFee: testFee("0")},
			Payment:   &models.ProviderPayment{EscrowAddress: testEscrow, Token: testToken},
		},
		nonce: 1,
		jobs:  []models.ComputeJob{{JobID: "job-1", StatusText: "Running"}},
	}
	chain := newFakeChain()
	chain.symbols[testToken] = "EUROe"
	gate := &fakeGate{}

	orch := NewOrchestrator(OrchestratorConfig{ChainID: 11155111, PaymentToken: testToken}, Deps{
		Provider: p,
		Chain:    chain,
		Gate:     gate,
		Prices:   &PriceCalculator{},
		Payer:    NewEscrowPayer(chain, time.Millisecond, 3),
	}, models.ConsumeMarketFee{})
	return &orchestratorFixture{orch: orch, provider: p, chain: chain, gate: gate}
}

func paidJob() JobInput {
	return JobInput{
		Datasets:  []*models.DatasetSelection{testAsset("did:ds", "0xdt", "fixed", 1)},
		Algorithm: testAsset("did:algo", "0xalgo", "fixed", 2),
		Form:      FormValues{ComputeEnvID: "env-1"},
		Resources: map[string]*models.EnvResourceValues{
			"env-1": {Paid: &models.ResourceValues{CPU: 3, RAM: 1, Disk: 1, JobDuration: 120}},
		},
	}
}

func freeJob() JobInput {
	in := paidJob()
	in.Resources = map[string]*models.EnvResourceValues{
		"env-1": {Free: &models.ResourceValues{CPU: 1, RAM: 1, Disk: 1, JobDuration: 600}},
	}
	return in
}

func TestStartJobPaid(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.orch.StartJob(context.Background(), paidJob()))

	assert.Equal(t, []string{
		"approve 12000000000000000000",
		"allowance",
		"deposit 12000000000000000000",
		"authorize " + testPayee + " 12000000000000000000 120 10",
		"buy exchange-did:algo",
		"startOrder 0xalgo",
		"buy exchange-did:ds",
		"startOrder 0xdt",
		"sign",
	}, f.chain.Calls())

	require.Len(t, f.provider.paidStarts, 1)
	assert.Equal(t, "0xorder-0xalgo", f.provider.paidStarts[0].Algorithm.TransferTxID)
	assert.Equal(t, "0xorder-0xdt", f.provider.paidStarts[0].Datasets[0].TransferTxID)

	st := f.orch.Status()
	assert.Equal(t, "success", st.State)
	assert.Equal(t, "job-1", st.JobID)
	assert.False(t, st.IsOrdering)
	assert.Len(t, st.Jobs, 1)
	assert.Equal(t, 1, f.provider.statusCalls)
	assert.Equal(t, 1, f.gate.resets)
}

func TestStartJobFreeSkipsEscrow(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.orch.StartJob(context.Background(), freeJob()))

	assert.NotContains(t, f.chain.Calls(), "allowance")
	for _, call := range f.chain.Calls() {
		assert.NotContains(t, call, "approve")
		assert.NotContains(t, call, "deposit")
	}
	assert.Len(t, f.provider.freeStarts, 1)
	assert.Empty(t, f.provider.paidStarts)
	assert.Nil(t, f.provider.initReqs[0].Payment)
}

func TestStartJobAlgorithmOrderRejected(t *testing.T) {
	f := newFixture()
	f.chain.orderErr["0xalgo"] = errors.New("MetaMask Tx Signature: User denied transaction signature.")

	err := f.orch.StartJob(context.Background(), paidJob())
	require.NoError(t, err)

	st := f.orch.Status()
	assert.True(t, st.Retry)
	assert.Equal(t, "failed", st.State)
	assert.Equal(t, UserCancelled.String(), st.ErrorKind)
	assert.Empty(t, st.SubmitError)
	assert.False(t, st.IsOrdering)

	calls := f.chain.Calls()
	assert.NotContains(t, calls, "buy exchange-did:ds")
	assert.NotContains(t, calls, "startOrder 0xdt")
	assert.Empty(t, f.provider.paidStarts)

	delete(f.chain.orderErr, "0xalgo")
	require.NoError(t, f.orch.Retry(context.Background()))
	assert.Equal(t, "success", f.orch.Status().State)
}

func TestStartJobConfigurationError(t *testing.T) {
	f := newFixture()
	in := paidJob()
	in.Datasets = nil

	err := f.orch.StartJob(context.Background(), in)
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ConfigurationError, se.Kind)
	assert.ErrorIs(t, err, ErrNoDatasets)
	assert.Zero(t, f.provider.initCalls)
	assert.Empty(t, f.chain.Calls())
	assert.False(t, f.orch.Status().Retry)
	assert.ErrorIs(t, f.orch.Retry(context.Background()), ErrNothingToRetry)
}

func TestStartJobRemoteFailureIsRetryable(t *testing.T) {
	f := newFixture()
	f.provider.initErr = errors.New("provider unavailable")

	err := f.orch.StartJob(context.Background(), paidJob())
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, RemoteCallFailure, se.Kind)

	st := f.orch.Status()
	assert.True(t, st.Retry)
	assert.Contains(t, st.SubmitError, "Please retry.")
}

func TestStartJobCredentialFailureResetsCache(t *testing.T) {
	f := newFixture()
	f.gate.enabled = true
	f.gate.checkErr = errors.New("session expired")
	in := paidJob()
	for _, sel := range append(in.Datasets, in.Algorithm) {
		sel.Asset.Credentials = &models.Credentials{Allow: []models.CredentialRule{{Type: "SSIpolicy"}}}
	}

	err := f.orch.StartJob(context.Background(), in)
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CredentialFailure, se.Kind)
	assert.Equal(t, 1, f.gate.resets)
	assert.Len(t, f.gate.verified, 2)
	assert.Equal(t, "did:algo", f.gate.verified[0].AssetID)
	assert.Equal(t, testAccount, f.gate.verified[0].AccountID)
	assert.NotContains(t, f.chain.Calls(), "startOrder 0xalgo")
	assert.False(t, f.orch.Status().Retry)
}

func TestStartJobBindsVerifierSessions(t *testing.T) {
	f := newFixture()
	f.gate.enabled = true
	callsAtCheck := map[string][]string{}
	f.gate.onCheck = func(assetID string) {
		callsAtCheck[assetID] = f.chain.Calls()
	}
	in := paidJob()
	for _, sel := range append(in.Datasets, in.Algorithm) {
		sel.Asset.Credentials = &models.Credentials{Allow: []models.CredentialRule{{Type: "SSIpolicy"}}}
	}

	require.NoError(t, f.orch.StartJob(context.Background(), in))
	assert.Equal(t, "success", f.orch.Status().State)
	assert.Equal(t, []string{"did:algo", "did:ds"}, f.gate.checked)

	assert.NotContains(t, callsAtCheck["did:algo"], "startOrder 0xalgo")
	assert.Contains(t, callsAtCheck["did:ds"], "startOrder 0xalgo")
	assert.NotContains(t, callsAtCheck["did:ds"], "startOrder 0xdt")

	require.Len(t, f.provider.paidStarts, 1)
	assert.Equal(t, []provider.PolicyServerBinding{
		{DocumentID: "did:algo", ServiceID: "svc-did:algo", SessionID: "session-did:algo"},
		{DocumentID: "did:ds", ServiceID: "svc-did:ds", SessionID: "session-did:ds"},
	}, f.provider.paidStarts[0].PolicyServer)
}

func TestStartJobAbortedExchangeIsCancellation(t *testing.T) {
	f := newFixture()
	f.gate.enabled = true
	f.gate.verifyErr = credential.ErrAborted
	in := paidJob()
	in.Algorithm.Asset.Credentials = &models.Credentials{Allow: []models.CredentialRule{{Type: "SSIpolicy"}}}

	require.NoError(t, f.orch.StartJob(context.Background(), in))
	assert.True(t, f.orch.Status().Retry)
	assert.Zero(t, f.gate.resets)
}

func TestStartJobInProgress(t *testing.T) {
	f := newFixture()
	f.orch.status.IsOrdering = true

	assert.ErrorIs(t, f.orch.StartJob(context.Background(), paidJob()), ErrJobInProgress)
	assert.ErrorIs(t, f.orch.Reset(), ErrJobInProgress)
	assert.Zero(t, f.provider.initCalls)
}

func TestInitPriceAndFeesIsIdempotent(t *testing.T) {
	f := newFixture()
	f.provider.initResult.Datasets[0].ProviderFee = testFee("500000000000000000")

	first, err := f.orch.InitPriceAndFees(context.Background(), paidJob(), true)
	require.NoError(t, err)
	second, err := f.orch.InitPriceAndFees(context.Background(), paidJob(), true)
	require.NoError(t, err)

	assert.Equal(t, first.DatasetResponses, second.DatasetResponses)
	assert.Equal(t, first.AlgorithmPrice, second.AlgorithmPrice)
	assert.Equal(t, first.Totals, second.Totals)
	assert.Equal(t, 2, f.provider.initCalls)
	assert.Empty(t, f.chain.Calls())
	assert.Equal(t, "idle", f.orch.Status().State)

	require.Len(t, first.Totals, 2)
	assert.Equal(t, PriceLine{Value: 3, Symbol: "OCEAN"}, first.Totals[0])
	assert.Equal(t, "EUROe", first.Totals[1].Symbol)
	assert.InDelta(t, 12.5, first.Totals[1].Value, 1e-9)
}

func TestSubscribeReceivesProgress(t *testing.T) {
	f := newFixture()
	updates, cancel := f.orch.Subscribe()
	defer cancel()

	require.NoError(t, f.orch.StartJob(context.Background(), freeJob()))

	var states []string
	for len(updates) > 0 {
		states = append(states, (<-updates).State)
	}
	require.NotEmpty(t, states)
	assert.Equal(t, "initializing", states[0])
	assert.Equal(t, "success", states[len(states)-1])
	assert.Contains(t, states, "ordering")
	assert.NotContains(t, states, "paying")
}

func TestResetClearsStatus(t *testing.T) {
	f := newFixture()
	f.provider.initErr = errors.New("provider unavailable")
	_ = f.orch.StartJob(context.Background(), paidJob())

	require.NoError(t, f.orch.Reset())
	st := f.orch.Status()
	assert.Equal(t, "idle", st.State)
	assert.False(t, st.Retry)
	assert.ErrorIs(t, f.orch.Retry(context.Background()), ErrNothingToRetry)
}
