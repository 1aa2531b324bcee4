package computing

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/internal/provider"
)

const (
	testAccount  = "0x00000000000000000000000000000000000000a1"
	testPayee    = "0x00000000000000000000000000000000000000b2"
	testEscrow   = "0x00000000000000000000000000000000000000c3"
	testToken    = "0x00000000000000000000000000000000000000d4"
	testEndpoint = "https://provider.example.com"
)

type fakeChain struct {
	mu sync.Mutex

	calls      []string
	balances   map[string]*big.Int
	allowance  *big.Int
	symbols    map[string]string
	approveErr error
	depositErr error
	orderErr   map[string]error
	signErr    error
	started    []models.StartOrderRequest
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances:  map[string]*big.Int{},
		allowance: big.NewInt(0),
		symbols:   map[string]string{},
		orderErr:  map[string]error{},
	}
}

func (c *fakeChain) record(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *fakeChain) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeChain) Address() string { return testAccount }

func (c *fakeChain) SignRequest(ctx context.Context, msg string) (string, error) {
	c.record("sign")
	if c.signErr != nil {
		return "", c.signErr
	}
	return "0xsig", nil
}

func (c *fakeChain) Symbol(ctx context.Context, token string) (string, error) {
	if s, ok := c.symbols[token]; ok {
		return s, nil
	}
	return "", errors.New("unknown token")
}

func (c *fakeChain) Decimals(ctx context.Context, token string) (uint8, error) {
	return 18, nil
}

func (c *fakeChain) Approve(ctx context.Context, token, spender string, amount *big.Int) (string, error) {
	c.record("approve %s", amount)
	if c.approveErr != nil {
		return "", c.approveErr
	}
	c.mu.Lock()
	c.allowance = new(big.Int).Set(amount)
	c.mu.Unlock()
	return "0xapprove", nil
}

func (c *fakeChain) Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	c.record("allowance")
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.allowance), nil
}

func (c *fakeChain) Deposit(ctx context.Context, escrow, token string, amount *big.Int) (string, error) {
	c.record("deposit %s", amount)
	if c.depositErr != nil {
		return "", c.depositErr
	}
	return "0xdeposit", nil
}

func (c *fakeChain) Authorize(ctx context.Context, escrow, token, payee string, maxLockedAmount *big.Int, maxLockSeconds, maxLockCounts int64) (string, error) {
	c.record("authorize %s %s %d %d", payee, maxLockedAmount, maxLockSeconds, maxLockCounts)
	return "0xauthorize", nil
}

func (c *fakeChain) DatatokenBalance(ctx context.Context, datatoken, owner string) (*big.Int, error) {
	if b, ok := c.balances[datatoken]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (c *fakeChain) Dispense(ctx context.Context, datatoken string, amount *big.Int) (string, error) {
	c.record("dispense %s", datatoken)
	return "0xdispense", nil
}

func (c *fakeChain) BuyDatatoken(ctx context.Context, exchangeID, baseToken string, amount *big.Int, consumeMarket string) (string, error) {
	c.record("buy %s", exchangeID)
	return "0xbuy", nil
}

func (c *fakeChain) StartOrder(ctx context.Context, req models.StartOrderRequest) (string, error) {
	c.record("startOrder %s", req.Datatoken)
	if err := c.orderErr[req.Datatoken]; err != nil {
		return "", err
	}
	c.mu.Lock()
	c.started = append(c.started, req)
	c.mu.Unlock()
	return "0xorder-" + req.Datatoken, nil
}

func (c *fakeChain) ReuseOrder(ctx context.Context, datatoken, orderTx string, fee *models.ProviderFee) (string, error) {
	c.record("reuseOrder %s", datatoken)
	return "0xreuse-" + datatoken, nil
}

type fakeProvider struct {
	mu sync.Mutex

	envs        []models.ComputeEnvironment
	initResult  *models.ProviderInitializationResult
	initErr     error
	initCalls   int
	initReqs    []provider.InitializeComputeRequest
	nonce       int64
	startErr    error
	jobs        []models.ComputeJob
	paidStarts  []provider.ComputeStartRequest
	freeStarts  []provider.ComputeStartRequest
	statusCalls int
}

func (p *fakeProvider) GetComputeEnvironments(ctx context.Context, chainID int64) ([]models.ComputeEnvironment, error) {
	return p.envs, nil
}

func (p *fakeProvider) GetNonce(ctx context.Context, address string) (int64, error) {
	return p.nonce, nil
}

func (p *fakeProvider) InitializeCompute(ctx context.Context, req provider.InitializeComputeRequest) (*models.ProviderInitializationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initCalls++
	p.initReqs = append(p.initReqs, req)
	if p.initErr != nil {
		return nil, p.initErr
	}
	return p.initResult, nil
}

func (p *fakeProvider) ComputeStart(ctx context.Context, req provider.ComputeStartRequest) ([]models.ComputeJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paidStarts = append(p.paidStarts, req)
	return p.jobs, p.startErr
}

func (p *fakeProvider) FreeComputeStart(ctx context.Context, req provider.ComputeStartRequest) ([]models.ComputeJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freeStarts = append(p.freeStarts, req)
	return p.jobs, p.startErr
}

func (p *fakeProvider) ComputeStatus(ctx context.Context, consumer, jobID string) ([]models.ComputeJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusCalls++
	return p.jobs, nil
}

type fakeGate struct {
	enabled   bool
	verifyErr error
	checkErr  error
	resets    int
	verified  []credential.Request
	checked   []string
	onCheck   func(assetID string)
}

func (g *fakeGate) Enabled() bool { return g.enabled }

func (g *fakeGate) Verify(ctx context.Context, req credential.Request) (string, error) {
	g.verified = append(g.verified, req)
	if g.verifyErr != nil {
		return "", g.verifyErr
	}
	return "session-" + req.AssetID, nil
}

func (g *fakeGate) CheckSession(ctx context.Context, assetID, serviceID string) (string, error) {
	g.checked = append(g.checked, assetID)
	if g.onCheck != nil {
		g.onCheck(assetID)
	}
	if g.checkErr != nil {
		return "", g.checkErr
	}
	return "session-" + assetID, nil
}

func (g *fakeGate) Reset() error {
	g.resets++
	return nil
}

func testEnvironment() models.ComputeEnvironment {
	return models.ComputeEnvironment{
		ID:              "env-1",
		ConsumerAddress: testPayee,
		MaxJobDuration:  3600,
		Resources: []models.ComputeResource{
			{ID: "cpu", Min: 1, Max: 8},
			{ID: "ram", Min: 1, Max: 16},
			{ID: "disk", Min: 1, Max: 100},
		},
		Free: &models.FreeComputeEnvironment{
			MaxJobDuration: 600,
			Resources: []models.ComputeResource{
				{ID: "cpu", Max: 1, InUse: 1},
				{ID: "ram", Max: 1, InUse: 1},
				{ID: "disk", Max: 1, InUse: 1},
			},
		},
		Fees: map[string][]models.ComputeEnvFees{
			"11155111": {{FeeToken: testToken, Prices: []models.ComputeResourcePrice{{ID: "cpu", Price: 2}}}},
		},
	}
}

func testAsset(id, datatoken, accessType string, price float64) *models.AssetSelection {
	service := models.Service{
		ID:              "svc-" + id,
		Type:            "compute",
		Datatoken:       datatoken,
		ServiceEndpoint: testEndpoint,
	}
	return &models.AssetSelection{
		Asset: &models.Asset{
			ID:       id,
			ChainID:  11155111,
			Services: []models.Service{service},
		},
		Service: &service,
		AccessDetails: &models.AccessDetails{
			Type:          accessType,
			AddressOrID:   "exchange-" + id,
			Price:         price,
			BaseToken:     models.TokenInfo{Address: testToken, Symbol: "OCEAN"},
			Datatoken:     models.TokenInfo{Address: datatoken},
			IsPurchasable: true,
		},
	}
}

func testFee(amount string) *models.ProviderFee {
	return &models.ProviderFee{
		ProviderFeeAddress: testPayee,
		ProviderFeeToken:   testToken,
		ProviderFeeAmount:  amount,
		ProviderData:       "0x",
		ValidUntil:         1700000000,
	}
}
