package computing

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/util"
)

type PaymentInput struct {
	Payment     *models.ProviderPayment
	Environment *models.ComputeEnvironment
	Resources   *models.ResourceRequest
	Token       string
	Owner       string
}

// EscrowPayer locks the resource payment in escrow for the environment's consumer address.
type EscrowPayer struct {
	chain        EscrowChain
	pollInterval time.Duration
	pollAttempts int
}

func NewEscrowPayer(chain EscrowChain, pollInterval time.Duration, pollAttempts int) *EscrowPayer {
	if pollAttempts <= 0 {
		pollAttempts = 1
	}
	return &EscrowPayer{chain: chain, pollInterval: pollInterval, pollAttempts: pollAttempts}
}

// Pay runs approve, allowance poll, deposit and authorize. Nothing is retried.
func (p *EscrowPayer) Pay(ctx context.Context, in PaymentInput, onStep func(string)) error {
	if !in.Resources.IsPaid() {
		return errors.New("escrow payment requires paid resources")
	}
	if in.Payment == nil || in.Payment.EscrowAddress == "" {
		return ErrNoEscrowAddress
	}
	escrow := in.Payment.EscrowAddress
	token := in.Payment.Token
	if token == "" {
		token = in.Token
	}

	decimals, err := p.chain.Decimals(ctx, token)
	if err != nil {
		return fmt.Errorf("read payment token decimals: %w", err)
	}
	amount, err := util.ToBaseUnits(in.Resources.Price, decimals)
	if err != nil {
		return err
	}
	providerAmount := amount
	if in.Payment.Amount > 0 {
		if providerAmount, err = util.ToBaseUnits(in.Payment.Amount, decimals); err != nil {
			return err
		}
	}

	step(onStep, constants.StepApproveEscrow)
	if _, err := p.chain.Approve(ctx, token, escrow, amount); err != nil {
		return fmt.Errorf("approve escrow: %w", err)
	}
	if err := p.waitForAllowance(ctx, token, in.Owner, escrow, amount); err != nil {
		return err
	}

	step(onStep, constants.StepDepositEscrow)
	if _, err := p.chain.Deposit(ctx, escrow, token, amount); err != nil {
		return fmt.Errorf("escrow deposit: %w", err)
	}

	step(onStep, constants.StepAuthorizeEscrow)
	if _, err := p.chain.Authorize(ctx, escrow, token, in.Environment.ConsumerAddress, providerAmount,
		in.Resources.JobDuration, constants.EscrowMaxLockCounts); err != nil {
		return fmt.Errorf("escrow authorize: %w", err)
	}
	logs.GetLogger().Infof("escrow authorized, payee: %s, amount: %s, duration: %ds", in.Environment.ConsumerAddress, providerAmount, in.Resources.JobDuration)
	return nil
}

// waitForAllowance covers RPC nodes that lag behind the confirmed approve.
func (p *EscrowPayer) waitForAllowance(ctx context.Context, token, owner, spender string, amount *big.Int) error {
	for attempt := 1; ; attempt++ {
		allowance, err := p.chain.Allowance(ctx, token, owner, spender)
		if err != nil {
			logs.GetLogger().Warnf("read allowance failed, attempt: %d, error: %v", attempt, err)
		} else if allowance.Cmp(amount) >= 0 {
			return nil
		}
		if attempt >= p.pollAttempts {
			return fmt.Errorf("%w: wanted %s", ErrAllowanceTimeout, amount)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

func step(onStep func(string), text string) {
	logs.GetLogger().Info(text)
	if onStep != nil {
		onStep(text)
	}
}
