package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

var (
	ErrCredential      = errors.New("credential verification failed")
	ErrSessionRejected = errors.New("verifier session is no longer valid")
	ErrAborted         = errors.New("credential selection aborted")
)

type PolicyAPI interface {
	Initiate(ctx context.Context, req Request) (string, error)
	PresentationDefinition(ctx context.Context, sessionID string) (*models.PresentationDefinition, error)
	CheckSessionID(ctx context.Context, sessionID string) (bool, error)
}

type WalletAPI interface {
	MatchCredentials(ctx context.Context, pd *models.PresentationDefinition) ([]models.Credential, error)
	Dids(ctx context.Context) ([]models.Did, error)
	ResolvePresentationRequest(ctx context.Context, request string) (string, error)
	UsePresentationRequest(ctx context.Context, did, request string, credentialIDs []string) (UseResult, error)
}

// Prompter asks the user for the decisions of an exchange. Returning false aborts.
type Prompter interface {
	SelectCredentials(missing []string, matched []models.Credential) (map[string][]string, bool)
	ConfirmDid(dids []models.Did, defaultDid string) (string, bool)
}

// AutoPrompter accepts every default: all matched credentials and the default DID.
type AutoPrompter struct{}

func (AutoPrompter) SelectCredentials(missing []string, matched []models.Credential) (map[string][]string, bool) {
	return GroupByDescriptor(missing, matched), true
}

func (AutoPrompter) ConfirmDid(dids []models.Did, defaultDid string) (string, bool) {
	return defaultDid, true
}

// GroupByDescriptor keeps the matched credentials of the wanted descriptors.
func GroupByDescriptor(descriptors []string, matched []models.Credential) map[string][]string {
	selected := make(map[string][]string)
	for _, c := range matched {
		if contains(descriptors, c.DescriptorID) {
			selected[c.DescriptorID] = append(selected[c.DescriptorID], c.ID)
		}
	}
	return selected
}

// Gate runs the credential exchange for an asset service and owns the session cache.
type Gate struct {
	enabled  bool
	policy   PolicyAPI
	wallet   WalletAPI
	cache    *Cache
	prompter Prompter
	onError  func(error)
	onNotify func(string)
}

type GateOption func(*Gate)

func WithErrorCallback(fn func(error)) GateOption {
	return func(g *Gate) {
		g.onError = fn
	}
}

func WithNotifier(fn func(string)) GateOption {
	return func(g *Gate) {
		g.onNotify = fn
	}
}

func NewGate(enabled bool, policy PolicyAPI, wallet WalletAPI, cache *Cache, prompter Prompter, options ...GateOption) *Gate {
	if prompter == nil {
		prompter = AutoPrompter{}
	}
	g := &Gate{
		enabled:  enabled,
		policy:   policy,
		wallet:   wallet,
		cache:    cache,
		prompter: prompter,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

func (g *Gate) Enabled() bool {
	return g.enabled
}

func (g *Gate) Cache() *Cache {
	return g.cache
}

// Verify returns a fresh verifier session id for the asset service, running the
// exchange when none is cached. It returns "" when SSI is disabled.
func (g *Gate) Verify(ctx context.Context, req Request) (sessionID string, err error) {
	if !g.enabled {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCredential, r)
			g.reportError(err)
		}
	}()

	cached, err := g.cache.Sessions.Fresh(req.AssetID, req.ServiceID)
	if err != nil {
		logs.GetLogger().Warnf("read session cache failed, error: %v", err)
	}
	if cached != nil {
		logs.GetLogger().Debugf("session cache hit, asset: %s, service: %s", req.AssetID, req.ServiceID)
		return cached.SessionID, nil
	}

	final := g.Run(ctx, req)
	switch {
	case final.Aborted:
		return "", ErrAborted
	case final.Err != nil:
		return "", fmt.Errorf("%w: %v", ErrCredential, final.Err)
	}
	return final.SessionID, nil
}

// CheckSession confirms with the verifier that the cached session is still valid.
func (g *Gate) CheckSession(ctx context.Context, assetID, serviceID string) (string, error) {
	if !g.enabled {
		return "", nil
	}
	session, err := g.cache.Sessions.Fresh(assetID, serviceID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", fmt.Errorf("%w: no session for %s/%s", ErrSessionRejected, assetID, serviceID)
	}
	ok, err := g.policy.CheckSessionID(ctx, session.SessionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSessionRejected, session.SessionID)
	}
	return session.SessionID, nil
}

func (g *Gate) Reset() error {
	return g.cache.Reset()
}

// Run drives the machine from Stop until it returns to Stop.
func (g *Gate) Run(ctx context.Context, req Request) Stop {
	var state State = Stop{}
	queue := []Event{Begin{Request: req}}
	for len(queue) > 0 {
		ev := queue[0]
		queue = queue[1:]

		next, effects := Transition(state, ev)
		logs.GetLogger().Debugf("credential exchange %s -> %s", state.Name(), next.Name())
		state = next
		for _, fx := range effects {
			follow := g.execute(ctx, fx)
			if follow == nil {
				continue
			}
			// the first failure ends the run; later effects and queued events are dropped
			if failed, ok := follow.(Failed); ok {
				queue = []Event{failed}
				break
			}
			queue = append(queue, follow)
		}
	}
	final, ok := state.(Stop)
	if !ok {
		err := fmt.Errorf("credential exchange stalled in state %s", state.Name())
		g.reportError(err)
		return Stop{Err: err}
	}
	return final
}

func (g *Gate) execute(ctx context.Context, fx Effect) Event {
	if err := ctx.Err(); err != nil {
		if _, terminal := fx.(ReportError); !terminal {
			return Failed{Err: err}
		}
	}

	switch e := fx.(type) {
	case Initiate:
		redirect, err := g.policy.Initiate(ctx, e.Request)
		if err != nil {
			return Failed{Err: err}
		}
		return Initiated{Redirect: redirect}

	case FetchDefinition:
		return g.loadDefinition(ctx, e.SessionID)

	case PromptCredentials:
		selected, ok := g.prompter.SelectCredentials(e.Missing, e.Matched)
		if !ok {
			return Abort{}
		}
		return CredentialsSelected{Selected: selected}

	case CacheCredentials:
		for id, creds := range e.Credentials {
			if err := g.cache.Credentials.Put(id, creds); err != nil {
				return Failed{Err: err}
			}
		}
		return nil

	case FetchDids:
		dids, err := g.wallet.Dids(ctx)
		if err != nil {
			return Failed{Err: err}
		}
		return DidsLoaded{Dids: dids}

	case PromptDid:
		did, ok := g.prompter.ConfirmDid(e.Dids, e.Default)
		if !ok {
			return Abort{}
		}
		return DidConfirmed{Did: did}

	case UsePresentation:
		resolved, err := g.wallet.ResolvePresentationRequest(ctx, e.PresentationRequest)
		if err != nil {
			return PresentationUsed{ErrorMessage: err.Error()}
		}
		result, err := g.wallet.UsePresentationRequest(ctx, e.Did, resolved, e.CredentialIDs)
		if err != nil {
			return PresentationUsed{ErrorMessage: err.Error()}
		}
		return PresentationUsed{Redirect: result.RedirectURI, ErrorMessage: result.ErrorMessage}

	case CacheSession:
		if err := g.cache.Sessions.Put(e.Session); err != nil {
			g.reportError(err)
		}
		return nil

	case ResetCache:
		if err := g.cache.Reset(); err != nil {
			logs.GetLogger().Errorf("reset credential cache failed, error: %v", err)
		}
		return nil

	case ClearExchange:
		return Aborted{}

	case Notify:
		logs.GetLogger().Info(e.Message)
		if g.onNotify != nil {
			g.onNotify(e.Message)
		}
		return nil

	case ReportError:
		g.reportError(e.Err)
		return nil
	}
	return nil
}

func (g *Gate) loadDefinition(ctx context.Context, sessionID string) Event {
	pd, err := g.policy.PresentationDefinition(ctx, sessionID)
	if err != nil {
		return Failed{Err: err}
	}
	required := RequiredCredentials(pd)
	cached, missing, err := g.cache.Credentials.Lookup(required)
	if err != nil {
		return Failed{Err: err}
	}
	loaded := DefinitionLoaded{Definition: pd, Cached: cached, Missing: missing}
	if len(missing) > 0 {
		matched, err := g.wallet.MatchCredentials(ctx, pd)
		if err != nil {
			return Failed{Err: err}
		}
		loaded.Matched = matched
	}
	return loaded
}

func (g *Gate) reportError(err error) {
	logs.GetLogger().Errorf("credential exchange failed, error: %v", err)
	if g.onError != nil {
		g.onError(err)
	}
}
