package credential

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

var (
	ErrNoCredentials      = errors.New("no credentials selected for the presentation")
	ErrNoSessionID        = errors.New("policy server returned no session id")
	ErrNoDids             = errors.New("wallet has no DIDs")
	ErrPresentationFailed = errors.New("presentation rejected by verifier")
	ErrUnexpectedEvent    = errors.New("unexpected event")
)

// Request identifies the asset service a credential exchange is run for.
type Request struct {
	AssetID   string
	ServiceID string
	AccountID string
}

// exchange is the transient data carried between the states of one run.
type exchange struct {
	Request             Request
	SessionID           string
	PresentationRequest string
	Required            []string
}

// State is one of Stop, StartCredentialExchange, SelectCredentials, ReadDids,
// ResolveCredentials or AbortSelection.
type State interface {
	Name() string
	state()
}

// Stop is both idle and terminal. After a run it carries the outcome.
type Stop struct {
	SessionID string
	Err       error
	Aborted   bool
}

type StartCredentialExchange struct {
	exchange
}

// SelectCredentials waits for the user to pick credentials for descriptors missing from the cache.
type SelectCredentials struct {
	exchange
	Cached  map[string][]string
	Missing []string
	Matched []models.Credential
}

type ReadDids struct {
	exchange
	Credentials map[string][]string
	Dids        []models.Did
}

type ResolveCredentials struct {
	exchange
	Credentials map[string][]string
	Did         string
}

type AbortSelection struct {
	Request Request
}

func (Stop) Name() string                    { return "Stop" }
func (StartCredentialExchange) Name() string { return "StartCredentialExchange" }
func (SelectCredentials) Name() string       { return "SelectCredentials" }
func (ReadDids) Name() string                { return "ReadDids" }
func (ResolveCredentials) Name() string      { return "ResolveCredentials" }
func (AbortSelection) Name() string          { return "AbortSelection" }

func (Stop) state()                    {}
func (StartCredentialExchange) state() {}
func (SelectCredentials) state()       {}
func (ReadDids) state()                {}
func (ResolveCredentials) state()      {}
func (AbortSelection) state()          {}

type Event interface{ event() }

type Begin struct{ Request Request }

// Initiated carries the redirect answered by the policy server.
type Initiated struct{ Redirect string }

type DefinitionLoaded struct {
	Definition *models.PresentationDefinition
	Cached     map[string][]string
	Missing    []string
	Matched    []models.Credential
}

type CredentialsSelected struct{ Selected map[string][]string }

type DidsLoaded struct{ Dids []models.Did }

type DidConfirmed struct{ Did string }

type PresentationUsed struct {
	Redirect     string
	ErrorMessage string
}

type Abort struct{}

type Aborted struct{}

type Failed struct{ Err error }

func (Begin) event()               {}
func (Initiated) event()           {}
func (DefinitionLoaded) event()    {}
func (CredentialsSelected) event() {}
func (DidsLoaded) event()          {}
func (DidConfirmed) event()        {}
func (PresentationUsed) event()    {}
func (Abort) event()               {}
func (Aborted) event()             {}
func (Failed) event()              {}

// Effect is work the runner performs after a transition.
type Effect interface{ effect() }

type Initiate struct{ Request Request }
type FetchDefinition struct{ SessionID string }
type PromptCredentials struct {
	Missing []string
	Matched []models.Credential
}
type CacheCredentials struct{ Credentials map[string][]string }
type FetchDids struct{}
type PromptDid struct {
	Dids    []models.Did
	Default string
}
type UsePresentation struct {
	PresentationRequest string
	Did                 string
	CredentialIDs       []string
}
type CacheSession struct{ Session models.VerifierSession }
type ResetCache struct{}
type ClearExchange struct{}
type Notify struct{ Message string }
type ReportError struct{ Err error }

func (Initiate) effect()          {}
func (FetchDefinition) effect()   {}
func (PromptCredentials) effect() {}
func (CacheCredentials) effect()  {}
func (FetchDids) effect()         {}
func (PromptDid) effect()         {}
func (UsePresentation) effect()   {}
func (CacheSession) effect()      {}
func (ResetCache) effect()        {}
func (ClearExchange) effect()     {}
func (Notify) effect()            {}
func (ReportError) effect()       {}

// Transition is the pure step function of the credential exchange.
func Transition(s State, ev Event) (State, []Effect) {
	if f, ok := ev.(Failed); ok {
		if _, idle := s.(Stop); idle {
			return s, nil
		}
		return Stop{Err: f.Err}, []Effect{ReportError{Err: f.Err}}
	}

	switch st := s.(type) {
	case Stop:
		if b, ok := ev.(Begin); ok {
			return StartCredentialExchange{exchange{Request: b.Request}}, []Effect{Initiate{Request: b.Request}}
		}

	case StartCredentialExchange:
		switch e := ev.(type) {
		case Initiated:
			return onInitiated(st.exchange, e.Redirect)
		case DefinitionLoaded:
			return onDefinition(st.exchange, e)
		case Abort:
			return abort(st.Request)
		}

	case SelectCredentials:
		switch e := ev.(type) {
		case CredentialsSelected:
			return enterReadDids(st.exchange, mergeCredentials(st.Cached, e.Selected))
		case Abort:
			return abort(st.Request)
		}

	case ReadDids:
		switch e := ev.(type) {
		case DidsLoaded:
			if len(e.Dids) == 0 {
				return Stop{Err: ErrNoDids}, []Effect{ReportError{Err: ErrNoDids}}
			}
			next := st
			next.Dids = e.Dids
			return next, []Effect{PromptDid{Dids: e.Dids, Default: defaultDid(e.Dids)}}
		case DidConfirmed:
			if e.Did == "" {
				return Stop{Err: ErrNoDids}, []Effect{ReportError{Err: ErrNoDids}}
			}
			return ResolveCredentials{exchange: st.exchange, Credentials: st.Credentials, Did: e.Did},
				[]Effect{UsePresentation{
					PresentationRequest: st.PresentationRequest,
					Did:                 e.Did,
					CredentialIDs:       flatten(st.Required, st.Credentials),
				}}
		case Abort:
			return abort(st.Request)
		}

	case ResolveCredentials:
		if e, ok := ev.(PresentationUsed); ok {
			if e.ErrorMessage != "" || strings.Contains(e.Redirect, "error") {
				err := fmt.Errorf("%w: %s", ErrPresentationFailed, firstNonEmpty(e.ErrorMessage, e.Redirect))
				return Stop{Err: err}, []Effect{ResetCache{}, ReportError{Err: err}}
			}
			session := models.VerifierSession{AssetID: st.Request.AssetID, ServiceID: st.Request.ServiceID, SessionID: st.SessionID}
			return Stop{SessionID: st.SessionID}, []Effect{CacheSession{Session: session}, Notify{Message: "Credentials verified"}}
		}

	case AbortSelection:
		if _, ok := ev.(Aborted); ok {
			return Stop{Aborted: true}, nil
		}
	}

	err := fmt.Errorf("%w %T in state %s", ErrUnexpectedEvent, ev, s.Name())
	return Stop{Err: err}, []Effect{ReportError{Err: err}}
}

func onInitiated(ex exchange, redirect string) (State, []Effect) {
	sessionID, success := ParseRedirect(redirect)
	if sessionID == "" {
		return Stop{Err: ErrNoSessionID}, []Effect{ReportError{Err: ErrNoSessionID}}
	}
	if success {
		session := models.VerifierSession{AssetID: ex.Request.AssetID, ServiceID: ex.Request.ServiceID, SessionID: sessionID}
		return Stop{SessionID: sessionID}, []Effect{CacheSession{Session: session}, Notify{Message: "Credentials already verified"}}
	}
	ex.SessionID = sessionID
	ex.PresentationRequest = redirect
	return StartCredentialExchange{ex}, []Effect{FetchDefinition{SessionID: sessionID}}
}

func onDefinition(ex exchange, e DefinitionLoaded) (State, []Effect) {
	if e.Definition != nil {
		ex.Required = RequiredCredentials(e.Definition)
	}
	if len(e.Missing) == 0 {
		return enterReadDids(ex, mergeCredentials(e.Cached, nil))
	}
	return SelectCredentials{exchange: ex, Cached: e.Cached, Missing: e.Missing, Matched: e.Matched},
		[]Effect{PromptCredentials{Missing: e.Missing, Matched: e.Matched}}
}

func enterReadDids(ex exchange, merged map[string][]string) (State, []Effect) {
	if len(merged) == 0 {
		return Stop{Err: ErrNoCredentials}, []Effect{ReportError{Err: ErrNoCredentials}}
	}
	return ReadDids{exchange: ex, Credentials: merged}, []Effect{CacheCredentials{Credentials: merged}, FetchDids{}}
}

func abort(req Request) (State, []Effect) {
	return AbortSelection{Request: req}, []Effect{ClearExchange{}, Notify{Message: "Credential selection aborted"}}
}

// RequiredCredentials lists the input descriptor ids of a presentation definition.
func RequiredCredentials(pd *models.PresentationDefinition) []string {
	ids := make([]string, 0, len(pd.InputDescriptors))
	for _, d := range pd.InputDescriptors {
		ids = append(ids, d.ID)
	}
	return ids
}

// ParseRedirect extracts the verifier session id and whether the redirect reports success.
func ParseRedirect(redirect string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(redirect))
	if err != nil || redirect == "" {
		return "", false
	}
	query := u.Query()
	sessionID := query.Get("state")
	if sessionID == "" {
		sessionID = query.Get("id")
	}
	success := u.Scheme != "openid4vp" && strings.Contains(u.Path, "success")
	return sessionID, success
}

func mergeCredentials(cached, selected map[string][]string) map[string][]string {
	merged := make(map[string][]string)
	for id, creds := range cached {
		if len(creds) > 0 {
			merged[id] = creds
		}
	}
	for id, creds := range selected {
		if len(creds) > 0 {
			merged[id] = creds
		}
	}
	return merged
}

// flatten orders credential ids by descriptor, then any extra descriptors.
func flatten(order []string, creds map[string][]string) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(list []string) {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	for _, d := range order {
		add(creds[d])
	}
	var extra []string
	for d := range creds {
		if !contains(order, d) {
			extra = append(extra, d)
		}
	}
	sort.Strings(extra)
	for _, d := range extra {
		add(creds[d])
	}
	return ids
}

func defaultDid(dids []models.Did) string {
	return dids[0].Did
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
