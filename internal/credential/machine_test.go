package credential

import (
	"errors"
	"testing"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRequest = Request{AssetID: "did:op:asset", ServiceID: "svc-1", AccountID: "0xabc"}

func TestParseRedirect(t *testing.T) {
	id, ok := ParseRedirect("openid4vp://authorize?state=s-1&presentation_definition_uri=x")
	assert.Equal(t, "s-1", id)
	assert.False(t, ok)

	id, ok = ParseRedirect("https://verifier.example/success?id=s-2")
	assert.Equal(t, "s-2", id)
	assert.True(t, ok)

	id, ok = ParseRedirect("")
	assert.Empty(t, id)
	assert.False(t, ok)
}

func TestTransitionBeginInitiates(t *testing.T) {
	next, effects := Transition(Stop{}, Begin{Request: testRequest})
	require.IsType(t, StartCredentialExchange{}, next)
	require.Len(t, effects, 1)
	assert.Equal(t, Initiate{Request: testRequest}, effects[0])
}

func TestTransitionSuccessRedirectCachesSession(t *testing.T) {
	start, _ := Transition(Stop{}, Begin{Request: testRequest})
	next, effects := Transition(start, Initiated{Redirect: "https://verifier/success?state=s-9"})

	assert.Equal(t, Stop{SessionID: "s-9"}, next)
	require.NotEmpty(t, effects)
	cache, ok := effects[0].(CacheSession)
	require.True(t, ok)
	assert.Equal(t, "s-9", cache.Session.SessionID)
	assert.Equal(t, testRequest.AssetID, cache.Session.AssetID)
}

func TestTransitionMissingSessionIDStops(t *testing.T) {
	start, _ := Transition(Stop{}, Begin{Request: testRequest})
	next, effects := Transition(start, Initiated{Redirect: "openid4vp://authorize"})
	stop, ok := next.(Stop)
	require.True(t, ok)
	assert.ErrorIs(t, stop.Err, ErrNoSessionID)
	assert.Equal(t, []Effect{ReportError{Err: ErrNoSessionID}}, effects)
}

func TestTransitionAllCachedSkipsSelection(t *testing.T) {
	start, _ := Transition(Stop{}, Begin{Request: testRequest})
	exchanging, _ := Transition(start, Initiated{Redirect: "openid4vp://authorize?state=s-1"})

	pd := &models.PresentationDefinition{InputDescriptors: []models.InputDescriptor{{ID: "d1"}, {ID: "d2"}}}
	next, effects := Transition(exchanging, DefinitionLoaded{
		Definition: pd,
		Cached:     map[string][]string{"d1": {"c1"}, "d2": {"c2"}},
	})

	readDids, ok := next.(ReadDids)
	require.True(t, ok)
	assert.Equal(t, []string{"d1", "d2"}, readDids.Required)
	for _, fx := range effects {
		_, prompt := fx.(PromptCredentials)
		assert.False(t, prompt)
	}
	assert.Contains(t, effects, FetchDids{})
}

func TestTransitionEmptyMergedCredentialsFails(t *testing.T) {
	state := SelectCredentials{Missing: []string{"d1"}}
	next, _ := Transition(state, CredentialsSelected{Selected: map[string][]string{}})
	stop, ok := next.(Stop)
	require.True(t, ok)
	assert.ErrorIs(t, stop.Err, ErrNoCredentials)
}

func TestTransitionDidConfirmedOrdersCredentials(t *testing.T) {
	state := ReadDids{
		exchange:    exchange{Request: testRequest, SessionID: "s-1", PresentationRequest: "openid4vp://x", Required: []string{"d2", "d1"}},
		Credentials: map[string][]string{"d1": {"c1"}, "d2": {"c2", "c3"}},
	}
	next, effects := Transition(state, DidConfirmed{Did: "did:key:1"})
	require.IsType(t, ResolveCredentials{}, next)
	require.Len(t, effects, 1)
	use := effects[0].(UsePresentation)
	assert.Equal(t, []string{"c2", "c3", "c1"}, use.CredentialIDs)
	assert.Equal(t, "did:key:1", use.Did)
}

func TestTransitionPresentationErrorResetsCache(t *testing.T) {
	state := ResolveCredentials{exchange: exchange{Request: testRequest, SessionID: "s-1"}}
	next, effects := Transition(state, PresentationUsed{Redirect: "https://verifier/error?state=s-1"})
	stop := next.(Stop)
	assert.ErrorIs(t, stop.Err, ErrPresentationFailed)
	assert.Equal(t, ResetCache{}, effects[0])
}

func TestTransitionAbortReturnsToStop(t *testing.T) {
	state := ReadDids{exchange: exchange{Request: testRequest}}
	next, effects := Transition(state, Abort{})
	require.IsType(t, AbortSelection{}, next)
	assert.Equal(t, ClearExchange{}, effects[0])

	final, effects := Transition(next, Aborted{})
	assert.Equal(t, Stop{Aborted: true}, final)
	assert.Empty(t, effects)
}

func TestTransitionFailureFromAnyActiveState(t *testing.T) {
	boom := errors.New("boom")
	for _, s := range []State{StartCredentialExchange{}, SelectCredentials{}, ReadDids{}, ResolveCredentials{}} {
		next, effects := Transition(s, Failed{Err: boom})
		assert.Equal(t, Stop{Err: boom}, next, s.Name())
		assert.Equal(t, []Effect{ReportError{Err: boom}}, effects, s.Name())
	}
	next, effects := Transition(Stop{}, Failed{Err: boom})
	assert.Equal(t, Stop{}, next)
	assert.Empty(t, effects)
}

func TestTransitionUnexpectedEvent(t *testing.T) {
	next, _ := Transition(Stop{}, DidConfirmed{Did: "x"})
	stop := next.(Stop)
	assert.ErrorIs(t, stop.Err, ErrUnexpectedEvent)
}
