package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePolicy struct {
	redirect     string
	definition   *models.PresentationDefinition
	sessionValid bool
	initiated    int
}

func (f *fakePolicy) Initiate(ctx context.Context, req Request) (string, error) {
	f.initiated++
	return f.redirect, nil
}

func (f *fakePolicy) PresentationDefinition(ctx context.Context, sessionID string) (*models.PresentationDefinition, error) {
	return f.definition, nil
}

func (f *fakePolicy) CheckSessionID(ctx context.Context, sessionID string) (bool, error) {
	return f.sessionValid, nil
}

type fakeWallet struct {
	matched     []models.Credential
	dids        []models.Did
	useResult   UseResult
	useErr      error
	matchCalls  int
	didsCalls   int
	usedCreds   []string
	usedDid     string
	usedRequest string
}

func (f *fakeWallet) MatchCredentials(ctx context.Context, pd *models.PresentationDefinition) ([]models.Credential, error) {
	f.matchCalls++
	return f.matched, nil
}

func (f *fakeWallet) Dids(ctx context.Context) ([]models.Did, error) {
	f.didsCalls++
	return f.dids, nil
}

func (f *fakeWallet) ResolvePresentationRequest(ctx context.Context, request string) (string, error) {
	return "resolved:" + request, nil
}

func (f *fakeWallet) UsePresentationRequest(ctx context.Context, did, request string, credentialIDs []string) (UseResult, error) {
	f.usedDid = did
	f.usedRequest = request
	f.usedCreds = credentialIDs
	return f.useResult, f.useErr
}

type countingPrompter struct {
	selections int
	abortDid   bool
}

func (p *countingPrompter) SelectCredentials(missing []string, matched []models.Credential) (map[string][]string, bool) {
	p.selections++
	return GroupByDescriptor(missing, matched), true
}

func (p *countingPrompter) ConfirmDid(dids []models.Did, defaultDid string) (string, bool) {
	if p.abortDid {
		return "", false
	}
	return defaultDid, true
}

func newTestGate(policy *fakePolicy, wallet *fakeWallet, prompter Prompter, opts ...GateOption) *Gate {
	return NewGate(true, policy, wallet, NewCache(NewMemoryStore(), 15*time.Minute), prompter, opts...)
}

func twoDescriptors() *models.PresentationDefinition {
	return &models.PresentationDefinition{ID: "pd", InputDescriptors: []models.InputDescriptor{{ID: "d1"}, {ID: "d2"}}}
}

func TestGateAllCachedDoesNotPrompt(t *testing.T) {
	policy := &fakePolicy{redirect: "openid4vp://authorize?state=s-1", definition: twoDescriptors()}
	wallet := &fakeWallet{
		dids:      []models.Did{{Did: "did:key:first"}, {Did: "did:key:second"}},
		useResult: UseResult{RedirectURI: "https://verifier/success?state=s-1"},
	}
	prompter := &countingPrompter{}
	gate := newTestGate(policy, wallet, prompter)

	require.NoError(t, gate.Cache().Credentials.Put("d1", []string{"c1"}))
	require.NoError(t, gate.Cache().Credentials.Put("d2", []string{"c2"}))

	sessionID, err := gate.Verify(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "s-1", sessionID)
	assert.Equal(t, 0, prompter.selections)
	assert.Equal(t, 0, wallet.matchCalls)
	assert.Equal(t, []string{"c1", "c2"}, wallet.usedCreds)
	assert.Equal(t, "did:key:first", wallet.usedDid)
	assert.Equal(t, "resolved:openid4vp://authorize?state=s-1", wallet.usedRequest)

	session, err := gate.Cache().Sessions.Fresh(testRequest.AssetID, testRequest.ServiceID)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "s-1", session.SessionID)

	// the cached session short-circuits the next run
	_, err = gate.Verify(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, 1, policy.initiated)
}

func TestGateMissingCredentialsPromptsAndCaches(t *testing.T) {
	policy := &fakePolicy{redirect: "openid4vp://authorize?state=s-2", definition: twoDescriptors()}
	wallet := &fakeWallet{
		matched:   []models.Credential{{ID: "c2", DescriptorID: "d2"}},
		dids:      []models.Did{{Did: "did:key:1"}},
		useResult: UseResult{RedirectURI: "https://verifier/success"},
	}
	prompter := &countingPrompter{}
	gate := newTestGate(policy, wallet, prompter)
	require.NoError(t, gate.Cache().Credentials.Put("d1", []string{"c1"}))

	sessionID, err := gate.Verify(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Equal(t, "s-2", sessionID)
	assert.Equal(t, 1, prompter.selections)
	assert.Equal(t, 1, wallet.matchCalls)

	cached, err := gate.Cache().Credentials.Get("d2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, cached)
}

type failingPutStore struct {
	*MemoryStore
}

func (failingPutStore) Put(key string, value []byte) error {
	return errors.New("disk full")
}

func TestGateCacheWriteFailureStopsExchange(t *testing.T) {
	policy := &fakePolicy{redirect: "openid4vp://authorize?state=s-6", definition: twoDescriptors()}
	wallet := &fakeWallet{
		matched: []models.Credential{{ID: "c1", DescriptorID: "d1"}, {ID: "c2", DescriptorID: "d2"}},
		dids:    []models.Did{{Did: "did:key:1"}},
	}
	var reported []error
	store := failingPutStore{MemoryStore: NewMemoryStore()}
	gate := NewGate(true, policy, wallet, NewCache(store, 15*time.Minute), AutoPrompter{},
		WithErrorCallback(func(err error) {
			reported = append(reported, err)
		}))

	_, err := gate.Verify(context.Background(), testRequest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredential)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, wallet.didsCalls)
	require.Len(t, reported, 1)
	assert.Contains(t, reported[0].Error(), "disk full")
}

func TestGateRejectedPresentationResetsCache(t *testing.T) {
	policy := &fakePolicy{redirect: "openid4vp://authorize?state=s-3", definition: twoDescriptors()}
	wallet := &fakeWallet{
		dids:      []models.Did{{Did: "did:key:1"}},
		useResult: UseResult{ErrorMessage: "policy not satisfied"},
	}
	var reported []error
	gate := newTestGate(policy, wallet, &countingPrompter{}, WithErrorCallback(func(err error) {
		reported = append(reported, err)
	}))
	require.NoError(t, gate.Cache().Credentials.Put("d1", []string{"c1"}))
	require.NoError(t, gate.Cache().Credentials.Put("d2", []string{"c2"}))

	_, err := gate.Verify(context.Background(), testRequest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredential)
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], ErrPresentationFailed)

	cached, err := gate.Cache().Credentials.Get("d1")
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestGateAbortCachesNothing(t *testing.T) {
	policy := &fakePolicy{redirect: "openid4vp://authorize?state=s-4", definition: twoDescriptors()}
	wallet := &fakeWallet{
		matched: []models.Credential{{ID: "c1", DescriptorID: "d1"}, {ID: "c2", DescriptorID: "d2"}},
		dids:    []models.Did{{Did: "did:key:1"}},
	}
	gate := newTestGate(policy, wallet, &countingPrompter{abortDid: true})

	_, err := gate.Verify(context.Background(), testRequest)
	assert.ErrorIs(t, err, ErrAborted)

	session, err := gate.Cache().Sessions.Get(testRequest.AssetID, testRequest.ServiceID)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestGateCheckSession(t *testing.T) {
	policy := &fakePolicy{sessionValid: false}
	gate := newTestGate(policy, &fakeWallet{}, nil)

	_, err := gate.CheckSession(context.Background(), "a", "s")
	assert.ErrorIs(t, err, ErrSessionRejected)

	require.NoError(t, gate.Cache().Sessions.Put(models.VerifierSession{AssetID: "a", ServiceID: "s", SessionID: "sid"}))
	_, err = gate.CheckSession(context.Background(), "a", "s")
	assert.ErrorIs(t, err, ErrSessionRejected)

	policy.sessionValid = true
	sid, err := gate.CheckSession(context.Background(), "a", "s")
	require.NoError(t, err)
	assert.Equal(t, "sid", sid)
}

func TestGateDisabled(t *testing.T) {
	gate := NewGate(false, nil, nil, nil, nil)
	sid, err := gate.Verify(context.Background(), testRequest)
	require.NoError(t, err)
	assert.Empty(t, sid)
}

func TestGateCancelledContext(t *testing.T) {
	policy := &fakePolicy{redirect: "openid4vp://authorize?state=s-5", definition: twoDescriptors()}
	gate := newTestGate(policy, &fakeWallet{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gate.Verify(ctx, testRequest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCredential))
	assert.Equal(t, 0, policy.initiated)
}
