package credential

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

// CredentialStore caches the wallet credential ids picked for each input descriptor.
type CredentialStore struct {
	store Store
}

func NewCredentialStore(store Store) *CredentialStore {
	return &CredentialStore{store: store}
}

func (c *CredentialStore) Get(descriptorID string) ([]string, error) {
	data, ok, err := c.store.Get(constants.CACHE_CREDENTIAL_PREFIX + descriptorID)
	if err != nil || !ok {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode cached credentials of %s: %w", descriptorID, err)
	}
	return ids, nil
}

func (c *CredentialStore) Put(descriptorID string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.store.Put(constants.CACHE_CREDENTIAL_PREFIX+descriptorID, data)
}

// Lookup splits descriptorIDs into the ones with cached credentials and the missing ones.
func (c *CredentialStore) Lookup(descriptorIDs []string) (map[string][]string, []string, error) {
	cached := make(map[string][]string)
	var missing []string
	for _, id := range descriptorIDs {
		ids, err := c.Get(id)
		if err != nil {
			return nil, nil, err
		}
		if len(ids) == 0 {
			missing = append(missing, id)
			continue
		}
		logs.GetLogger().Debugf("credential cache hit, descriptor: %s", id)
		cached[id] = ids
	}
	return cached, missing, nil
}

func (c *CredentialStore) Clear() error {
	return c.store.DeletePrefix(constants.CACHE_CREDENTIAL_PREFIX)
}

// SessionStore caches verifier sessions keyed by (assetId, serviceId).
type SessionStore struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionStore(store Store, ttl time.Duration) *SessionStore {
	return &SessionStore{store: store, ttl: ttl, now: time.Now}
}

func sessionKey(assetID, serviceID string) string {
	return constants.CACHE_SESSION_PREFIX + assetID + "/" + serviceID
}

func (s *SessionStore) Get(assetID, serviceID string) (*models.VerifierSession, error) {
	data, ok, err := s.store.Get(sessionKey(assetID, serviceID))
	if err != nil || !ok {
		return nil, err
	}
	var session models.VerifierSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode cached session of %s/%s: %w", assetID, serviceID, err)
	}
	return &session, nil
}

// Fresh returns the cached session only if it has not outlived the TTL.
func (s *SessionStore) Fresh(assetID, serviceID string) (*models.VerifierSession, error) {
	session, err := s.Get(assetID, serviceID)
	if err != nil {
		return nil, err
	}
	if !session.Fresh(s.ttl, s.now()) {
		return nil, nil
	}
	return session, nil
}

func (s *SessionStore) Put(session models.VerifierSession) error {
	if session.VerifiedAt.IsZero() {
		session.VerifiedAt = s.now()
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.store.Put(sessionKey(session.AssetID, session.ServiceID), data)
}

func (s *SessionStore) Clear() error {
	return s.store.DeletePrefix(constants.CACHE_SESSION_PREFIX)
}

// Cache groups both stores; Reset forces a full re-verification.
type Cache struct {
	Credentials *CredentialStore
	Sessions    *SessionStore
}

func NewCache(store Store, ttl time.Duration) *Cache {
	return &Cache{
		Credentials: NewCredentialStore(store),
		Sessions:    NewSessionStore(store, ttl),
	}
}

func (c *Cache) Reset() error {
	if err := c.Credentials.Clear(); err != nil {
		return err
	}
	if err := c.Sessions.Clear(); err != nil {
		return err
	}
	logs.GetLogger().Info("credential cache cleared")
	return nil
}
