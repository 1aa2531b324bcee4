package yaml

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

// AssetFile is the on-disk form of one asset: its document and the access
// details of each service, keyed by service id.
type AssetFile struct {
	Asset         models.Asset                     `json:"asset"`
	AccessDetails map[string]*models.AccessDetails `json:"accessDetails"`
}

// FileResolver serves asset documents loaded from local JSON files.
type FileResolver struct {
	lk     sync.RWMutex
	assets map[string]*AssetFile
}

func NewFileResolver() *FileResolver {
	return &FileResolver{assets: make(map[string]*AssetFile)}
}

func (r *FileResolver) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read asset file %s, %w", path, err)
	}
	var af AssetFile
	if err := json.Unmarshal(data, &af); err != nil {
		return fmt.Errorf("failed to parse asset file %s, %w", path, err)
	}
	if af.Asset.ID == "" {
		return fmt.Errorf("asset file %s has no asset id", path)
	}
	r.Add(&af)
	return nil
}

// LoadDir loads every *.json file of dir. A missing dir is empty.
func (r *FileResolver) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := r.LoadFile(f); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileResolver) Add(af *AssetFile) {
	r.lk.Lock()
	defer r.lk.Unlock()
	r.assets[af.Asset.ID] = af
}

func (r *FileResolver) GetAsset(ctx context.Context, did string) (*models.Asset, error) {
	r.lk.RLock()
	defer r.lk.RUnlock()
	af, ok := r.assets[did]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAssetNotFound, did)
	}
	asset := af.Asset
	return &asset, nil
}

// GetAccessDetails returns a free access view when the file carries none for the service.
func (r *FileResolver) GetAccessDetails(ctx context.Context, asset *models.Asset, serviceID, account string) (*models.AccessDetails, error) {
	r.lk.RLock()
	defer r.lk.RUnlock()
	af, ok := r.assets[asset.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAssetNotFound, asset.ID)
	}
	if details, ok := af.AccessDetails[serviceID]; ok && details != nil {
		out := *details
		return &out, nil
	}
	service, _ := asset.ServiceByID(serviceID)
	if service == nil {
		return nil, fmt.Errorf("service %s not found in asset %s", serviceID, asset.ID)
	}
	return &models.AccessDetails{
		Type:      "free",
		Datatoken: models.TokenInfo{Address: service.Datatoken},
	}, nil
}
