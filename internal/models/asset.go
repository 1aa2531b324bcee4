package models

import "errors"

// ErrAssetNotFound is returned by asset resolvers for an unknown DID.
var ErrAssetNotFound = errors.New("asset not found")

type TokenInfo struct {
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals,omitempty"`
}

type Container struct {
	Entrypoint string `json:"entrypoint"`
	Image      string `json:"image"`
	Tag        string `json:"tag"`
	Checksum   string `json:"checksum"`
}

type AlgorithmMetadata struct {
	Language  string    `json:"language,omitempty"`
	Version   string    `json:"version,omitempty"`
	Container Container `json:"container"`
}

type Metadata struct {
	Type      string             `json:"type"`
	Name      string             `json:"name"`
	Author    string             `json:"author,omitempty"`
	Algorithm *AlgorithmMetadata `json:"algorithm,omitempty"`
}

type TrustedAlgorithm struct {
	Did                      string `json:"did"`
	FilesChecksum            string `json:"filesChecksum,omitempty"`
	ContainerSectionChecksum string `json:"containerSectionChecksum,omitempty"`
}

type ServiceComputeOptions struct {
	AllowRawAlgorithm                   bool               `json:"allowRawAlgorithm"`
	AllowNetworkAccess                  bool               `json:"allowNetworkAccess"`
	PublisherTrustedAlgorithmPublishers []string           `json:"publisherTrustedAlgorithmPublishers"`
	PublisherTrustedAlgorithms          []TrustedAlgorithm `json:"publisherTrustedAlgorithms"`
}

type Service struct {
	ID              string                 `json:"id"`
	Type            string                 `json:"type"`
	Name            string                 `json:"name,omitempty"`
	Datatoken       string                 `json:"datatokenAddress"`
	ServiceEndpoint string                 `json:"serviceEndpoint"`
	Timeout         int64                  `json:"timeout"`
	Compute         *ServiceComputeOptions `json:"compute,omitempty"`
}

type CredentialRule struct {
	Type   string   `json:"type"`
	Values []string `json:"values,omitempty"`
}

type Credentials struct {
	Allow []CredentialRule `json:"allow,omitempty"`
	Deny  []CredentialRule `json:"deny,omitempty"`
}

type Asset struct {
	ID          string       `json:"id"`
	ChainID     int64        `json:"chainId"`
	NftAddress  string       `json:"nftAddress"`
	Metadata    Metadata     `json:"metadata"`
	Services    []Service    `json:"services"`
	Credentials *Credentials `json:"credentials,omitempty"`
}

func (a *Asset) ServiceByID(id string) (*Service, int) {
	for i := range a.Services {
		if a.Services[i].ID == id {
			return &a.Services[i], i
		}
	}
	return nil, -1
}

// RequiresSSI reports whether the asset carries an SSI policy credential rule.
func (a *Asset) RequiresSSI() bool {
	if a.Credentials == nil {
		return false
	}
	for _, rule := range a.Credentials.Allow {
		if rule.Type == "SSIpolicy" {
			return true
		}
	}
	return false
}

// AccessDetails is the pricing/ordering view of one service, produced by the catalog.
type AccessDetails struct {
	Type                    string    `json:"type"`
	AddressOrID             string    `json:"addressOrId"`
	Price                   float64   `json:"price"`
	BaseToken               TokenInfo `json:"baseToken"`
	Datatoken               TokenInfo `json:"datatoken"`
	IsOwned                 bool      `json:"isOwned"`
	ValidOrderTx            string    `json:"validOrderTx,omitempty"`
	IsPurchasable           bool      `json:"isPurchasable"`
	PublisherMarketOrderFee float64   `json:"publisherMarketOrderFee"`
}

// AssetSelection is one chosen service of an asset. SessionID is a weak
// reference into the credential session cache.
type AssetSelection struct {
	Asset         *Asset                 `json:"asset"`
	Service       *Service               `json:"service"`
	ServiceIndex  int                    `json:"serviceIndex"`
	AccessDetails *AccessDetails         `json:"accessDetails"`
	SessionID     string                 `json:"sessionId,omitempty"`
	Userdata      map[string]interface{} `json:"userdata,omitempty"`
}

type DatasetSelection = AssetSelection

type AlgorithmSelection = AssetSelection

func (s *AssetSelection) AssetID() string {
	if s == nil || s.Asset == nil {
		return ""
	}
	return s.Asset.ID
}

func (s *AssetSelection) ServiceID() string {
	if s == nil || s.Service == nil {
		return ""
	}
	return s.Service.ID
}

func (s *AssetSelection) Symbol() string {
	if s == nil || s.AccessDetails == nil {
		return ""
	}
	return s.AccessDetails.BaseToken.Symbol
}
