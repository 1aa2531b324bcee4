package models

type ProviderFee struct {
	ProviderFeeAddress string `json:"providerFeeAddress"`
	ProviderFeeToken   string `json:"providerFeeToken"`
	ProviderFeeAmount  string `json:"providerFeeAmount"`
	ProviderData       string `json:"providerData"`
	V                  uint8  `json:"v"`
	R                  string `json:"r"`
	S                  string `json:"s"`
	ValidUntil         int64  `json:"validUntil"`
}

// HasAmount reports whether the fee carries a non-zero amount.
func (f *ProviderFee) HasAmount() bool {
	return f != nil && f.ProviderFeeAmount != "" && f.ProviderFeeAmount != "0"
}

type ProviderComputeInitialize struct {
	Datatoken   string       `json:"datatoken,omitempty"`
	ValidOrder  string       `json:"validOrder,omitempty"`
	ProviderFee *ProviderFee `json:"providerFee,omitempty"`
}

type ProviderPayment struct {
	EscrowAddress  string  `json:"escrowAddress"`
	Payee          string  `json:"payee,omitempty"`
	ChainID        int64   `json:"chainId,omitempty"`
	Token          string  `json:"token,omitempty"`
	Amount         float64 `json:"amount"`
	MinLockSeconds int64   `json:"minLockSeconds"`
}

// ProviderInitializationResult is produced once per price/fee initialization and must be
// recomputed whenever resources, datasets or the algorithm change.
type ProviderInitializationResult struct {
	Datasets  []ProviderComputeInitialize `json:"datasets"`
	Algorithm *ProviderComputeInitialize  `json:"algorithm"`
	Payment   *ProviderPayment            `json:"payment,omitempty"`
}

type OrderPriceAndFees struct {
	Price                   float64      `json:"price"`
	PublisherMarketOrderFee float64      `json:"publisherMarketOrderFee"`
	ConsumeMarketOrderFee   float64      `json:"consumeMarketOrderFee"`
	ProviderFee             *ProviderFee `json:"providerFee,omitempty"`
	ProviderFeeAmount       float64      `json:"providerFeeAmount"`
}

type ConsumeMarketFee struct {
	Address string
	Token   string
	Amount  string
}

// StartOrderRequest is the on-chain startOrder call for one datatoken.
type StartOrderRequest struct {
	Datatoken        string
	Consumer         string
	ServiceIndex     int
	ProviderFee      *ProviderFee
	ConsumeMarketFee ConsumeMarketFee
}
