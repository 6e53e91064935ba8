package gnosisscan

// TokenTransferResponse is the Etherscan-style envelope around a result list.
// Status is "1" for success and "0" for errors or empty result sets.
type TokenTransferResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Result  []RawTokenTransfer `json:"result"`
}

// RawTokenTransfer is one ERC-20 transfer event as the explorer reports it.
// All numeric fields arrive as decimal strings.
type RawTokenTransfer struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"` // unix seconds
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
	Value           string `json:"value"` // base units, needs tokenDecimal scaling
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"` // wei
}
