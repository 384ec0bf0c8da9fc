package polymarket

import "encoding/json"

// rawDataTrade es un trade de la Data API pública.
type rawDataTrade struct {
	ID              string      `json:"id"`
	ConditionID     string      `json:"conditionId"`
	Asset           string      `json:"asset"`
	Slug            string      `json:"slug"`
	Title           string      `json:"title"`
	Outcome         string      `json:"outcome"`
	Side            string      `json:"side"`
	Price           json.Number `json:"price"`
	Size            json.Number `json:"size"`
	Timestamp       json.Number `json:"timestamp"`
	ProxyWallet     string      `json:"proxyWallet"`
	TransactionHash string      `json:"transactionHash"`
}

// gammaMarket es la metadata de un mercado en Gamma.
type gammaMarket struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
	Slug        string `json:"slug"`
	Closed      bool   `json:"closed"`
	// outcomePrices llega como string JSON embebido: "[\"1\", \"0\"]".
	RawOutcomePrices string `json:"outcomePrices"`
}

type gammaMarketsResponse []gammaMarket
