package coinbase

import "encoding/json"

// ServerTime represents the exchange's /time response
type ServerTime struct {
	ISO          string `json:"iso"`
	EpochSeconds string `json:"epochSeconds"`
	EpochMillis  string `json:"epochMillis"`
}

// BookEntry is a single price level of the order book
type BookEntry struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// PriceBook is the order book for one product
type PriceBook struct {
	ProductID string      `json:"product_id"`
	Bids      []BookEntry `json:"bids"`
	Asks      []BookEntry `json:"asks"`
	Time      string      `json:"time"`
}

// ProductBook represents the /market/product_book response
type ProductBook struct {
	PriceBook PriceBook `json:"pricebook"`
}

// Product represents a tradable product as returned by /market/products
type Product struct {
	ProductID                 string          `json:"product_id"`
	Price                     string          `json:"price"`
	PricePercentageChange24h  string          `json:"price_percentage_change_24h"`
	Volume24h                 string          `json:"volume_24h"`
	VolumePercentageChange24h string          `json:"volume_percentage_change_24h"`
	BaseIncrement             string          `json:"base_increment"`
	QuoteIncrement            string          `json:"quote_increment"`
	QuoteMinSize              string          `json:"quote_min_size"`
	QuoteMaxSize              string          `json:"quote_max_size"`
	BaseMinSize               string          `json:"base_min_size"`
	BaseMaxSize               string          `json:"base_max_size"`
	BaseName                  string          `json:"base_name"`
	QuoteName                 string          `json:"quote_name"`
	Watched                   bool            `json:"watched"`
	IsDisabled                bool            `json:"is_disabled"`
	New                       bool            `json:"new"`
	Status                    string          `json:"status"`
	CancelOnly                bool            `json:"cancel_only"`
	LimitOnly                 bool            `json:"limit_only"`
	PostOnly                  bool            `json:"post_only"`
	TradingDisabled           bool            `json:"trading_disabled"`
	AuctionMode               bool            `json:"auction_mode"`
	ProductType               string          `json:"product_type"`
	QuoteCurrencyID           string          `json:"quote_currency_id"`
	BaseCurrencyID            string          `json:"base_currency_id"`
	FCMTradingSessionDetails  json.RawMessage `json:"fcm_trading_session_details"`
	MidMarketPrice            string          `json:"mid_market_price"`
	Alias                     string          `json:"alias"`
	AliasTo                   []string        `json:"alias_to"`
	BaseDisplaySymbol         string          `json:"base_display_symbol"`
	QuoteDisplaySymbol        string          `json:"quote_display_symbol"`
	ViewOnly                  bool            `json:"view_only"`
	PriceIncrement            string          `json:"price_increment"`
	DisplayName               string          `json:"display_name"`
	ProductVenue              string          `json:"product_venue"`
	ApproximateQuote24hVolume string          `json:"approximate_quote_24h_volume"`
}

// ProductsResponse represents the /market/products response
type ProductsResponse struct {
	Products    []Product `json:"products"`
	NumProducts int       `json:"num_products"`
}

// Candle is one OHLCV bucket
type Candle struct {
	Start  string `json:"start"`
	Low    string `json:"low"`
	High   string `json:"high"`
	Open   string `json:"open"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

// CandlesResponse represents the /market/products/{id}/candles response
type CandlesResponse struct {
	Candles []Candle `json:"candles"`
}

// MarketTrade is a single public trade
type MarketTrade struct {
	TradeID   string  `json:"trade_id"`
	ProductID string  `json:"product_id"`
	Price     string  `json:"price"`
	Size      string  `json:"size"`
	Time      string  `json:"time"`
	Side      string  `json:"side"`
	Bid       *string `json:"bid"`
	Ask       *string `json:"ask"`
}

// MarketTradesResponse represents the /market/products/{id}/ticker response
type MarketTradesResponse struct {
	Trades  []MarketTrade `json:"trades"`
	BestBid string        `json:"best_bid"`
	BestAsk string        `json:"best_ask"`
}
