package coinbase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"resty.dev/v3"

	"marketviewer/internal/fetcher"
)

// DefaultBaseURL is the public Advanced Trade REST endpoint.
const DefaultBaseURL = "https://api.coinbase.com/api/v3/brokerage"

// Client fetches public market data. Every method performs exactly one
// request and returns a *fetcher.FetchError on failure.
type Client struct {
	client *resty.Client
}

// NewClient creates a new market data client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client: fetcher.NewHTTPClient(baseURL, timeout),
	}
}

// Close releases idle connections held by the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) get(ctx context.Context, path string, pathParams, query map[string]string, result any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(pathParams).
		SetQueryParams(query).
		SetResult(result).
		Get(path)

	if err != nil {
		return fetcher.Classify(err)
	}

	if !resp.IsSuccess() {
		return fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	return nil
}

// GetServerTime retrieves the exchange clock
func (c *Client) GetServerTime(ctx context.Context) (ServerTime, error) {
	var result ServerTime
	if err := c.get(ctx, "/time", nil, nil, &result); err != nil {
		return ServerTime{}, err
	}

	if result.ISO == "" {
		return ServerTime{}, fetcher.NewDecodeError("iso time not found in response", nil)
	}

	return result, nil
}

// ListProducts retrieves every listed product
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var result ProductsResponse
	if err := c.get(ctx, "/market/products", nil, nil, &result); err != nil {
		return nil, err
	}

	if result.Products == nil {
		return nil, fetcher.NewDecodeError("products not found in response", nil)
	}

	return result.Products, nil
}

// GetProduct retrieves a single product
func (c *Client) GetProduct(ctx context.Context, productID string) (Product, error) {
	var result Product
	err := c.get(ctx, "/market/products/{product_id}",
		map[string]string{"product_id": productID}, nil, &result)
	if err != nil {
		return Product{}, err
	}

	if result.ProductID == "" {
		return Product{}, fetcher.NewDecodeError(
			fmt.Sprintf("product %s not found in response", productID), nil)
	}

	return result, nil
}

// GetProductBook retrieves the order book of a product
func (c *Client) GetProductBook(ctx context.Context, productID string) (ProductBook, error) {
	var result ProductBook
	err := c.get(ctx, "/market/product_book", nil,
		map[string]string{"product_id": productID}, &result)
	if err != nil {
		return ProductBook{}, err
	}

	if result.PriceBook.ProductID == "" {
		return ProductBook{}, fetcher.NewDecodeError(
			fmt.Sprintf("pricebook for %s not found in response", productID), nil)
	}

	return result, nil
}

// GetCandles retrieves OHLCV buckets for the window [start, end]
func (c *Client) GetCandles(ctx context.Context, productID string, start, end time.Time, granularity string) ([]Candle, error) {
	var result CandlesResponse
	err := c.get(ctx, "/market/products/{product_id}/candles",
		map[string]string{"product_id": productID},
		map[string]string{
			"start":       strconv.FormatInt(start.Unix(), 10),
			"end":         strconv.FormatInt(end.Unix(), 10),
			"granularity": granularity,
		}, &result)
	if err != nil {
		return nil, err
	}

	if result.Candles == nil {
		return nil, fetcher.NewDecodeError(
			fmt.Sprintf("candles for %s not found in response", productID), nil)
	}

	return result.Candles, nil
}

// GetMarketTrades retrieves the latest public trades of a product
func (c *Client) GetMarketTrades(ctx context.Context, productID string, limit int) (MarketTradesResponse, error) {
	var result MarketTradesResponse
	err := c.get(ctx, "/market/products/{product_id}/ticker",
		map[string]string{"product_id": productID},
		map[string]string{"limit": strconv.Itoa(limit)}, &result)
	if err != nil {
		return MarketTradesResponse{}, err
	}

	if result.Trades == nil {
		return MarketTradesResponse{}, fetcher.NewDecodeError(
			fmt.Sprintf("trades for %s not found in response", productID), nil)
	}

	return result, nil
}
