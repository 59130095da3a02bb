package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"marketviewer/internal/coinbase"
)

// DefaultBookDepth is the number of levels shown per side of the book.
const DefaultBookDepth = 10

var productColumns = []string{
	"Product ID", "Price", "24h Change %", "Volume 24h",
	"Volume 24h Change %", "Status", "Base", "Quote",
}

var productWidths = []int{20, 15, 20, 20, 20, 10, 10, 10}

// ProductRow renders one product per tick as a streaming row. The header is
// printed once per State.
func ProductRow() Renderer[coinbase.Product] {
	return RendererFunc[coinbase.Product](func(w io.Writer, p coinbase.Product, st *State) {
		table := newStreamTable(w, productWidths)
		if !st.HeaderPrinted {
			table.SetHeader(productColumns)
			st.HeaderPrinted = true
		}
		table.Append([]string{
			p.ProductID,
			p.Price,
			p.PricePercentageChange24h,
			p.Volume24h,
			p.VolumePercentageChange24h,
			p.Status,
			p.BaseName,
			p.QuoteName,
		})
		table.Render()
	})
}

// ServerTime renders the exchange clock on one line.
func ServerTime() Renderer[coinbase.ServerTime] {
	return RendererFunc[coinbase.ServerTime](func(w io.Writer, t coinbase.ServerTime, _ *State) {
		fmt.Fprintf(w, "Server Time: %s (epoch %s s, %s ms)\n", t.ISO, t.EpochSeconds, t.EpochMillis)
	})
}

// ProductBook renders the top depth levels of both sides plus a spread line.
func ProductBook(depth int) Renderer[coinbase.ProductBook] {
	if depth <= 0 {
		depth = DefaultBookDepth
	}
	return RendererFunc[coinbase.ProductBook](func(w io.Writer, b coinbase.ProductBook, _ *State) {
		book := b.PriceBook
		fmt.Fprintf(w, "Product Book for %s @ %s\n", book.ProductID, book.Time)

		table := newTable(w)
		table.SetHeader([]string{"Bid Size", "Bid Price", "Ask Price", "Ask Size"})
		rows := min(depth, max(len(book.Bids), len(book.Asks)))
		for i := 0; i < rows; i++ {
			var row [4]string
			if i < len(book.Bids) {
				row[0], row[1] = book.Bids[i].Size, book.Bids[i].Price
			}
			if i < len(book.Asks) {
				row[2], row[3] = book.Asks[i].Price, book.Asks[i].Size
			}
			table.Append(row[:])
		}
		table.Render()

		if summary, ok := spreadSummary(book); ok {
			fmt.Fprintln(w, summary)
		}
	})
}

func spreadSummary(book coinbase.PriceBook) (string, bool) {
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return "", false
	}
	bid, err := decimal.NewFromString(book.Bids[0].Price)
	if err != nil {
		return "", false
	}
	ask, err := decimal.NewFromString(book.Asks[0].Price)
	if err != nil {
		return "", false
	}

	spread := ask.Sub(bid)
	mid := ask.Add(bid).Div(decimal.NewFromInt(2))
	bps := decimal.Zero
	if !mid.IsZero() {
		bps = spread.Div(mid).Mul(decimal.NewFromInt(10000))
	}
	return fmt.Sprintf("Best Bid: %s  Best Ask: %s  Spread: %s (%s bps)  Mid: %s",
		bid.String(), ask.String(), spread.String(), bps.StringFixed(2), mid.String()), true
}

// Candles renders OHLCV buckets with the open-to-close change.
func Candles(productID string) Renderer[[]coinbase.Candle] {
	return RendererFunc[[]coinbase.Candle](func(w io.Writer, candles []coinbase.Candle, _ *State) {
		fmt.Fprintf(w, "Candles for %s\n", productID)

		table := newTable(w)
		table.SetHeader([]string{"Start", "Open", "High", "Low", "Close", "Volume", "Change %"})
		for _, c := range candles {
			table.Append([]string{c.Start, c.Open, c.High, c.Low, c.Close, c.Volume, changePercent(c.Open, c.Close)})
		}
		table.Render()
	})
}

func changePercent(open, closePrice string) string {
	o, err := decimal.NewFromString(open)
	if err != nil || o.IsZero() {
		return "-"
	}
	c, err := decimal.NewFromString(closePrice)
	if err != nil {
		return "-"
	}
	return c.Sub(o).Div(o).Mul(decimal.NewFromInt(100)).StringFixed(2)
}

// MarketTrades renders the latest trades of a product.
func MarketTrades(productID string) Renderer[coinbase.MarketTradesResponse] {
	return RendererFunc[coinbase.MarketTradesResponse](func(w io.Writer, r coinbase.MarketTradesResponse, _ *State) {
		fmt.Fprintf(w, "Market Trades for %s (best bid %s, best ask %s)\n", productID, r.BestBid, r.BestAsk)

		table := newTable(w)
		table.SetHeader([]string{"Trade ID", "Time", "Side", "Price", "Size", "Bid", "Ask"})
		for _, t := range r.Trades {
			table.Append([]string{t.TradeID, t.Time, t.Side, t.Price, t.Size, optional(t.Bid), optional(t.Ask)})
		}
		table.Render()
	})
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// ProductsSynthetic renders the short product listing.
func ProductsSynthetic(w io.Writer, products []coinbase.Product) {
	table := newTable(w)
	table.SetHeader([]string{"Product ID", "Price", "24h Change %", "Volume 24h", "Base Name", "Quote Name", "Status"})
	for _, p := range products {
		table.Append([]string{
			p.ProductID,
			p.Price,
			p.PricePercentageChange24h,
			p.Volume24h,
			p.BaseName,
			p.QuoteName,
			p.Status,
		})
	}
	table.Render()
}

// ProductsComplete renders every product field.
func ProductsComplete(w io.Writer, products []coinbase.Product) {
	table := newTable(w)
	table.SetHeader([]string{
		"Product ID", "Price", "24h Change %", "Volume 24h", "Volume 24h Change %",
		"Base Increment", "Quote Increment", "Quote Min Size", "Quote Max Size",
		"Base Min Size", "Base Max Size", "Base Name", "Quote Name", "Watched",
		"Is Disabled", "New", "Status", "Cancel Only", "Limit Only", "Post Only",
		"Trading Disabled", "Auction Mode", "Product Type", "Quote Currency ID",
		"Base Currency ID", "FCM Trading Session Details", "Mid Market Price",
		"Alias", "Alias To", "Base Display Symbol", "Quote Display Symbol",
		"View Only", "Price Increment", "Display Name", "Product Venue",
		"Approximate Quote 24h Volume",
	})
	for _, p := range products {
		session := "-"
		if len(p.FCMTradingSessionDetails) > 0 && string(p.FCMTradingSessionDetails) != "null" {
			session = string(p.FCMTradingSessionDetails)
		}
		table.Append([]string{
			p.ProductID,
			p.Price,
			p.PricePercentageChange24h,
			p.Volume24h,
			p.VolumePercentageChange24h,
			p.BaseIncrement,
			p.QuoteIncrement,
			p.QuoteMinSize,
			p.QuoteMaxSize,
			p.BaseMinSize,
			p.BaseMaxSize,
			p.BaseName,
			p.QuoteName,
			yesNo(p.Watched),
			yesNo(p.IsDisabled),
			yesNo(p.New),
			p.Status,
			yesNo(p.CancelOnly),
			yesNo(p.LimitOnly),
			yesNo(p.PostOnly),
			yesNo(p.TradingDisabled),
			yesNo(p.AuctionMode),
			p.ProductType,
			p.QuoteCurrencyID,
			p.BaseCurrencyID,
			session,
			p.MidMarketPrice,
			p.Alias,
			strings.Join(p.AliasTo, ","),
			p.BaseDisplaySymbol,
			p.QuoteDisplaySymbol,
			yesNo(p.ViewOnly),
			p.PriceIncrement,
			p.DisplayName,
			p.ProductVenue,
			p.ApproximateQuote24hVolume,
		})
	}
	table.Render()
}
