package display

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketviewer/internal/coinbase"
)

func TestProductRow_HeaderOncePerState(t *testing.T) {
	r := ProductRow()
	product := coinbase.Product{ProductID: "BTC-USD", Price: "42000.10", Status: "online", BaseName: "Bitcoin", QuoteName: "US Dollar"}

	var buf bytes.Buffer
	var st State
	r.Render(&buf, product, &st)
	r.Render(&buf, product, &st)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Product ID"), "header should be printed once")
	assert.Equal(t, 2, strings.Count(out, "BTC-USD"))
	assert.True(t, st.HeaderPrinted)
}

func TestProductRow_SeparateStates(t *testing.T) {
	r := ProductRow()
	product := coinbase.Product{ProductID: "ETH-USD"}

	var first, second bytes.Buffer
	var a, b State
	r.Render(&first, product, &a)
	r.Render(&second, product, &b)

	assert.Contains(t, first.String(), "Product ID")
	assert.Contains(t, second.String(), "Product ID", "a fresh state prints its own header")
}

func TestServerTime(t *testing.T) {
	var buf bytes.Buffer
	ServerTime().Render(&buf, coinbase.ServerTime{ISO: "2024-01-15T10:00:00Z", EpochSeconds: "1705312800", EpochMillis: "1705312800000"}, &State{})

	assert.Equal(t, "Server Time: 2024-01-15T10:00:00Z (epoch 1705312800 s, 1705312800000 ms)\n", buf.String())
}

func TestProductBook(t *testing.T) {
	book := coinbase.ProductBook{PriceBook: coinbase.PriceBook{
		ProductID: "BTC-USD",
		Time:      "2024-01-15T10:00:00Z",
		Bids: []coinbase.BookEntry{
			{Price: "99", Size: "1"},
			{Price: "98", Size: "2"},
			{Price: "97", Size: "3"},
		},
		Asks: []coinbase.BookEntry{
			{Price: "101", Size: "4"},
		},
	}}

	var buf bytes.Buffer
	ProductBook(2).Render(&buf, book, &State{})
	out := buf.String()

	assert.Contains(t, out, "Product Book for BTC-USD")
	assert.Contains(t, out, "98")
	assert.NotContains(t, out, "97", "rows beyond depth should be cut")
	assert.Contains(t, out, "Spread: 2 (200.00 bps)  Mid: 100")
}

func TestSpreadSummary(t *testing.T) {
	tests := []struct {
		name string
		book coinbase.PriceBook
		ok   bool
	}{
		{"empty", coinbase.PriceBook{}, false},
		{"one side", coinbase.PriceBook{Bids: []coinbase.BookEntry{{Price: "1"}}}, false},
		{"bad price", coinbase.PriceBook{
			Bids: []coinbase.BookEntry{{Price: "x"}},
			Asks: []coinbase.BookEntry{{Price: "1"}},
		}, false},
		{"valid", coinbase.PriceBook{
			Bids: []coinbase.BookEntry{{Price: "10.5"}},
			Asks: []coinbase.BookEntry{{Price: "11.5"}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := spreadSummary(tt.book)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestChangePercent(t *testing.T) {
	assert.Equal(t, "10.00", changePercent("100", "110"))
	assert.Equal(t, "-5.00", changePercent("100", "95"))
	assert.Equal(t, "-", changePercent("0", "95"))
	assert.Equal(t, "-", changePercent("abc", "95"))
}

func TestCandlesAndTrades(t *testing.T) {
	var buf bytes.Buffer
	Candles("BTC-USD").Render(&buf, []coinbase.Candle{
		{Start: "1640995200", Open: "100", High: "120", Low: "90", Close: "110", Volume: "5"},
	}, &State{})
	assert.Contains(t, buf.String(), "Candles for BTC-USD")
	assert.Contains(t, buf.String(), "10.00")

	buf.Reset()
	bid := "41999"
	MarketTrades("BTC-USD").Render(&buf, coinbase.MarketTradesResponse{
		Trades: []coinbase.MarketTrade{
			{TradeID: "7", Side: "BUY", Price: "42000", Size: "0.1", Bid: &bid},
		},
		BestBid: "41999",
		BestAsk: "42001",
	}, &State{})
	assert.Contains(t, buf.String(), "Market Trades for BTC-USD")
	assert.Contains(t, buf.String(), "41999")
}

func TestProductsViews(t *testing.T) {
	products := []coinbase.Product{
		{ProductID: "BTC-USD", Price: "1", Watched: true, AliasTo: []string{"BTC-USDC"}},
	}

	var synthetic, complete bytes.Buffer
	ProductsSynthetic(&synthetic, products)
	ProductsComplete(&complete, products)

	assert.Contains(t, synthetic.String(), "BTC-USD")
	assert.NotContains(t, synthetic.String(), "Alias To")
	assert.Contains(t, complete.String(), "Alias To")
	assert.Contains(t, complete.String(), "BTC-USDC")
	assert.Contains(t, complete.String(), "Yes")
}

func TestSyncWriter_ConcurrentBlocks(t *testing.T) {
	var buf bytes.Buffer
	w := NewSyncWriter(&buf)

	block := strings.Repeat("x", 64) + "\n"
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Write([]byte(block))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, strings.TrimSuffix(block, "\n"), line)
	}
}

func TestClearScreen(t *testing.T) {
	var buf bytes.Buffer
	ClearScreen(&buf)
	assert.Equal(t, "\x1b[2J\x1b[1;1H", buf.String())
}
