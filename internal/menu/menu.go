// Package menu implements the interactive numbered menu that selects one-shot
// queries and polling runs.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"marketviewer/internal/config"
	"marketviewer/internal/coordinator"
	"marketviewer/internal/display"
	"marketviewer/internal/jobs"
	"marketviewer/internal/poll"
)

const mainMenu = `
Menu:
1. Fetch and print all products
2. Fetch and print server time
3. Fetch and print order book for a specific product
4. Fetch and print candles for a specific product
5. Fetch and print market trades for a specific product
6. Fetch and print data for a specific product
7. Fetch and print all data (trades, specific product, book) for a specific product
8. Exit
`

const productsMenu = `Choose display mode:
1. Synthetic view
2. Complete view
`

const invalidChoice = "Invalid choice, please try again."

// Runner runs polling jobs until interrupted.
type Runner interface {
	Run(ctx context.Context, jobs []poll.Job) (coordinator.Result, error)
}

// Menu reads choices from in and writes everything to out.
type Menu struct {
	in     *bufio.Scanner
	out    io.Writer
	market jobs.MarketData
	runner Runner
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new Menu
func New(in io.Reader, out io.Writer, market jobs.MarketData, runner Runner, cfg *config.Config, logger *slog.Logger) *Menu {
	if logger == nil {
		logger = slog.Default()
	}
	return &Menu{
		in:     bufio.NewScanner(in),
		out:    out,
		market: market,
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
}

// Run shows the menu until the exit choice is made or input ends.
func (m *Menu) Run(ctx context.Context) error {
	for {
		fmt.Fprint(m.out, mainMenu)
		choice, err := m.prompt("Enter your choice: ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			display.ClearScreen(m.out)
			if err := m.showProducts(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		case "2":
			display.ClearScreen(m.out)
			m.showServerTime(ctx)
		case "3", "4", "5", "6", "7":
			display.ClearScreen(m.out)
			if err := m.runPolling(ctx, choice); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		case "8":
			return nil
		default:
			fmt.Fprintln(m.out, invalidChoice)
		}
	}
}

func (m *Menu) prompt(label string) (string, error) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(m.in.Text()), nil
}

func (m *Menu) showProducts(ctx context.Context) error {
	products, err := m.market.ListProducts(ctx)
	if err != nil {
		m.logger.Warn("fetch failed", "job", poll.KindProducts, "error", err)
		fmt.Fprintf(m.out, "Error fetching products: %v\n", err)
		return nil
	}

	for {
		fmt.Fprint(m.out, productsMenu)
		choice, err := m.prompt("Enter your choice: ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			display.ProductsSynthetic(m.out, products)
			return nil
		case "2":
			display.ProductsComplete(m.out, products)
			return nil
		default:
			fmt.Fprintln(m.out, invalidChoice)
		}
	}
}

func (m *Menu) showServerTime(ctx context.Context) {
	t, err := m.market.GetServerTime(ctx)
	if err != nil {
		m.logger.Warn("fetch failed", "job", poll.KindServerTime, "error", err)
		fmt.Fprintf(m.out, "Error fetching server time: %v\n", err)
		return
	}
	display.ServerTime().Render(m.out, t, &display.State{})
}

func (m *Menu) runPolling(ctx context.Context, choice string) error {
	productID, err := m.prompt(fmt.Sprintf("Enter the product ID [%s]: ", m.cfg.DefaultProductID))
	if err != nil {
		return err
	}
	if productID == "" {
		productID = m.cfg.DefaultProductID
	}

	specs := SpecsFor(choice, productID, m.cfg)
	built, err := jobs.BuildAll(m.market, specs, jobs.Settings{
		BookDepth:   m.cfg.BookDepth,
		TradesLimit: m.cfg.MarketTradesLimit,
	})
	if err != nil {
		fmt.Fprintf(m.out, "Cannot start polling: %v\n", err)
		return nil
	}

	fmt.Fprintln(m.out, "Polling, press Ctrl+C to stop...")
	result, err := m.runner.Run(ctx, built)
	display.ClearScreen(m.out)

	if err != nil {
		m.logger.Error("polling run failed", "error", err)
		fmt.Fprintf(m.out, "Polling stopped with error: %v\n", err)
	}
	if failed := result.Failed(); len(failed) > 0 {
		fmt.Fprintf(m.out, "%d of %d loops failed\n", len(failed), len(result))
	}
	return nil
}

// SpecsFor returns the loop specs a polling menu choice starts.
func SpecsFor(choice, productID string, cfg *config.Config) []poll.Spec {
	book := poll.Spec{Kind: poll.KindProductBook, ProductID: productID, Interval: cfg.ProductBookInterval}
	trades := poll.Spec{Kind: poll.KindMarketTrades, ProductID: productID, Interval: cfg.MarketTradesInterval}
	product := poll.Spec{Kind: poll.KindProductDetails, ProductID: productID, Interval: cfg.ProductInterval}
	candles := poll.Spec{
		Kind:      poll.KindCandles,
		ProductID: productID,
		Interval:  cfg.CandlesInterval,
		Candles: poll.CandleWindow{
			Start:       cfg.CandlesStartTime,
			End:         cfg.CandlesEndTime,
			Granularity: cfg.CandlesGranularity,
		},
	}

	switch choice {
	case "3":
		return []poll.Spec{book}
	case "4":
		return []poll.Spec{candles}
	case "5":
		return []poll.Spec{trades}
	case "6":
		return []poll.Spec{product}
	case "7":
		return []poll.Spec{book, trades, product}
	}
	return nil
}
