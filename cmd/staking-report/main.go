package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/TeneoProtocolAI/staking-rewards/internal/app"
	"github.com/TeneoProtocolAI/staking-rewards/internal/config"
	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
	"github.com/TeneoProtocolAI/staking-rewards/internal/core/service"
)

func main() {
	_ = godotenv.Load()

	address := flag.String("address", "", "stash address (SS58)")
	network := flag.String("network", "polkadot", "polkadot|kusama (or DOT|KSM)")
	currency := flag.String("currency", "usd", "fiat currency")
	format := flag.String("format", "json", "json|csv")
	refresh := flag.Bool("refresh", false, "update the stored price dataset for -currency and exit")
	flag.Parse()
	if *format != "json" && *format != "csv" {
		log.Fatalf("Invalid -format %q: expected json or csv", *format)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	// progress goes to stderr so stdout stays machine readable
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Initialize same services as the server
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Initialisation failed: %v", err)
	}
	defer a.Close()

	if *refresh {
		if err := a.Refresher.UpdatePrices(ctx, *currency); err != nil {
			log.Fatalf("Price refresh failed: %v", err)
		}
		logger.Info("price dataset updated", "currency", *currency)
		return
	}

	// 2. Prepare the input
	input := domain.ReportInput{Address: *address, Network: *network, Currency: *currency}

	// 3. Execute logic
	logger.Info("generating report", "address", input.Address, "network", input.Network, "currency", input.Currency)
	res, err := a.Reports.GenerateReportWithProgress(ctx, input, func(p domain.Progress) {
		if p.Stage == "page" {
			logger.Info("fetched page", "page", p.Page, "events", p.Events)
		}
	})
	if err != nil {
		log.Fatalf("Report failed: %v", err)
	}

	// 4. Print Output
	if err := writeReport(os.Stdout, *format, res); err != nil {
		log.Fatalf("Writing output failed: %v", err)
	}
	if res.Excluded > 0 {
		logger.Warn("events without a price were left out", "excluded", res.Excluded)
	}
}

// writeReport renders res to w as indented JSON or as CSV with a header row.
func writeReport(w io.Writer, format string, res *domain.AggregateResult) error {
	assembler := service.NewResultAssembler()
	switch format {
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(assembler.CSVHeader(res)); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
		if err := cw.WriteAll(assembler.CSVRecords(res)); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}
		return nil
	case "json":
		output, err := json.MarshalIndent(assembler.Assemble(res), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(output))
		return err
	default:
		return fmt.Errorf("unknown format %q, expected json or csv", format)
	}
}
