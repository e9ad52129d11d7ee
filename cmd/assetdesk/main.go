package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"assetdesk/internal/apiclient"
	"assetdesk/internal/credential"
	invmetrics "assetdesk/internal/inventory/metrics"
	"assetdesk/internal/notify"
	"assetdesk/internal/platform/config"
	"assetdesk/internal/platform/logger"
	"assetdesk/internal/platform/metrics"
	"assetdesk/internal/workspace"
)

// main wires high-level dependencies and drives one inspection pass over the
// tracking API. Store logic lives in the internal packages.
func main() {
	categoryID := flag.Int64("category", 0, "scope the inventory listing to this category id")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	creds := credential.NewJWTVetted(credential.FromEnv())
	api := apiclient.New(cfg.BaseURL, creds,
		apiclient.WithLogger(log),
		apiclient.WithMetrics(metrics.New()),
		apiclient.WithTimeout(cfg.RequestTimeout),
	)
	ws := workspace.New(api, notify.NewLogNotifier(log),
		workspace.WithLogger(log),
		workspace.WithInventoryMetrics(invmetrics.New()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := ws.Preload(ctx); err != nil {
		log.Error("preload failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("categories: %d, assignments: %d, employees: %d\n",
		len(ws.Categories.Categories()),
		len(ws.Assignments.Assignments()),
		len(ws.Employees.Employees()),
	)
	for _, c := range ws.Categories.Categories() {
		fmt.Printf("  [%d] %-24s in stock: %d\n", c.ID, c.Name, c.InStockCount)
	}

	if *categoryID != 0 {
		if err := ws.Inventory.SetScope(ctx, *categoryID); err != nil {
			log.Error("scope load failed", "category_id", *categoryID, "error", err)
			os.Exit(1)
		}
		for _, a := range ws.Inventory.Accessories() {
			fmt.Printf("  %s %-20s %-12s stock: %d\n", a.AccessoryNo, a.BrandName, a.Status, a.StockQuantity)
		}
	}
}
