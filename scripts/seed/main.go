// Command seed loads a development dataset: one shop owner, a small product
// catalog, a few customers, and bills covering each payment lifecycle.
package main

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/kirana-erp/kirana-erp/internal/app"
	"github.com/kirana-erp/kirana-erp/internal/billing"
	"github.com/kirana-erp/kirana-erp/internal/customers"
	"github.com/kirana-erp/kirana-erp/internal/inventory"
	"github.com/kirana-erp/kirana-erp/internal/platform/db"
	"github.com/kirana-erp/kirana-erp/internal/shared"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, logger); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("kirana-dev-pass"), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", slog.Any("error", err))
		os.Exit(1)
	}

	var ownerID int64
	err = pool.QueryRow(ctx, `INSERT INTO business_owners (email, password_hash, shop_name)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET shop_name = EXCLUDED.shop_name
RETURNING id`, "dev@kirana.local", string(hash), "Dev Kirana Store").Scan(&ownerID)
	if err != nil {
		logger.Error("seed owner", slog.Any("error", err))
		os.Exit(1)
	}
	ctx = shared.ContextWithTenant(ctx, ownerID)

	invService := inventory.NewService(inventory.NewRepository(pool), nil, logger)
	products := []inventory.CreateProductInput{
		{Name: "Basmati Rice 5kg", Category: "Grocery", Price: 640, Cost: 520, Stock: 40, MinStock: 8},
		{Name: "Sunflower Oil 1L", Category: "Grocery", Price: 180, Cost: 150, Stock: 60, MinStock: 12},
		{Name: "Sugar 1kg", Category: "Grocery", Price: 48, Cost: 40, Stock: 80, MinStock: 20},
		{Name: "Tea 250g", Category: "Beverages", Price: 120, Cost: 95, Stock: 30, MinStock: 6},
		{Name: "Detergent 1kg", Category: "Household", Price: 99, Cost: 78, Stock: 25, MinStock: 5},
	}
	var productIDs []int64
	for _, p := range products {
		created, err := invService.CreateProduct(ctx, p)
		if err != nil {
			logger.Error("seed product", slog.String("name", p.Name), slog.Any("error", err))
			os.Exit(1)
		}
		productIDs = append(productIDs, created.ID)
	}

	custService := customers.NewService(customers.NewRepository(pool), logger)
	var customerIDs []int64
	for _, c := range []customers.CustomerInput{
		{Name: "Ravi Kumar", Phone: "+919876543210", Address: "14 Market Road"},
		{Name: "Meena Traders", Phone: "+919812345678", Address: "2 Bazar Lane"},
	} {
		created, err := custService.CreateCustomer(ctx, c)
		if err != nil {
			logger.Error("seed customer", slog.String("name", c.Name), slog.Any("error", err))
			os.Exit(1)
		}
		customerIDs = append(customerIDs, created.ID)
	}

	billingService := billing.NewService(billing.NewRepository(pool), nil, shared.NewIdempotencyStore(pool), nil, logger,
		billing.ServiceConfig{})
	bills := []billing.CreateBillInput{
		{
			PaymentMethod: billing.MethodCash,
			Items: []billing.LineItemInput{
				{ProductID: productIDs[0], Quantity: 1},
				{ProductID: productIDs[2], Quantity: 2},
			},
		},
		{
			PaymentMethod: billing.MethodCredit,
			CustomerID:    customerIDs[0],
			Items: []billing.LineItemInput{
				{ProductID: productIDs[1], Quantity: 2},
			},
		},
		{
			PaymentMethod: billing.MethodCheque,
			CustomerID:    customerIDs[1],
			ChequeNumber:  "000421",
			Items: []billing.LineItemInput{
				{ProductID: productIDs[3], Quantity: 3},
				{ProductID: productIDs[4], Quantity: 1},
			},
		},
	}
	for i, input := range bills {
		receipt, err := billingService.CreateBill(ctx, input)
		if err != nil {
			logger.Error("seed bill", slog.Int("index", i), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("seeded bill",
			slog.String("bill_number", receipt.BillNumber),
			slog.String("status", string(receipt.Status)))
	}

	logger.Info("seed complete", slog.Int64("owner_id", ownerID))
}
