package cmd

import (
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	orderDatamodel "github.com/emmanuelnurit/cawl-gateway/internal/core/datamodel/order"
	"github.com/emmanuelnurit/cawl-gateway/pkg/logger"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed sample orders for local development",
	Run: func(cmd *cobra.Command, args []string) {
		runSeeder()
	},
}

func runSeeder() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize gorm: %v\n", err)
		os.Exit(1)
	}

	if clearData {
		log.Info("clearing existing seed data")
		gormDB.Exec("DELETE FROM cawl_transactions")
		gormDB.Exec("DELETE FROM orders")
	}

	orders := []orderDatamodel.Order{
		{
			Ref:                "REF-1001",
			CustomerID:         1,
			CustomerEmail:      "alice@example.com",
			BillingStreet:      "12 rue de la Paix",
			BillingCity:        "Paris",
			BillingZip:         "75002",
			BillingCountryCode: "FR",
			AmountCents:        5000,
			Currency:           "EUR",
			Status:             orderDatamodel.StatusNew,
		},
		{
			Ref:                "REF-1002",
			CustomerID:         2,
			CustomerEmail:      "bruno@example.com",
			BillingStreet:      "Keizersgracht 100",
			BillingCity:        "Amsterdam",
			BillingZip:         "1015 CV",
			BillingCountryCode: "NL",
			AmountCents:        12999,
			Currency:           "EUR",
			Status:             orderDatamodel.StatusNew,
		},
		{
			Ref:                "REF-1003",
			CustomerID:         3,
			CustomerEmail:      "carla@example.com",
			BillingStreet:      "Via Roma 5",
			BillingCity:        "Milano",
			BillingZip:         "20121",
			BillingCountryCode: "IT",
			AmountCents:        250,
			Currency:           "EUR",
			Status:             orderDatamodel.StatusNew,
		},
	}

	for _, ord := range orders {
		result := gormDB.Where("ref = ?", ord.Ref).FirstOrCreate(&ord)
		if result.Error != nil {
			log.Error("failed to seed order", "ref", ord.Ref, "error", result.Error)
			continue
		}
		log.Info("seeded order", "ref", ord.Ref, "order_id", ord.ID)
	}

	log.Info("seeding complete", "orders", len(orders))
}
