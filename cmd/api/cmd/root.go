package cmd

import (
	"context"
	"os"

	"github.com/apex/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"estateflow/agreement"
	"estateflow/asset"
	"estateflow/auth"
	"estateflow/chain"
	"estateflow/config"
	"estateflow/db"
	"estateflow/document"
	"estateflow/family"
)

var rootCmd = &cobra.Command{
	Use:   "estateflow",
	Short: "Run the estateflow API server",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.Load(".env"); err != nil {
			log.Fatalf("Unable to load config: %v", err)
		}

		ctx := context.Background()
		pool, err := db.NewPool(ctx, config.MustGetKey("DATABASE_URL"))
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer pool.Close()

		var contract chain.Contract
		if gatewayURL := config.GetKey("CHAIN_GATEWAY_URL"); gatewayURL != "" {
			contract = chain.NewGatewayClient(gatewayURL, config.GetKey("CHAIN_GATEWAY_API_KEY"))
		} else {
			log.Warn("CHAIN_GATEWAY_URL not set; signing endpoints will reject requests")
		}
		mirror := chain.NewMirror(contract, config.GetKeyWithDefault("EXPLORER_BASE_URL", "https://sepolia.etherscan.io"))

		authSvc := auth.NewService(auth.NewRepository(pool), config.MustGetKey("JWT_SECRET"))

		var store document.ObjectStore = document.NewMockStore()
		if storageURL := config.GetKey("STORAGE_GATEWAY_URL"); storageURL != "" {
			store = document.NewStoreClient(storageURL, config.GetKey("STORAGE_GATEWAY_API_KEY"))
		}

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.Use(middleware.Recover())

		setupRoutes(e, RouteOpts{
			Auth:      authSvc,
			Signing:   agreement.NewSigningService(pool, agreement.NewRepository(), mirror),
			CRUD:      agreement.NewCRUDService(pool),
			Family:    family.NewService(family.NewRepository(pool)),
			Assets:    asset.NewService(asset.NewRepository(pool)),
			Documents: document.NewService(document.NewRepository(pool), store),
		})

		port := config.GetKeyWithDefault("API_PORT", "8080")
		log.Infof("Starting estateflow API on :%s", port)
		if err := e.Start(":" + port); err != nil {
			log.Fatalf("Unable to start server: %v", err)
		}
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
