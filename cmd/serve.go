package cmd

import (
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mspro-labs/weekly-shop/internal/config"
	"mspro-labs/weekly-shop/internal/db"
	"mspro-labs/weekly-shop/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Web UI server for the run history",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServer() {
	// 1. Setup
	appCfg, err := config.GetAppConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	database, err := db.Connect(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer database.Close()

	// 2. Pre-build Templates
	srv, err := web.NewServer(database)
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	// 3. Start Server
	log.Printf("🌐 Web UI started at http://localhost%s", serveAddr)
	server := &http.Server{
		Addr:         serveAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
