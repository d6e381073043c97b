package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kmp.co.th/assistant-backend/internal/api"
	"kmp.co.th/assistant-backend/internal/config"
	"kmp.co.th/assistant-backend/internal/core"
	"kmp.co.th/assistant-backend/internal/erp"
	"kmp.co.th/assistant-backend/internal/store"
	"kmp.co.th/assistant-backend/internal/tools"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize LLM service
	llmService := core.NewLLMService()
	defer llmService.Close()

	// Tool registry over the ERP host's read-only API
	erpClient := erp.NewHTTPClient(config.AppConfig.ERPBaseURL, config.AppConfig.ERPAPIKey, config.AppConfig.ERPAPISecret)
	registry := tools.NewERPRegistry(erpClient)

	// Initialize the assistant service
	service := core.NewAssistantService(
		dbStore,
		registry,
		llmService,
		config.AppConfig.HistoryWindow,
		time.Duration(config.AppConfig.LLMTimeoutSeconds)*time.Second,
		time.Duration(config.AppConfig.ToolTimeoutSeconds)*time.Second,
	)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(service)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // chat calls wait on the model
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
