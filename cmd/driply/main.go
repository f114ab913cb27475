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

	"github.com/joho/godotenv"

	"driply/internal/database"
	"driply/internal/logging"
	"driply/internal/push"
	"driply/internal/server"
	"driply/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	logger := logging.Setup(os.Getenv("DRIPLY_LOG_LEVEL"), os.Getenv("DRIPLY_LOG_FORMAT"))

	port := os.Getenv("DRIPLY_PORT")
	if port == "" {
		port = "8080"
	}
	dbPath := os.Getenv("DRIPLY_DB_PATH")
	if dbPath == "" {
		dbPath = "driply.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	pushCfg, err := loadVAPIDConfig(store.NewPreferenceStore(db))
	if err != nil {
		log.Fatalf("failed to load VAPID keys: %v", err)
	}

	srv := server.New(db, pushCfg, logger)

	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("failed to start reminder loops: %v", err)
	}
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("driply running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// loadVAPIDConfig resolves VAPID key material: environment first, then the
// settings store, generating and persisting a fresh pair on first run so
// subscriptions stay valid across restarts.
func loadVAPIDConfig(prefs *store.PreferenceStore) (push.Config, error) {
	cfg := push.Config{
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
	}
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		return cfg, nil
	}

	pub, pubOK, err := prefs.GetSetting("vapid_public_key")
	if err != nil {
		return push.Config{}, err
	}
	priv, privOK, err := prefs.GetSetting("vapid_private_key")
	if err != nil {
		return push.Config{}, err
	}
	if pubOK && privOK {
		return push.Config{VAPIDPublicKey: pub, VAPIDPrivateKey: priv}, nil
	}

	pub, priv, err = push.GenerateVAPIDKeys()
	if err != nil {
		return push.Config{}, err
	}
	if err := prefs.SetSetting("vapid_public_key", pub); err != nil {
		return push.Config{}, err
	}
	if err := prefs.SetSetting("vapid_private_key", priv); err != nil {
		return push.Config{}, err
	}
	log.Println("generated new VAPID key pair")
	return push.Config{VAPIDPublicKey: pub, VAPIDPrivateKey: priv}, nil
}
