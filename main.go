package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"civicsync-dashboard/config"
	"civicsync-dashboard/controllers"
	"civicsync-dashboard/datasync"
	"civicsync-dashboard/identity"
	"civicsync-dashboard/routes"
	"civicsync-dashboard/session"
	"civicsync-dashboard/status"
	"civicsync-dashboard/store"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := config.ConnectDB(ctx, cfg.Backend)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Println("Error disconnecting MongoDB:", err)
		}
	}()

	redisClient, err := config.ConnectRedis(ctx, cfg.Backend)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	admin, err := cfg.Admin()
	if err != nil {
		log.Fatalf("Failed to prepare admin credentials: %v", err)
	}

	paths := cfg.Paths()
	documents := store.NewMongoStore(db)
	if err := documents.EnsureIndexes(ctx, paths); err != nil {
		log.Println("Error creating issue indexes:", err)
	}

	registry := identity.NewRedisRegistry(redisClient, "civicsync:"+cfg.AppID+":revoked")
	provider := identity.NewTokenProvider([]byte(cfg.Backend.TokenSecret), cfg.SessionTTL, registry)

	sessions := session.NewManager(provider, admin, cfg.InitialAuthToken)
	synchronizer := datasync.New(documents, paths, sessions)
	mutator := status.NewMutator(documents, paths.Issues)

	dashboard := controllers.NewDashboard(sessions, synchronizer, mutator)

	g, ctx := errgroup.WithContext(ctx)
	server := routes.NewServer(ctx, ":"+cfg.Port, routes.NewRouter(dashboard, cfg.CORSOrigins))

	g.Go(func() error {
		return sessions.Run(ctx)
	})
	g.Go(func() error {
		return synchronizer.Run(ctx)
	})
	g.Go(func() error {
		log.Printf("Dashboard API listening on %s (tenant %s)", server.Addr, cfg.AppID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
