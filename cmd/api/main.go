package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wayfinderhq/wayfinder/backend/internal/classify"
	"github.com/wayfinderhq/wayfinder/backend/internal/config"
	"github.com/wayfinderhq/wayfinder/backend/internal/external"
	"github.com/wayfinderhq/wayfinder/backend/internal/handler"
	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
	"github.com/wayfinderhq/wayfinder/backend/internal/routing"
	"github.com/wayfinderhq/wayfinder/backend/internal/service/ai"
	"github.com/wayfinderhq/wayfinder/backend/internal/service/conversation"
	"github.com/wayfinderhq/wayfinder/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	contextStore, err := buildStore(cfg.Store)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}

	// Initialize AI service. The assistant stays functional without it: the
	// classifier falls back to patterns and answers are skipped.
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing with pattern-only classification")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("model credentials not configured, running with pattern-only classification")
	}

	var reasoner classify.Reasoner
	var responder conversation.Responder
	if aiService != nil {
		reasoner = aiService
		responder = aiService
	}

	classifier := classify.New(reasoner, classify.Config{
		ModelWeight:         cfg.Classifier.ModelWeight,
		PatternWeight:       cfg.Classifier.PatternWeight,
		AgreementBonus:      cfg.Classifier.AgreementBonus,
		ConfidenceThreshold: cfg.Classifier.ConfidenceThreshold,
		MaxQueryBytes:       cfg.Classifier.MaxQueryBytes,
	})

	router := routing.New(contextStore, routing.Config{
		ConfidenceThreshold: cfg.Routing.ConfidenceThreshold,
		WeatherTTL:          cfg.Routing.WeatherTTL,
		AttractionsTTL:      cfg.Routing.AttractionsTTL,
	})

	conversations := conversation.NewService(
		contextStore,
		classifier,
		router,
		buildFetchers(cfg.External),
		responder,
		cfg.External.RequestTimeout,
	)

	httpHandler := handler.NewRouter(conversations)

	startServer(ctx, cfg.Server, httpHandler)
}

func buildStore(cfg config.StoreConfig) (store.ContextStore, error) {
	switch cfg.Backend {
	case "redis":
		redisStore, err := store.NewRedisStore(store.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Namespace: cfg.RedisNamespace,
		}, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		log.Printf("using redis session store at %s", cfg.RedisAddr)
		return redisStore, nil
	default:
		log.Println("using in-memory session store")
		return store.NewMemoryStore(cfg.SessionTTL), nil
	}
}

func buildFetchers(cfg config.ExternalConfig) map[travel.DataKind]external.Fetcher {
	fetchers := map[travel.DataKind]external.Fetcher{}

	if cfg.WeatherEnabled() {
		fetchers[travel.DataWeather] = external.NewWeatherClient(
			cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.RequestTimeout)
		log.Println("weather fetcher enabled")
	} else {
		log.Println("WEATHER_API_KEY not set, weather questions will use model knowledge")
	}

	if cfg.AttractionsEnabled() {
		geocoder := external.NewNominatimGeocoder(
			cfg.NominatimBaseURL, cfg.NominatimUserAgent, cfg.RequestTimeout)
		fetchers[travel.DataAttractions] = external.NewAttractionsClient(
			cfg.GeoapifyAPIKey, cfg.GeoapifyBaseURL, geocoder, cfg.RequestTimeout)
		log.Println("attractions fetcher enabled")
	} else {
		log.Println("GEOAPIFY_API_KEY not set, attraction questions will use model knowledge")
	}

	return fetchers
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Wayfinder backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
