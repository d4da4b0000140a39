package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"contact-auth-app/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	// Session backend: Redis when configured, in-process otherwise.
	var redisClient *redis.Client
	var sessionStore core.SessionStore
	if cfg.RedisURL != "" {
		redisClient, err = core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		sessionStore = core.NewRedisSessionStore(redisClient, cfg.SessionIdleTimeout)
	} else {
		log.Printf("REDIS_URL not set; using in-memory session store")
		sessionStore = core.NewMemorySessionStore(cfg.SessionIdleTimeout)
	}

	photos, err := core.NewPhotoStore(cfg.PhotoDir)
	if err != nil {
		log.Fatalf("failed to prepare photo dir: %v", err)
	}

	rules, err := core.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Fatalf("failed to load access rules: %v", err)
	}

	// Gorilla cookie store signs the cookie that carries the session token.
	cookies := sessions.NewCookieStore([]byte(cfg.SessionKey))

	userRepo := core.NewPgUserRepository(db)
	contactRepo := core.NewPgContactRepository(db)
	authService := core.NewRepositoryAuthService(userRepo)

	if err := core.BootstrapUser(ctx, userRepo, cfg); err != nil {
		log.Fatalf("bootstrap user failed: %v", err)
	}

	router := core.NewRouter(core.RouterDeps{
		Config:   cfg,
		Cookies:  cookies,
		Auth:     authService,
		Sessions: sessionStore,
		Users:    userRepo,
		Contacts: contactRepo,
		Photos:   photos,
		Rules:    rules,
		DB:       db,
		Redis:    redisClient,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
