package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/ai"
	"kanban-api/api"
	"kanban-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	dbPath := os.Getenv("PM_DB_PATH")
	if dbPath == "" {
		dbPath = "data/pm.db"
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		log.Fatalf("storage init: %v", err)
	}

	username := os.Getenv("PM_USERNAME")
	password := os.Getenv("PM_PASSWORD")
	secret := os.Getenv("SESSION_SECRET")
	if username == "" || password == "" || secret == "" {
		log.Fatal("missing auth config")
	}

	var boardStore api.Storage = store
	var sessions api.Sessions = api.NewMemorySessions()
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc := redis.NewClient(redisOpts)

		cacheTTL := time.Minute
		if v := os.Getenv("BOARD_CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid BOARD_CACHE_TTL: %v", err)
			}
			cacheTTL = d
		}
		boardStore = storage.NewCache(store, rc, cacheTTL)
		sessions = api.NewRedisSessions(rc, api.SessionTTL)
	}

	auth := api.NewAuth(username, password, []byte(secret), sessions)
	auth.SecureCookies = strings.EqualFold(os.Getenv("SECURE_COOKIES"), "true")

	completer := ai.New(ai.Config{
		APIKey: os.Getenv("OPENROUTER_API_KEY"),
		Model:  os.Getenv("OPENROUTER_MODEL"),
	})

	rateLimit := 10
	if v := os.Getenv("AI_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Fatalf("invalid AI_RATE_LIMIT: %v", err)
		}
		rateLimit = n
	}
	rateWindow := time.Minute
	if v := os.Getenv("AI_RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid AI_RATE_WINDOW: %v", err)
		}
		rateWindow = d
	}
	limiter := api.NewSlidingWindowLimiter(rateLimit, rateWindow)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: false,
	}))
	e.Use(middleware.BodyLimit("2M"))

	logger := log.New()
	api.Register(e, boardStore, auth, completer, limiter, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
