package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sendmoney/pkg/bankapi"
	"sendmoney/pkg/guard"
	"sendmoney/pkg/session"
	"sendmoney/pkg/transfer"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

var (
	sessionSecret []byte // loaded from env SESSION_SECRET (fallback to dev default)

	sessions session.Store
	views    *transfer.Registry
	pages    *pageRenderer
)

func main() {
	// Auto-load ./.env if present before reading vars
	loadDotEnv()
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	sessionSecret = []byte(secret)

	// `./sendmoney migrate` runs AutoMigrate and exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration completed")
		return
	}

	sessions = initSessionStore()

	api := bankapi.New(envOr("BANK_API_URL", "http://localhost:8080/api/v2"),
		bankapi.WithToken(os.Getenv("BANK_API_TOKEN")),
		bankapi.WithTimeout(envDuration("BANK_API_TIMEOUT", 0)),
	)
	views = transfer.NewRegistry(api, envDuration("VIEW_TTL", 30*time.Minute), transfer.WithGuard(initGuard()))
	go views.Run(context.Background(), time.Minute)

	var err error
	pages, err = newPageRenderer(os.Getenv("TEMPLATE_DIR"))
	if err != nil {
		log.Fatalf("load templates: %v", err)
	}

	r := gin.Default()
	setupRoutes(r)

	addr := envOr("LISTEN_ADDR", ":8081")
	log.Printf("send-money frontend listening on %s (backend %s)", addr, api.BaseURL)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// initSessionStore uses postgres when DB_DSN is set and memory otherwise.
func initSessionStore() session.Store {
	if os.Getenv("DB_DSN") == "" {
		log.Println("DB_DSN not set; sessions are kept in memory")
		return session.NewMemoryStore()
	}
	initDB()
	return session.NewGormStore(db)
}

// initGuard shares the submit lock through Redis when REDIS_ADDR is set.
func initGuard() transfer.Guard {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return guard.NewLocal()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis %s unreachable (%v); using in-process submit guard", addr, err)
		return guard.NewLocal()
	}
	log.Printf("redis submit guard at %s", addr)
	return guard.NewRedis(rdb)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
