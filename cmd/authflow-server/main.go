// Command authflow-server is a demo backend-for-frontend for the login,
// admin-login, signup and social-login forms.
//
// It reads AUTHFLOW_* variables for the coordinator and the server settings
// below. Without AUTHFLOW_REDIS_ADDR it runs on an in-process miniredis.
//
// Endpoints:
//
//	POST /api/login            {"identifier","password"}
//	POST /api/admin/login      {"identifier","password"}
//	POST /api/signup/details   {"name","email","phone","password","confirm_password"}
//	POST /api/signup/back
//	POST /api/signup/complete  {"date_of_birth":"2006-01-02","gender"}
//	GET  /api/signup/bounds
//	POST /api/social/{provider} {"token"}
//	GET  /home, /admin, /complete-profile (guarded)
//	GET  /metrics
//
// Run:
//
//	go run ./cmd/authflow-server
//
//	curl -i -c jar.txt -X POST localhost:8080/api/login \
//	  -d '{"identifier":"admin@example.com","password":"Admin1234"}'
//	curl -i -b jar.txt localhost:8080/admin
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

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/memauth"
	"github.com/MrEthical07/authflow/metrics/export/prometheus"
	"github.com/MrEthical07/authflow/middleware"
	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/session"
	"github.com/MrEthical07/authflow/social"
	"github.com/MrEthical07/authflow/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
)

type serverConfig struct {
	Addr          string        `env:"AUTHFLOW_ADDR" envDefault:":8080"`
	RedisAddr     string        `env:"AUTHFLOW_REDIS_ADDR"`
	TokenSecret   string        `env:"AUTHFLOW_TOKEN_SECRET" envDefault:"dev-only-secret-change-me"`
	TokenTTL      time.Duration `env:"AUTHFLOW_TOKEN_TTL" envDefault:"24h"`
	AdminEmail    string        `env:"AUTHFLOW_SEED_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string        `env:"AUTHFLOW_SEED_ADMIN_PASSWORD" envDefault:"Admin1234"`
}

func main() {
	var sc serverConfig
	if err := env.Parse(&sc); err != nil {
		log.Fatal("server config: ", err)
	}

	cfg, err := authflow.LoadConfigFromEnv()
	if err != nil {
		log.Fatal("authflow config: ", err)
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	// ---------- infrastructure ----------
	var rdb redis.UniversalClient
	if sc.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
	} else {
		mr, err := miniredis.Run()
		if err != nil {
			log.Fatal(err)
		}
		defer mr.Close()
		log.Printf("authflow-server: using in-process redis at %s", mr.Addr())
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}
	defer rdb.Close()

	// ---------- auth service ----------
	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		log.Fatal("hasher: ", err)
	}
	tokens, err := token.NewManager(token.Config{
		TTL:           sc.TokenTTL,
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte(sc.TokenSecret),
		Issuer:        "authflow-server",
	})
	if err != nil {
		log.Fatal("tokens: ", err)
	}
	svc, err := memauth.New(hasher, tokens)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := svc.AddUser(memauth.NewUser{
		Name:            "Admin",
		Email:           sc.AdminEmail,
		Password:        sc.AdminPassword,
		Role:            memauth.RoleAdmin,
		ProfileComplete: true,
	}); err != nil {
		log.Fatal("seed admin: ", err)
	}

	// ---------- coordinator ----------
	c, err := authflow.New().
		WithConfig(cfg).
		WithAuthService(svc).
		WithRedis(rdb).
		WithAuditSink(authflow.NewJSONWriterSink(os.Stdout)).
		WithLateSocialHandler(func(_ context.Context, p social.Name, d authflow.Decision, err error) {
			log.Printf("authflow-server: late %s result route=%s err=%v", p, d.Route, err)
		}).
		Build()
	if err != nil {
		log.Fatal("coordinator: ", err)
	}
	defer c.Close()

	guards := middleware.Config{
		Sessions:            session.NewStore(rdb, cfg.Session.RedisPrefix, cfg.Session.TTL),
		Tokens:              tokens,
		LoginPath:           "/login",
		CompleteProfilePath: cfg.Routes.CompleteProfile,
		AdminRole:           cfg.Login.AdminRole,
	}

	srv := &http.Server{
		Addr:              sc.Addr,
		Handler:           newServer(c, guards, prometheus.NewPrometheusExporter(c)).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("authflow-server: listening on %s", sc.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
