package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	api "github.com/mind-engage/courseware/internal/api/http"
	"github.com/mind-engage/courseware/internal/assignment"
	auth "github.com/mind-engage/courseware/internal/auth/middleware"
	"github.com/mind-engage/courseware/internal/config"
	"github.com/mind-engage/courseware/internal/course"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/logging"
	"github.com/mind-engage/courseware/internal/metrics"
	"github.com/mind-engage/courseware/internal/quiz"
	"github.com/mind-engage/courseware/internal/storage"
	"github.com/mind-engage/courseware/internal/user"
)

func main() {
	cfg := config.Load()
	log := logging.New("courseware", cfg.LogLevel)

	// --- DB ---
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.WithError(err).Fatal("bad DB_DRIVER")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}
	defer dbh.Close()

	media, err := storage.NewFSStore(cfg.BlobBasePath, cfg.MediaBaseURL)
	if err != nil {
		log.WithError(err).Fatal("media store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Services ---
	authSvc := auth.NewAuthService(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	users := user.NewService(user.NewSQLStore(dbh), authSvc, media, log, cfg.BcryptCost)
	courses := course.NewService(course.NewSQLStore(dbh), media, log)
	quizzes := quiz.NewService(quiz.NewSQLStore(dbh), log, m)
	assignments := assignment.NewService(assignment.NewSQLStore(dbh), log)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := users.SeedAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassHash); err != nil {
		log.WithError(err).Fatal("admin seed failed")
	}
	seedCancel()

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Requests(log), middleware.Recoverer)
	if cfg.EnableMetrics {
		r.Use(m.Middleware)
	}
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Mount("/api", api.Routes(api.Deps{
		Users:       users,
		Courses:     courses,
		Quizzes:     quizzes,
		Assignments: assignments,
		Media:       media,
		Guards:      api.NewGuards(authSvc, dbh, log),
		Log:         log,
		MaxUpload:   cfg.MaxUploadMB << 20,
	}))

	// uploaded media, read-only
	r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(media.Base()))))

	if cfg.EnableMetrics {
		r.Handle("/metrics", m.Handler(dbh))
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).WithField("mode", cfg.Mode).WithField("db", driver).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	shutdown, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdown); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("stopped")
}
