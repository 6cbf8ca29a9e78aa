package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"bookrater/internal/config"
	"bookrater/internal/delivery"
	"bookrater/internal/gemini"
	"bookrater/internal/middleware"
	"bookrater/internal/search"
	"bookrater/internal/settings"
)

func main() {
	cfg := config.Get()
	log := logrus.StandardLogger()
	if err := config.Err(); err != nil {
		log.WithError(err).Fatal("bad config file")
	}
	if cfg.WebAdapter.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	store, err := settings.Open(cfg.Storage.SettingsPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open settings store")
	}
	defer store.Close()

	client := gemini.NewClient(cfg.Gemini.BaseURL,
		time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second)

	server := &delivery.Server{
		Log:      log,
		Search:   search.NewService(client),
		Settings: store,
	}

	handler := middleware.CORS(middleware.RequestLogger(log)(server.Routes()))

	if cfg.Metrics.Port != 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			log.WithField("addr", addr).Info("metrics exporter started")
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.WithError(err).Error("metrics exporter stopped")
			}
		}()
	}

	addr := cfg.WebAdapter.Address()
	log.WithField("addr", addr).Info("web adapter started")
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.WithError(err).Fatal("web server stopped")
	}
}
