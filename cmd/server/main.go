package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"eld_trip_planner/internal/config"
	"eld_trip_planner/internal/controllers"
	"eld_trip_planner/internal/gateway"
	"eld_trip_planner/internal/logger"
	"eld_trip_planner/internal/middleware"
	"eld_trip_planner/internal/planner"
	"eld_trip_planner/internal/routes"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := config.Load()
	logger.Setup(settings.LogFile, settings.LogLevel)
	middleware.SetSecret(settings.JWTSecret)
	gin.SetMode(gin.ReleaseMode)

	st, err := config.InitDB(ctx, settings, logger.GormLogger())
	if err != nil {
		logrus.WithError(err).Fatal("database setup failed")
	}

	gw, err := gateway.New(ctx, settings.GatewayOptions())
	if err != nil {
		logrus.WithError(err).Fatal("routing gateway setup failed")
	}

	events := controllers.NewTripEventHub()
	defer events.Close()

	r := routes.SetupRouter(routes.Deps{
		Store:    st,
		Pipeline: planner.NewPipeline(gw),
		Events:   events,
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + settings.Port,
		Handler:           middleware.NewCORS(settings.CORSOrigins).Wrap(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Server running at :%s", settings.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
	logrus.Info("server exited")
}
