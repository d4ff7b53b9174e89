package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"opensud/dashboard"
	"opensud/utils"
)

func main() {
	fs := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
	addr := fs.String("addr", ":8050", "Listen address")
	debug := fs.Bool("debug", false, "Run gin in debug mode")
	jsonLogs := fs.Bool("json-logs", false, "Print logs in JSON format")
	devLogs := fs.Bool("dev-logs", false, "Print logs in the development format")
	verbose := fs.Bool("verbose", false, "Print DEBUG messages")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	utils.InitLogger(*jsonLogs, *devLogs, *verbose || *debug, false)
	log := &utils.Logger
	defer log.Flush()

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := dashboard.Default().Router()
	if err != nil {
		log.Error("Failed to build the dashboard", zap.Error(err))
		log.Flush()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Dashboard listening", zap.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown error", zap.Error(err))
	}
	log.Info("Dashboard stopped")
}
