// Command presenced runs the presence and contact-list core as a
// standalone process: it loads configuration, opens the store, wires the
// notification core, and serves the demo WebSocket gateway until a
// termination signal arrives.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/toeserve/presenced/internal/authservice"
	"github.com/toeserve/presenced/internal/config"
	"github.com/toeserve/presenced/internal/metrics"
	"github.com/toeserve/presenced/internal/notify"
	"github.com/toeserve/presenced/internal/sessionregistry"
	"github.com/toeserve/presenced/internal/store/dp"
	"github.com/toeserve/presenced/internal/store/mysql"
	"github.com/toeserve/presenced/internal/store/oim"
	"github.com/toeserve/presenced/internal/userservice"
	"github.com/toeserve/presenced/internal/wsgateway"
)

func main() {
	configDir := flag.String("config-dir", "./", "directory containing the config file")
	configName := flag.String("config-name", "presenced", "config file name, without extension")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*configDir, *configName)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := mysql.New(cfg.MySQLDSN)
	if err := adapter.Open(ctx); err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer adapter.Close()

	oimStore := oim.New(cfg.OIMRoot)
	dpStore := dp.New(cfg.DPRoot)

	users := userservice.New(adapter, oimStore)
	auth := authservice.New(5 * time.Minute)
	sessions := sessionregistry.New()
	core := notify.New(cfg, sessions, users, auth, log)

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsgateway.New(core, log))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/dp/", http.StripPrefix("/dp/", http.FileServer(http.Dir(dpStore.Root))))

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: handlers.CombinedLoggingHandler(log.Writer(), mux),
	}

	var pumpDone sync.WaitGroup
	pumpDone.Add(1)
	go func() {
		defer pumpDone.Done()
		core.Pump(ctx)
	}()

	stop := signalHandler()
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- listenAndServe(server, stop)
	}()

	if err := <-listenErr; err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("server exited with error")
	}

	cancel()         // triggers the pump's final drain
	pumpDone.Wait() // wait for the drain to finish before exiting (spec §5, §9)
	log.Info("presenced shut down cleanly")
}

// signalHandler returns a channel that fires once on SIGINT/SIGTERM/SIGHUP,
// mirroring the teacher's graceful-shutdown entry point.
func signalHandler() <-chan bool {
	stop := make(chan bool)
	signchan := make(chan os.Signal, 1)
	signal.Notify(signchan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		sig := <-signchan
		logrus.Printf("signal received: %s, shutting down", sig)
		stop <- true
	}()
	return stop
}

// listenAndServe serves server until either it fails or stop fires, in
// which case it stops accepting new connections and waits for the current
// ones to drain before returning.
func listenAndServe(server *http.Server, stop <-chan bool) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	httpdone := make(chan error, 1)
	go func() {
		httpdone <- server.Serve(ln)
	}()

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
		return nil
	case err := <-httpdone:
		return err
	}
}
