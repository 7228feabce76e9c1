package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pointsale/cmd/internal/devstack"
	"pointsale/config"
	nativecommon "pointsale/native/common"
	"pointsale/native/exchange"
	"pointsale/native/fees"
	"pointsale/native/prefs"
	"pointsale/native/settle"
	"pointsale/observability/logging"
	"pointsale/rpc"
	"pointsale/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("pointsaled", cfg.Environment)

	var db storage.Database
	if cfg.DataDir != "" {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("open database", "path", cfg.DataDir, "error", err)
			os.Exit(1)
		}
		defer ldb.Close()
		db = ldb
	} else {
		logger.Warn("no data directory configured, state will not survive restarts")
		db = storage.NewMemDB()
	}
	manager := storage.NewManager(db)

	pauses := nativecommon.NewPauses()

	ledger := devstack.NewMemoryLedger()
	resolver := &devstack.Resolver{}
	gateway := &devstack.Gateway{PointToken: "SPT", Ledger: ledger}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	venue := &devstack.Venue{
		Ledger:  ledger,
		Custody: cfg.Custody(),
		Rate:    new(big.Int).Set(unit),
		Precisions: map[string]*big.Int{
			"SPT":  new(big.Int).Set(unit),
			"USDQ": new(big.Int).Set(unit),
		},
	}

	prefsEngine := prefs.NewEngine()
	prefsEngine.SetState(manager)
	prefsEngine.SetResolver(resolver)
	prefsEngine.SetPauses(pauses)

	feeCtrl, err := fees.NewController(manager, cfg.Governance(), cfg.FeeMaxBps)
	if err != nil {
		logger.Error("init fee controller", "error", err)
		os.Exit(1)
	}
	feeCtrl.SetPauses(pauses)

	settleEngine := settle.NewEngine(cfg.Custody(), cfg.Operator())
	settleEngine.SetPreferences(prefsEngine)
	settleEngine.SetFeeReader(feeCtrl)
	settleEngine.SetResolver(resolver)
	settleEngine.SetGateway(gateway)
	settleEngine.SetAdapter(exchange.NewRouter(venue))
	settleEngine.SetLedger(ledger)
	settleEngine.SetPauses(pauses)

	server := rpc.NewServer(rpc.ServerConfig{
		Prefs:           prefsEngine,
		FeeController:   feeCtrl,
		Settlement:      settleEngine,
		Pauses:          pauses,
		Operator:        cfg.Operator(),
		Governance:      cfg.Governance(),
		OperatorToken:   cfg.OperatorToken,
		GovernanceToken: cfg.GovernanceToken,
		Log:             logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("rpc server listening", "addr", cfg.ListenAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server", "error", err)
			os.Exit(1)
		}
	}
}
