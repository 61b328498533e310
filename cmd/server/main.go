package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/cron"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/olumayowa/walletcore/internal/automation"
	"github.com/olumayowa/walletcore/internal/bills"
	"github.com/olumayowa/walletcore/internal/config"
	"github.com/olumayowa/walletcore/internal/errs"
	"github.com/olumayowa/walletcore/internal/escrow"
	"github.com/olumayowa/walletcore/internal/events/kafka"
	"github.com/olumayowa/walletcore/internal/interfaces"
	"github.com/olumayowa/walletcore/internal/savings"
	"github.com/olumayowa/walletcore/internal/storage/memory"
	"github.com/olumayowa/walletcore/internal/storage/postgres"
	"github.com/olumayowa/walletcore/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var store interfaces.WalletStore
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open postgres store", zap.Error(err))
		}
		defer pg.Close()
		store = pg
		logger.Info("using postgres store")
	} else {
		store = memory.NewMemoryWalletStore()
		logger.Info("using in-memory store")
	}

	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		logger.Info("ledger events enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	accounts := wallet.NewAccountLocks()
	walletSvc := wallet.NewService(store, accounts, publisher, logger)
	escrowEngine := escrow.NewEngine(store, accounts, publisher, logger)
	billEngine := bills.NewEngine(store, accounts, publisher, logger)
	savingsEngine := savings.NewEngine(store, accounts, publisher, logger)

	schedule, err := cron.Parse(cfg.AutomationSchedule)
	if err != nil {
		logger.Fatal("parse automation schedule", zap.Error(err))
	}
	runner := automation.NewRunner(savingsEngine, billEngine, escrowEngine, schedule, logger)
	runner.Start(ctx)
	defer runner.Stop()

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Account query/override collaborator surface. The identity
	// collaborator supplies the authenticated owner id in X-Owner-ID.
	mux.HandleFunc("/wallet", func(w http.ResponseWriter, r *http.Request) {
		ownerID := r.Header.Get("X-Owner-ID")
		if ownerID == "" {
			http.Error(w, "X-Owner-ID is required", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodGet:
			account, err := walletSvc.Balances(r.Context(), ownerID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeBalances(w, account.NairaBalance, account.DollarBalance)

		case http.MethodPut:
			var req struct {
				NairaBalance  *decimal.Decimal `json:"nairaBalance"`
				DollarBalance *decimal.Decimal `json:"dollarBalance"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if req.NairaBalance == nil || req.DollarBalance == nil {
				http.Error(w, "nairaBalance and dollarBalance are required", http.StatusBadRequest)
				return
			}
			account, err := walletSvc.OverrideBalances(r.Context(), ownerID, *req.NairaBalance, *req.DollarBalance)
			if err != nil {
				writeError(w, err)
				return
			}
			writeBalances(w, account.NairaBalance, account.DollarBalance)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	logger.Info("starting server", zap.String("addr", cfg.ListenAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func writeBalances(w http.ResponseWriter, naira, dollar decimal.Decimal) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		NairaBalance  decimal.Decimal `json:"nairaBalance"`
		DollarBalance decimal.Decimal `json:"dollarBalance"`
	}{naira, dollar})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.CodeOf(err) {
	case errs.CodeValidation, errs.CodeInvalidStateTransition:
		status = http.StatusBadRequest
	case errs.CodeNotFound:
		status = http.StatusNotFound
	case errs.CodeUnauthorized:
		status = http.StatusForbidden
	case errs.CodeInsufficientFunds:
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}
