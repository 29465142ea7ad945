package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/domicoco/edge-bank/internal/auth"
	"github.com/domicoco/edge-bank/internal/events/kafka"
	"github.com/domicoco/edge-bank/internal/interfaces"
	"github.com/domicoco/edge-bank/internal/ledger"
	"github.com/domicoco/edge-bank/internal/models"
	eventmodels "github.com/domicoco/edge-bank/internal/models/events"
	"github.com/domicoco/edge-bank/internal/pin"
	"github.com/domicoco/edge-bank/internal/storage/memory"
	"github.com/domicoco/edge-bank/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var (
		store     interfaces.LedgerStore
		directory interfaces.AccountDirectory
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		if err := db.Ping(); err != nil {
			logger.Fatal("ping database", zap.Error(err))
		}
		store = postgres.NewLedgerStore(db)
		directory = postgres.NewDirectory(db)
	} else {
		logger.Info("DATABASE_URL not set, using in-memory stores")
		store = memory.NewLedgerStore()
		directory = memory.NewDirectory()
	}

	var publisher interfaces.EventPublisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		publisher = kafka.NewPublisher(strings.Split(brokers, ","), "transfer_completed")
	}

	ledgerService := ledger.NewLedger(store, directory)
	gate := auth.NewAuthenticator(directory)
	lockout := auth.NewLockout(3)

	writeError := func(w http.ResponseWriter, status int, msg string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(struct {
			Error string `json:"error"`
		}{msg})
	}

	// handleError maps domain errors to status codes and generic messages.
	// Raw storage errors are logged, never exposed.
	handleError := func(w http.ResponseWriter, err error) {
		var shortfall *ledger.InsufficientFundsError
		switch {
		case errors.As(err, &shortfall):
			writeError(w, http.StatusConflict, shortfall.Error())
		case errors.Is(err, ledger.ErrInvalidInput), errors.Is(err, pin.ErrInvalidPIN):
			writeError(w, http.StatusBadRequest, "invalid input")
		case errors.Is(err, ledger.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "invalid argument")
		case errors.Is(err, ledger.ErrInvalidRecipient):
			writeError(w, http.StatusNotFound, "recipient not found")
		case errors.Is(err, ledger.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, auth.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, auth.ErrLoginFailed):
			writeError(w, http.StatusUnauthorized, "wrong email or pin")
		case errors.Is(err, auth.ErrRecoveryFailed):
			writeError(w, http.StatusUnauthorized, "incorrect email or security answer")
		case errors.Is(err, auth.ErrLocked):
			writeError(w, http.StatusLocked, "account locked")
		default:
			logger.Error("request failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}

	// authorize gates every ledger-touching request behind login plus the
	// three-strike lockout policy.
	authorize := func(w http.ResponseWriter, r *http.Request, email, rawPIN string) bool {
		email = models.NormalizeEmail(email)
		if !lockout.Allowed(email) {
			handleError(w, auth.ErrLocked)
			return false
		}
		if err := gate.Login(r.Context(), email, rawPIN); err != nil {
			if lockout.RecordFailure(email) {
				logger.Warn("login lockout triggered", zap.String("email", email))
			}
			handleError(w, err)
			return false
		}
		lockout.Clear(email)
		return true
	}

	writeJSON := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Email          string `json:"email"`
			Name           string `json:"name"`
			DateOfBirth    string `json:"date_of_birth"`
			Gender         string `json:"gender"`
			Address        string `json:"address"`
			NationalID     string `json:"national_id"`
			Phone          string `json:"phone"`
			AccountType    string `json:"account_type"`
			PIN            string `json:"pin"`
			SecurityAnswer string `json:"security_answer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		account := models.Account{
			Email:          req.Email,
			Name:           req.Name,
			DateOfBirth:    req.DateOfBirth,
			Gender:         req.Gender,
			Address:        req.Address,
			NationalID:     req.NationalID,
			Phone:          req.Phone,
			AccountType:    req.AccountType,
			SecurityAnswer: req.SecurityAnswer,
		}
		if err := gate.Register(r.Context(), account, req.PIN); err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			Status string `json:"status"`
		}{"registered"})
	})

	http.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Email string `json:"email"`
			PIN   string `json:"pin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !authorize(w, r, req.Email, req.PIN) {
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
		}{"ok"})
	})

	http.HandleFunc("/pin/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Email          string `json:"email"`
			SecurityAnswer string `json:"security_answer"`
			NewPIN         string `json:"new_pin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := gate.ResetPIN(r.Context(), req.Email, req.SecurityAnswer, req.NewPIN); err != nil {
			handleError(w, err)
			return
		}
		// Successful recovery unlocks the account again.
		lockout.Clear(models.NormalizeEmail(req.Email))
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
		}{"pin reset"})
	})

	http.HandleFunc("/accounts/deposit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Email  string          `json:"email"`
			PIN    string          `json:"pin"`
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !authorize(w, r, req.Email, req.PIN) {
			return
		}

		balance, err := ledgerService.Deposit(r.Context(), req.Email, req.Amount)
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Balance decimal.Decimal `json:"balance"`
		}{balance})
	})

	http.HandleFunc("/accounts/withdraw", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Email  string          `json:"email"`
			PIN    string          `json:"pin"`
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !authorize(w, r, req.Email, req.PIN) {
			return
		}

		balance, err := ledgerService.Withdraw(r.Context(), req.Email, req.Amount)
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Balance decimal.Decimal `json:"balance"`
		}{balance})
	})

	http.HandleFunc("/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Email     string          `json:"email"`
			PIN       string          `json:"pin"`
			Recipient string          `json:"recipient"`
			Amount    decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !authorize(w, r, req.Email, req.PIN) {
			return
		}

		balance, err := ledgerService.Transfer(r.Context(), req.Email, req.Recipient, req.Amount)
		if err != nil {
			handleError(w, err)
			return
		}

		if publisher != nil {
			event := eventmodels.TransferCompleted{
				TransferID: uuid.New().String(),
				Sender:     models.NormalizeEmail(req.Email),
				Recipient:  models.NormalizeEmail(req.Recipient),
				Amount:     req.Amount,
				OccurredAt: time.Now().UTC(),
			}
			if err := publisher.Publish("transfer_completed", event); err != nil {
				// Best-effort: the transfer is already durable.
				logger.Warn("publish transfer event", zap.Error(err))
			}
		}

		writeJSON(w, http.StatusCreated, struct {
			Balance decimal.Decimal `json:"balance"`
		}{balance})
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		email := r.URL.Query().Get("email")
		if email == "" {
			writeError(w, http.StatusBadRequest, "email is a mandatory field")
			return
		}
		if !authorize(w, r, email, r.URL.Query().Get("pin")) {
			return
		}

		balance, err := ledgerService.Balance(r.Context(), email)
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Email   string          `json:"email"`
			Balance decimal.Decimal `json:"balance"`
		}{models.NormalizeEmail(email), balance})
	})

	http.HandleFunc("/accounts/history", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		email := r.URL.Query().Get("email")
		if email == "" {
			writeError(w, http.StatusBadRequest, "email is a mandatory field")
			return
		}
		if !authorize(w, r, email, r.URL.Query().Get("pin")) {
			return
		}

		entries, err := ledgerService.History(r.Context(), email, 10)
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("starting server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
