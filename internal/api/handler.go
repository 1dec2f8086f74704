package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"LuminCredit/internal/dashboard"
	"LuminCredit/internal/payments"
	"LuminCredit/internal/recorder"
	"LuminCredit/internal/store"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Handler serves the HTTP API.
type Handler struct {
	store     *store.Store
	dashboard *dashboard.Service
	payments  *payments.Service
	recorder  recorder.Recorder
	tokens    *TokenIssuer
	log       *logrus.Logger
}

// NewHandler wires the API. tokens may be nil to disable auth.
func NewHandler(st *store.Store, dash *dashboard.Service, pay *payments.Service, rec recorder.Recorder, tokens *TokenIssuer, log *logrus.Logger) *Handler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{store: st, dashboard: dash, payments: pay, recorder: rec, tokens: tokens, log: log}
}

// Router builds the mux router with public and protected routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/users", h.Users).Methods(http.MethodGet)

	protected := r.PathPrefix("/").Subrouter()
	protected.Use(AuthMiddleware(h.tokens))
	protected.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)
	protected.HandleFunc("/limits", h.Limits).Methods(http.MethodGet)
	protected.HandleFunc("/history", h.History).Methods(http.MethodGet)
	protected.HandleFunc("/pay", h.Pay).Methods(http.MethodPost)
	protected.HandleFunc("/set_goal", h.SetGoal).Methods(http.MethodPost)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.store.Authenticate(req.Username, req.Password); err != nil {
		h.log.WithField("username", req.Username).Warn("failed login")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	resp := map[string]string{"status": "success", "user_id": req.Username}
	if h.tokens != nil {
		token, err := h.tokens.Issue(req.Username)
		if err != nil {
			h.log.WithError(err).Error("issue token")
			writeError(w, http.StatusInternalServerError, "could not issue token")
			return
		}
		resp["token"] = token
	}
	h.log.WithField("username", req.Username).Info("user logged in")
	writeJSON(w, http.StatusOK, resp)
}

// Users lists every user with their scenario type.
func (h *Handler) Users(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": h.store.List()})
}

// Dashboard scores the user and returns the full dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	username, ok := h.userParam(w, r)
	if !ok {
		return
	}
	d, err := h.dashboard.Build(r.Context(), username, "api")
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   []*dashboard.Dashboard{d},
		"meta":   map[string]any{"weights_source": d.WeightsSource, "run_id": d.RunID},
	})
}

// Limits returns the user's payment limits.
func (h *Handler) Limits(w http.ResponseWriter, r *http.Request) {
	username, ok := h.userParam(w, r)
	if !ok {
		return
	}
	u, err := h.store.Get(username)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": payments.ComputeLimits(u)})
}

type runJSON struct {
	ID               string `json:"id"`
	Timestamp        int64  `json:"timestamp"`
	Trigger          string `json:"trigger"`
	Score            int    `json:"score"`
	ProvisionalScore int    `json:"provisional_score"`
	WeightsSource    string `json:"weights_source"`
	AlertCount       int    `json:"alert_count"`
}

// History returns the user's recorded scoring runs, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	username, ok := h.userParam(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.recorder.RecentRuns(username, limit)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	out := make([]runJSON, len(runs))
	for i, run := range runs {
		out[i] = runJSON{
			ID:               run.ID,
			Timestamp:        run.Timestamp.Unix(),
			Trigger:          run.Trigger,
			Score:            run.Score,
			ProvisionalScore: run.ProvisionalScore,
			WeightsSource:    string(run.WeightsSource),
			AlertCount:       run.AlertCount,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": out})
}

type payRequest struct {
	Username string      `json:"username"`
	Amount   json.Number `json:"amount"`
}

// Pay authorizes and applies a debt payment from savings.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Amount == "" {
		writeError(w, http.StatusBadRequest, "Missing username or amount")
		return
	}
	if !h.owns(w, r, req.Username) {
		return
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a number")
		return
	}

	receipt, err := h.payments.Pay(req.Username, amount)
	h.recordPayment(req.Username, amount, receipt, err)
	if err != nil {
		if errors.Is(err, payments.ErrPaymentRejected) && receipt != nil {
			writeError(w, http.StatusBadRequest, "Payment Rejected: "+receipt.Decision.Reason)
			return
		}
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"message":     receipt.Message,
		"new_balance": receipt.NewBalance,
		"new_debt":    receipt.NewDebt,
	})
}

// recordPayment stores the payment outcome. A rejected receipt carries the
// unchanged balances.
func (h *Handler) recordPayment(username string, amount decimal.Decimal, receipt *payments.Receipt, payErr error) {
	if receipt == nil {
		return
	}
	evt := &recorder.PaymentEvent{
		Username:      username,
		Amount:        amount.InexactFloat64(),
		Approved:      payErr == nil,
		Reason:        receipt.Decision.Reason,
		SavingsBefore: receipt.SavingsBefore,
		SavingsAfter:  receipt.NewBalance,
		DebtBefore:    receipt.DebtBefore,
		DebtAfter:     receipt.NewDebt,
	}
	if err := h.recorder.RecordPayment(evt); err != nil {
		h.log.WithError(err).WithField("username", username).Warn("record payment event")
	}
}

type goalRequest struct {
	Username   string `json:"username"`
	Goal       string `json:"goal"`
	GoalAmount int64  `json:"goal_amount"`
}

// SetGoal stores a goal with the default improvement plan.
func (h *Handler) SetGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Goal == "" {
		writeError(w, http.StatusBadRequest, "Missing username or goal")
		return
	}
	if !h.owns(w, r, req.Username) {
		return
	}
	plan, err := h.payments.SetGoal(req.Username, req.Goal, req.GoalAmount)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": plan})
}

func (h *Handler) userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := r.URL.Query().Get("user")
	if username == "" {
		writeError(w, http.StatusBadRequest, "User parameter required")
		return "", false
	}
	return username, h.owns(w, r, username)
}

// owns rejects requests for another user's data when auth is enabled.
func (h *Handler) owns(w http.ResponseWriter, r *http.Request, username string) bool {
	if h.tokens == nil {
		return true
	}
	subject, ok := SubjectFrom(r.Context())
	if !ok || subject != username {
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, payments.ErrInvalidAmount),
		errors.Is(err, payments.ErrMissingGoal),
		errors.Is(err, payments.ErrPaymentRejected):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}
