package launchpad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	telemetry "github.com/voltfinance/voltage-launchpad/observability/otel"
	"github.com/voltfinance/voltage-launchpad/services/auditlog"
)

const maxBodyBytes = 1 << 20

// AuditReader lists archived events of a sale.
type AuditReader interface {
	List(sale common.Address, limit int) ([]auditlog.Record, error)
}

type ServerConfig struct {
	Auth      AuthConfig
	RateLimit RateLimit
	Audit     AuditReader
	Logger    *slog.Logger
}

// Server exposes the Service over HTTP.
type Server struct {
	svc     *Service
	auth    *Authenticator
	limiter *RateLimiter
	audit   AuditReader
	logger  *slog.Logger
	router  http.Handler
}

// NewServer builds the chi router for svc.
func NewServer(svc *Service, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:     svc,
		auth:    NewAuthenticator(cfg.Auth, logger),
		limiter: NewRateLimiter(cfg.RateLimit),
		audit:   cfg.Audit,
		logger:  logger.With("component", "http"),
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(instrument(telemetry.Tracer("launchpad/http"), s.logger))
	r.Use(s.limiter.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/sales", s.listSales)
		v1.Get("/sales/{asset}", s.getSale)
		v1.Get("/sales/{asset}/participants/{addr}", s.getParticipant)
		v1.Get("/assets/{asset}/balances/{addr}", s.getBalance)
		v1.Get("/audit/{asset}", s.listAudit)

		v1.Group(func(user chi.Router) {
			user.Use(s.auth.Middleware())
			user.Post("/sales/{asset}/deposit", s.deposit)
			user.Post("/sales/{asset}/withdraw", s.withdraw)
			user.Post("/sales/{asset}/create-pool", s.createPool)
			user.Post("/sales/{asset}/claim-liquidity", s.claimLiquidity)
			user.Post("/sales/{asset}/claim-incentives", s.claimIncentives)
			user.Post("/sales/{asset}/emergency-withdraw", s.emergencyWithdraw)
			user.Post("/votelock", s.lock)
			user.Post("/votelock/release", s.release)
		})

		v1.Group(func(admin chi.Router) {
			admin.Use(s.auth.Middleware(AdminScope))
			admin.Post("/sales", s.createSale)
			admin.Post("/sales/{asset}/stop", s.stop)
			admin.Post("/assets", s.registerAsset)
			admin.Post("/assets/{asset}/mint", s.mint)
		})
	})
	return r
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.svc.Sales(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]SaleView, 0, len(sales))
	for _, sale := range sales {
		out = append(out, NewSaleView(sale))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSale(w http.ResponseWriter, r *http.Request) {
	asset, err := ParseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		s.fail(w, err)
		return
	}
	sale, err := s.svc.Sale(r.Context(), asset)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSaleView(sale))
}

func (s *Server) getParticipant(w http.ResponseWriter, r *http.Request) {
	asset, err := ParseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		s.fail(w, err)
		return
	}
	addr, err := ParseAddress("addr", chi.URLParam(r, "addr"))
	if err != nil {
		s.fail(w, err)
		return
	}
	info, err := s.svc.Participant(r.Context(), asset, addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewParticipantView(info))
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	asset, err := ParseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		s.fail(w, err)
		return
	}
	holder, err := ParseAddress("addr", chi.URLParam(r, "addr"))
	if err != nil {
		s.fail(w, err)
		return
	}
	balance, err := s.svc.Balance(r.Context(), asset, holder)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AmountResponse{Amount: balance.String()})
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeJSONError(w, http.StatusNotFound, errors.New("audit archive disabled"))
		return
	}
	asset, err := ParseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		s.fail(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			s.fail(w, fmt.Errorf("%w: limit must be an integer", ErrBadRequest))
			return
		}
	}
	records, err := s.audit.List(asset, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	type entry struct {
		auditlog.Record
		Attributes map[string]string `json:"attributes"`
	}
	out := make([]entry, 0, len(records))
	for _, rec := range records {
		out = append(out, entry{Record: rec, Attributes: rec.Attrs()})
	}
	writeJSON(w, http.StatusOK, out)
}

// saleCall resolves the sale asset and caller of an authenticated route.
func (s *Server) saleCall(w http.ResponseWriter, r *http.Request) (common.Address, common.Address, bool) {
	asset, err := ParseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		s.fail(w, err)
		return common.Address{}, common.Address{}, false
	}
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, errors.New("missing caller"))
		return common.Address{}, common.Address{}, false
	}
	return asset, caller, true
}

func (s *Server) readAmount(w http.ResponseWriter, r *http.Request) (*big.Int, bool) {
	var body AmountRequest
	if !s.decode(w, r, &body) {
		return nil, false
	}
	amount, err := ParseAmount("amount", body.Amount)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return amount, true
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	asset, caller, ok := s.saleCall(w, r)
	if !ok {
		return
	}
	amount, ok := s.readAmount(w, r)
	if !ok {
		return
	}
	if err := s.svc.Deposit(r.Context(), asset, caller, amount); err != nil {
		s.fail(w, err)
		return
	}
	s.respondParticipant(w, r, asset, caller)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	asset, caller, ok := s.saleCall(w, r)
	if !ok {
		return
	}
	amount, ok := s.readAmount(w, r)
	if !ok {
		return
	}
	penalty, err := s.svc.Withdraw(r.Context(), asset, caller, amount)
	if err != nil {
		s.fail(w, err)
		return
	}
	info, err := s.svc.Participant(r.Context(), asset, caller)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WithdrawResponse{Penalty: penalty.String(), Participant: NewParticipantView(info)})
}

func (s *Server) createPool(w http.ResponseWriter, r *http.Request) {
	asset, caller, ok := s.saleCall(w, r)
	if !ok {
		return
	}
	amounts, err := s.svc.CreatePool(r.Context(), asset, caller)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettlementView{
		ReservePool:    amounts.ReservePool.String(),
		SalePool:       amounts.SalePool.String(),
		UserIncentives: amounts.UserIncentives.String(),
		IssuerRefund:   amounts.IssuerRefund.String(),
	})
}

func (s *Server) claimLiquidity(w http.ResponseWriter, r *http.Request) {
	s.payout(w, r, s.svc.ClaimLiquidity)
}

func (s *Server) claimIncentives(w http.ResponseWriter, r *http.Request) {
	s.payout(w, r, s.svc.ClaimIncentives)
}

func (s *Server) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	s.payout(w, r, s.svc.EmergencyWithdraw)
}

type payoutFunc func(ctx context.Context, sale, caller common.Address) (*big.Int, error)

func (s *Server) payout(w http.ResponseWriter, r *http.Request, fn payoutFunc) {
	asset, caller, ok := s.saleCall(w, r)
	if !ok {
		return
	}
	amount, err := fn(r.Context(), asset, caller)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AmountResponse{Amount: amount.String()})
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	asset, caller, ok := s.saleCall(w, r)
	if !ok {
		return
	}
	if err := s.svc.Stop(r.Context(), asset, caller); err != nil {
		s.fail(w, err)
		return
	}
	sale, err := s.svc.Sale(r.Context(), asset)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSaleView(sale))
}

func (s *Server) createSale(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, errors.New("missing caller"))
		return
	}
	var body CreateSaleBody
	if !s.decode(w, r, &body) {
		return
	}
	req, err := body.Request()
	if err != nil {
		s.fail(w, err)
		return
	}
	sale, err := s.svc.CreateSale(r.Context(), caller, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewSaleView(sale))
}

func (s *Server) registerAsset(w http.ResponseWriter, r *http.Request) {
	var body RegisterAssetBody
	if !s.decode(w, r, &body) {
		return
	}
	addr, err := ParseAddress("address", body.Address)
	if err != nil {
		s.fail(w, err)
		return
	}
	asset, err := s.svc.RegisterAsset(r.Context(), addr, body.Symbol, body.Decimals)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RegisterAssetBody{Address: asset.Address.Hex(), Symbol: asset.Symbol, Decimals: asset.Decimals})
}

func (s *Server) mint(w http.ResponseWriter, r *http.Request) {
	asset, err := ParseAddress("asset", chi.URLParam(r, "asset"))
	if err != nil {
		s.fail(w, err)
		return
	}
	var body MintBody
	if !s.decode(w, r, &body) {
		return
	}
	to, err := ParseAddress("to", body.To)
	if err != nil {
		s.fail(w, err)
		return
	}
	amount, err := ParseAmount("amount", body.Amount)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.svc.Mint(r.Context(), asset, to, amount); err != nil {
		s.fail(w, err)
		return
	}
	balance, err := s.svc.Balance(r.Context(), asset, to)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AmountResponse{Amount: balance.String()})
}

func (s *Server) lock(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, errors.New("missing caller"))
		return
	}
	var body LockBody
	if !s.decode(w, r, &body) {
		return
	}
	amount, err := ParseAmount("amount", body.Amount)
	if err != nil {
		s.fail(w, err)
		return
	}
	lock, err := s.svc.Lock(r.Context(), caller, amount, body.UnlockAt)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LockView{Owner: lock.Owner.Hex(), Amount: lock.Amount.String(), UnlockAt: lock.UnlockAt})
}

func (s *Server) release(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, errors.New("missing caller"))
		return
	}
	amount, err := s.svc.Release(r.Context(), caller)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AmountResponse{Amount: amount.String()})
}

func (s *Server) respondParticipant(w http.ResponseWriter, r *http.Request, sale, addr common.Address) {
	info, err := s.svc.Participant(r.Context(), sale, addr)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewParticipantView(info))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.fail(w, fmt.Errorf("%w: invalid payload: %v", ErrBadRequest, err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSONError(w, status, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
