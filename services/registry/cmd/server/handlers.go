package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/oz-earth/smart-contracts/pkg/domain"
	"github.com/oz-earth/smart-contracts/pkg/engine"
	"github.com/oz-earth/smart-contracts/pkg/httpx"
	"github.com/oz-earth/smart-contracts/pkg/roles"
	"github.com/oz-earth/smart-contracts/services/registry/internal/authn"
	"github.com/oz-earth/smart-contracts/services/registry/internal/idempotency"
	"github.com/oz-earth/smart-contracts/services/registry/internal/store"
)

type server struct {
	log   zerolog.Logger
	eng   *engine.Engine
	creds *authn.Registry
	st    *store.Store
}

func newServer(log zerolog.Logger, creds *authn.Registry, st *store.Store) *server {
	return &server{log: log, creds: creds, st: st}
}

// journal receives every engine event synchronously and mirrors it to
// the store for external indexing. The in-memory engine stays
// authoritative; journal failures are counted and logged, not
// surfaced to the caller.
func (s *server) journal(ev domain.Event) {
	if s.st == nil {
		return
	}
	ctx := context.Background()
	if err := s.st.AppendEvent(ctx, ev); err != nil {
		journalErrors.Inc()
		s.log.Error().Err(err).Str("kind", string(ev.Kind)).Msg("journal event")
		return
	}
	eventsJournaled.Inc()
	if ev.Project != nil {
		if err := s.st.UpsertProject(ctx, *ev.Project); err != nil {
			journalErrors.Inc()
			s.log.Error().Err(err).Uint64("project_id", ev.Project.ID).Msg("journal project")
		}
	}
	for _, tok := range ev.Tokens {
		if err := s.st.UpsertToken(ctx, tok); err != nil {
			journalErrors.Inc()
			s.log.Error().Err(err).Uint64("token_id", tok.ID).Msg("journal token")
		}
	}
}

// snapshotTokens refreshes stored token rows after burns, which mutate
// counters without emitting an event.
func (s *server) snapshotTokens(ids ...uint64) {
	if s.st == nil {
		return
	}
	ctx := context.Background()
	for _, id := range ids {
		tok, ok := s.eng.GetToken(id)
		if !ok {
			continue
		}
		if err := s.st.UpsertToken(ctx, tok); err != nil {
			journalErrors.Inc()
			s.log.Error().Err(err).Uint64("token_id", id).Msg("snapshot token")
		}
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLog)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Post("/accounts", s.handleCreateAccount)
	r.Post("/tenants", s.handleCreateTenant)
	r.Post("/projects", s.handleCreateProject)
	r.Get("/projects/{project_id}", s.handleGetProject)
	r.Post("/tokens/{token_id}/lock", s.handleLockToken)
	r.Get("/tokens/{token_id}", s.handleGetToken)
	r.Get("/tokens/{token_id}/supply", s.handleSupply)
	r.Post("/mint", s.handleMintNew)
	r.Post("/tokens/{token_id}/mint", s.handleMintExisting)
	r.Post("/mint-batch", s.handleMintBatch)
	r.Post("/swap", s.handleSwap)
	r.Post("/burn", s.handleBurn)
	r.Post("/burn-batch", s.handleBurnBatch)
	r.Post("/approvals", s.handleSetApproval)
	r.Post("/pause", s.handlePause)
	r.Post("/unpause", s.handleUnpause)
	r.Get("/accounts/{account}/nft-balances", s.handleNFTBalances)
	return r
}

func (s *server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("request")
	})
}

func (s *server) authed(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	acct, err := s.creds.Authenticate(r.Header.Get("Authorization"))
	if err != nil {
		httpx.WriteError(w, 401, httpx.CodeUnauthorized, "bearer token required", nil)
		return domain.ZeroAddress, false
	}
	return acct, true
}

func idemCaller(r *http.Request, caller domain.Address) idempotency.Caller {
	return idempotency.Caller{Account: string(caller), IdempotencyKey: r.Header.Get("Idempotency-Key")}
}

// replayed writes a previously saved response for the same key and
// reports whether it did.
func (s *server) replayed(w http.ResponseWriter, r *http.Request, caller domain.Address, endpoint string) bool {
	status, body, found, err := idempotency.Replay(r.Context(), s.idemStore(), idemCaller(r, caller), endpoint)
	if err != nil {
		httpx.WriteError(w, 500, httpx.CodeStoreError, err.Error(), nil)
		return true
	}
	if !found {
		return false
	}
	httpx.WriteJSON(w, status, body)
	return true
}

func (s *server) respond(w http.ResponseWriter, r *http.Request, caller domain.Address, endpoint string, status int, body map[string]any) {
	body["request_id"] = httpx.NewRequestID()
	if err := idempotency.Save(r.Context(), s.idemStore(), idemCaller(r, caller), endpoint, status, body); err != nil {
		s.log.Error().Err(err).Str("endpoint", endpoint).Msg("save idempotency record")
	}
	httpx.WriteJSON(w, status, body)
}

func (s *server) idemStore() idempotency.Store {
	if s.st == nil {
		return nil
	}
	return s.st
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPaused):
		httpx.WriteError(w, 409, httpx.CodePaused, err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrAdminRequired),
		errors.Is(err, domain.ErrTenantOnly),
		errors.Is(err, domain.ErrNotMinter),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotApproved):
		httpx.WriteError(w, 403, httpx.CodeForbidden, err.Error(), nil)
	case errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrTokenNotFound):
		httpx.WriteError(w, 404, httpx.CodeNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidClass),
		errors.Is(err, domain.ErrLengthMismatch),
		errors.Is(err, domain.ErrEmptyBatch),
		errors.Is(err, domain.ErrZeroAddress):
		httpx.WriteError(w, 400, httpx.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, domain.ErrTokenLocked),
		errors.Is(err, domain.ErrCeilingBelowSupply),
		errors.Is(err, domain.ErrCeilingExceeded),
		errors.Is(err, domain.ErrBurnExceedsIssued),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrNonFungibleRemint),
		errors.Is(err, domain.ErrAmountOverflow),
		errors.Is(err, domain.ErrReentrant):
		httpx.WriteError(w, 409, httpx.CodeInvariant, err.Error(), nil)
	default:
		httpx.WriteError(w, 500, httpx.CodeInternal, err.Error(), nil)
	}
}

func (s *server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	if !s.eng.HasRole(roles.Admin, caller) {
		httpx.WriteError(w, 403, httpx.CodeForbidden, "admin role required", nil)
		return
	}
	var req struct {
		Account domain.Address `json:"account"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	if req.Account == domain.ZeroAddress {
		httpx.WriteError(w, 400, httpx.CodeBadRequest, "account is required", nil)
		return
	}
	token := s.creds.Issue(req.Account)
	httpx.WriteJSON(w, 201, map[string]any{
		"request_id": httpx.NewRequestID(),
		"account":    req.Account,
		"credentials": map[string]any{
			"token":      token,
			"token_hint": "store once; not retrievable again",
		},
	})
}

func (s *server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	var req struct {
		Owner domain.Address `json:"owner"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	err := s.eng.CreateTenant(caller, req.Owner)
	countOp("create_tenant", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "tenant": req.Owner})
}

func (s *server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	const endpoint = "POST /projects"
	if s.replayed(w, r, caller, endpoint) {
		return
	}
	var req struct {
		AssetClass domain.AssetClass `json:"asset_class"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	id, err := s.eng.CreateProject(caller, req.AssetClass)
	countOp("create_project", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	proj, _ := s.eng.GetProject(id)
	s.respond(w, r, caller, endpoint, 201, map[string]any{"project": proj})
}

func (s *server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "project_id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadRequest, "project_id must be an integer", nil)
		return
	}
	proj, ok := s.eng.GetProject(id)
	if !ok {
		httpx.WriteError(w, 404, httpx.CodeNotFound, "project does not exist", nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "project": proj})
}

func (s *server) handleLockToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "token_id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadRequest, "token_id must be an integer", nil)
		return
	}
	var req struct {
		Ceiling uint64 `json:"ceiling"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	tok, err := s.eng.LockToken(caller, id, req.Ceiling)
	countOp("lock_token", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "token": tok})
}

func (s *server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "token_id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadRequest, "token_id must be an integer", nil)
		return
	}
	tok, ok := s.eng.GetToken(id)
	if !ok {
		httpx.WriteError(w, 404, httpx.CodeNotFound, "token does not exist", nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{
		"request_id":   httpx.NewRequestID(),
		"token":        tok,
		"metadata_ref": tok.MetadataRef(),
	})
}

func (s *server) handleSupply(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "token_id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadRequest, "token_id must be an integer", nil)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{
		"request_id":   httpx.NewRequestID(),
		"token_id":     id,
		"total_supply": s.eng.TotalSupply(id),
		"exists":       s.eng.Exists(id),
	})
}

type mintNewRequest struct {
	To        domain.Address `json:"to"`
	Amount    uint64         `json:"amount"`
	Ceiling   uint64         `json:"ceiling"`
	Metadata  domain.Digest  `json:"metadata_hash"`
	Locked    bool           `json:"locked"`
	ProjectID uint64         `json:"project_id"`
	Aux       string         `json:"aux,omitempty"`
}

func (s *server) handleMintNew(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	const endpoint = "POST /mint"
	if s.replayed(w, r, caller, endpoint) {
		return
	}
	var req mintNewRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	id, err := s.eng.MintNew(caller, req.To, req.Amount, req.Ceiling, req.Metadata, req.Locked, req.ProjectID, []byte(req.Aux))
	countOp("mint_new", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	tok, _ := s.eng.GetToken(id)
	s.respond(w, r, caller, endpoint, 201, map[string]any{"token": tok})
}

func (s *server) handleMintExisting(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "token_id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadRequest, "token_id must be an integer", nil)
		return
	}
	endpoint := "POST /tokens/" + chi.URLParam(r, "token_id") + "/mint"
	if s.replayed(w, r, caller, endpoint) {
		return
	}
	var req struct {
		To     domain.Address `json:"to"`
		Amount uint64         `json:"amount"`
		Aux    string         `json:"aux,omitempty"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	_, err = s.eng.MintExisting(caller, req.To, id, req.Amount, []byte(req.Aux))
	countOp("mint_existing", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	tok, _ := s.eng.GetToken(id)
	s.respond(w, r, caller, endpoint, 200, map[string]any{"token": tok})
}

func (s *server) handleMintBatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	const endpoint = "POST /mint-batch"
	if s.replayed(w, r, caller, endpoint) {
		return
	}
	var req struct {
		To        domain.Address  `json:"to"`
		Count     uint64          `json:"count"`
		Amounts   []uint64        `json:"amounts"`
		Metadata  []domain.Digest `json:"metadata_hashes"`
		Ceiling   uint64          `json:"ceiling"`
		Locked    bool            `json:"locked"`
		ProjectID uint64          `json:"project_id"`
		Aux       string          `json:"aux,omitempty"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	ids, amounts, err := s.eng.MintBatch(caller, req.To, req.Count, req.Amounts, req.Metadata, req.Ceiling, req.Locked, req.ProjectID, []byte(req.Aux))
	countOp("mint_batch", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	tokens := make([]domain.Token, len(ids))
	for i, id := range ids {
		tokens[i], _ = s.eng.GetToken(id)
	}
	s.respond(w, r, caller, endpoint, 201, map[string]any{
		"token_ids": ids,
		"amounts":   amounts,
		"tokens":    tokens,
	})
}

func (s *server) handleSwap(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	const endpoint = "POST /swap"
	if s.replayed(w, r, caller, endpoint) {
		return
	}
	var req struct {
		From     []domain.Address `json:"from"`
		To       []domain.Address `json:"to"`
		TokenIDs []uint64         `json:"token_ids"`
		Amounts  []uint64         `json:"amounts"`
		Aux      []string         `json:"aux"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	aux := make([][]byte, len(req.Aux))
	for i, a := range req.Aux {
		aux[i] = []byte(a)
	}
	if req.Aux == nil {
		aux = make([][]byte, len(req.From))
	}
	err := s.eng.AtomicSwap(caller, req.From, req.To, req.TokenIDs, req.Amounts, aux)
	countOp("atomic_swap", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.respond(w, r, caller, endpoint, 200, map[string]any{"legs": len(req.From), "status": "COMPLETED"})
}

func (s *server) handleBurn(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	const endpoint = "POST /burn"
	if s.replayed(w, r, caller, endpoint) {
		return
	}
	var req struct {
		From    domain.Address `json:"from"`
		TokenID uint64         `json:"token_id"`
		Amount  uint64         `json:"amount"`
		Aux     string         `json:"aux,omitempty"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	err := s.eng.Burn(caller, req.From, req.TokenID, req.Amount, []byte(req.Aux))
	countOp("burn", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	tok, _ := s.eng.GetToken(req.TokenID)
	s.snapshotTokens(req.TokenID)
	s.respond(w, r, caller, endpoint, 200, map[string]any{"token": tok})
}

func (s *server) handleBurnBatch(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	const endpoint = "POST /burn-batch"
	if s.replayed(w, r, caller, endpoint) {
		return
	}
	var req struct {
		From     domain.Address `json:"from"`
		TokenIDs []uint64       `json:"token_ids"`
		Amounts  []uint64       `json:"amounts"`
		Aux      string         `json:"aux,omitempty"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	err := s.eng.BurnBatch(caller, req.From, req.TokenIDs, req.Amounts, []byte(req.Aux))
	countOp("burn_batch", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.snapshotTokens(req.TokenIDs...)
	s.respond(w, r, caller, endpoint, 200, map[string]any{"burned": len(req.TokenIDs)})
}

func (s *server) handleSetApproval(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	var req struct {
		Operator domain.Address `json:"operator"`
		Approved bool           `json:"approved"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, httpx.CodeBadJSON, err.Error(), nil)
		return
	}
	if err := s.eng.SetApprovalForAll(caller, req.Operator, req.Approved); err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{
		"request_id": httpx.NewRequestID(),
		"owner":      caller,
		"operator":   req.Operator,
		"approved":   req.Approved,
	})
}

func (s *server) handlePause(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	if err := s.eng.Pause(caller); err != nil {
		writeEngineError(w, err)
		return
	}
	s.log.Warn().Str("caller", string(caller)).Msg("system paused")
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "paused": true})
}

func (s *server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.authed(w, r)
	if !ok {
		return
	}
	if err := s.eng.Unpause(caller); err != nil {
		writeEngineError(w, err)
		return
	}
	s.log.Info().Str("caller", string(caller)).Msg("system unpaused")
	httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "paused": false})
}

func (s *server) handleNFTBalances(w http.ResponseWriter, r *http.Request) {
	acct := domain.Address(chi.URLParam(r, "account"))
	ids, balances := s.eng.BalanceNFT(acct)
	if ids == nil {
		ids, balances = []uint64{}, []uint64{}
	}
	httpx.WriteJSON(w, 200, map[string]any{
		"request_id": httpx.NewRequestID(),
		"account":    acct,
		"token_ids":  ids,
		"balances":   balances,
	})
}
