package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	nativecommon "pointsale/native/common"
	"pointsale/native/fees"
	"pointsale/native/prefs"
	"pointsale/native/settle"
	"pointsale/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// RPCRequest is the JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

// RPCResponse is the JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Server exposes the administrative settlement surface over JSON-RPC.
type Server struct {
	prefs      *prefs.Engine
	feeCtrl    *fees.Controller
	settlement *settle.Engine
	pauses     *nativecommon.Pauses

	operator   [20]byte
	governance [20]byte

	operatorToken   string
	governanceToken string

	log     *slog.Logger
	metrics *metrics.SettlementMetrics
}

// ServerConfig wires the server's collaborators and credentials.
type ServerConfig struct {
	Prefs           *prefs.Engine
	FeeController   *fees.Controller
	Settlement      *settle.Engine
	Pauses          *nativecommon.Pauses
	Operator        [20]byte
	Governance      [20]byte
	OperatorToken   string
	GovernanceToken string
	Log             *slog.Logger
}

// NewServer constructs the RPC server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Log
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		prefs:           cfg.Prefs,
		feeCtrl:         cfg.FeeController,
		settlement:      cfg.Settlement,
		pauses:          cfg.Pauses,
		operator:        cfg.Operator,
		governance:      cfg.Governance,
		operatorToken:   cfg.OperatorToken,
		governanceToken: cfg.GovernanceToken,
		log:             logger,
		metrics:         metrics.Settlement(),
	}
}

// Router returns the HTTP handler exposing /rpc, /healthz, and /metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/rpc", s.handleRPC)
	return r
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", nil)
		return
	}
	if req.JSONRPC != jsonRPCVersion || strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid JSON-RPC request", nil)
		return
	}
	switch req.Method {
	case "prefs_set":
		caller, rpcErr := s.authenticateCaller(r)
		if rpcErr != nil {
			writeRPCError(w, req.ID, rpcErr)
			return
		}
		s.handlePrefsSet(w, &req, caller)
	case "prefs_getMinPrice":
		s.handlePrefsGetMinPrice(w, &req)
	case "prefs_getRecipient":
		s.handlePrefsGetRecipient(w, &req)
	case "fees_setRate":
		if rpcErr := s.requireAuth(r, s.governanceToken); rpcErr != nil {
			writeRPCError(w, req.ID, rpcErr)
			return
		}
		s.handleFeesSetRate(w, &req)
	case "fees_getRate":
		s.handleFeesGetRate(w, &req)
	case "settle_execute":
		if rpcErr := s.requireAuth(r, s.operatorToken); rpcErr != nil {
			writeRPCError(w, req.ID, rpcErr)
			return
		}
		s.handleSettleExecute(w, &req)
	case "settle_pause":
		if rpcErr := s.requireAuth(r, s.governanceToken); rpcErr != nil {
			writeRPCError(w, req.ID, rpcErr)
			return
		}
		s.handleSetPaused(w, &req, true)
	case "settle_resume":
		if rpcErr := s.requireAuth(r, s.governanceToken); rpcErr != nil {
			writeRPCError(w, req.ID, rpcErr)
			return
		}
		s.handleSetPaused(w, &req, false)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

// bearerToken extracts the request's bearer credential.
func bearerToken(r *http.Request) (string, *RPCError) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	return token, nil
}

// requireAuth accepts the request when the bearer token matches any of the
// supplied credentials.
func (s *Server) requireAuth(r *http.Request, tokens ...string) *RPCError {
	token, rpcErr := bearerToken(r)
	if rpcErr != nil {
		return rpcErr
	}
	for _, candidate := range tokens {
		if candidate == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			return nil
		}
	}
	return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
}

// authenticateCaller maps the request's bearer token onto the configured
// identity it represents. The caller identity is never read from the request
// body, so a credential holder cannot act as an arbitrary account.
func (s *Server) authenticateCaller(r *http.Request) ([20]byte, *RPCError) {
	token, rpcErr := bearerToken(r)
	if rpcErr != nil {
		return [20]byte{}, rpcErr
	}
	if s.operatorToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.operatorToken)) == 1 {
		return s.operator, nil
	}
	if s.governanceToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.governanceToken)) == 1 {
		return s.governance, nil
	}
	return [20]byte{}, &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeRPCError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	status := http.StatusBadRequest
	if rpcErr.Code == codeUnauthorized {
		status = http.StatusUnauthorized
	}
	writeError(w, status, id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one params object")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !ethcommon.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid address %q", value)
	}
	return [20]byte(ethcommon.HexToAddress(trimmed)), nil
}

func formatAddress(addr [20]byte) string {
	return ethcommon.BytesToAddress(addr[:]).Hex()
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

// errorCode maps engine failures onto JSON-RPC error codes. Authorization
// failures surface as unauthorized; everything the operator can correct in
// the request body surfaces as invalid params.
func errorCode(err error) int {
	switch {
	case errors.Is(err, settle.ErrNotAuthorized),
		errors.Is(err, fees.ErrNotAuthorized),
		errors.Is(err, prefs.ErrNotAuthorized):
		return codeUnauthorized
	case errors.Is(err, settle.ErrArrayLengthMismatch),
		errors.Is(err, settle.ErrMinPriceTooLow),
		errors.Is(err, settle.ErrMultipleOwners),
		errors.Is(err, settle.ErrEmptyBatch),
		errors.Is(err, settle.ErrOverflow),
		errors.Is(err, settle.ErrInvalidToken),
		errors.Is(err, settle.ErrInvalidAmount),
		errors.Is(err, settle.ErrInvalidAccount),
		errors.Is(err, prefs.ErrArrayLengthMismatch),
		errors.Is(err, prefs.ErrMultipleOwners),
		errors.Is(err, prefs.ErrInvalidAccount),
		errors.Is(err, prefs.ErrInvalidToken),
		errors.Is(err, prefs.ErrNegativePrice),
		errors.Is(err, fees.ErrFeeTooLarge):
		return codeInvalidParams
	default:
		return codeServerError
	}
}
