package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"benjamins/core"
	"benjamins/native/token"
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
	codePaused         = -32030
	codeInsufficient   = -32031
	codeNotFound       = -32032
	codeTooEarly       = -32033
	codeCapacity       = -32034
)

type Server struct {
	node      *core.Node
	log       *slog.Logger
	authToken string
}

func NewServer(node *core.Node, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	authToken := strings.TrimSpace(os.Getenv("BNJI_RPC_TOKEN"))
	return &Server{node: node, log: log, authToken: authToken}
}

// Router exposes the JSON-RPC endpoint alongside health and metrics probes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/rpc", s.handle)
	return r
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	s.log.Info("starting JSON-RPC server", "addr", addr)
	return srv.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
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

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError translates engine failures into JSON-RPC error envelopes.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, token.ErrPaused):
		writeError(w, http.StatusConflict, id, codePaused, err.Error(), nil)
	case errors.Is(err, token.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, token.ErrNotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, err.Error(), nil)
	case errors.Is(err, token.ErrTooEarly):
		writeError(w, http.StatusConflict, id, codeTooEarly, err.Error(), nil)
	case errors.Is(err, token.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, id, codeCapacity, err.Error(), nil)
	case errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientFunds),
		errors.Is(err, token.ErrInsufficientAllowance):
		writeError(w, http.StatusConflict, id, codeInsufficient, err.Error(), nil)
	case errors.Is(err, token.ErrDisallowedAsset):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	requestID := uuid.NewString()
	s.log.Debug("rpc request", "requestId", requestID, "method", req.Method)

	switch req.Method {
	case "bnji_quote":
		s.handleQuote(w, r, req)
	case "bnji_mint":
		s.handleMint(w, r, req)
	case "bnji_mintTo":
		s.handleMintTo(w, r, req)
	case "bnji_burn":
		s.handleBurn(w, r, req)
	case "bnji_burnTo":
		s.handleBurnTo(w, r, req)
	case "bnji_transfer":
		s.handleTransfer(w, r, req)
	case "bnji_transferFrom":
		s.handleTransferFrom(w, r, req)
	case "bnji_createLockbox":
		s.handleCreateLockbox(w, r, req)
	case "bnji_openLockbox":
		s.handleOpenLockbox(w, r, req)
	case "bnji_increaseLevels":
		s.handleIncreaseLevels(w, r, req)
	case "bnji_releaseCommitment":
		s.handleReleaseCommitment(w, r, req)
	case "bnji_cleanTips":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleCleanTips(w, r, req)
	case "bnji_pause":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handlePause(w, r, req, true)
	case "bnji_unpause":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handlePause(w, r, req, false)
	case "bnji_setBlockHeight":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleSetBlockHeight(w, r, req)
	case "bnji_getBalance":
		s.handleGetBalance(w, r, req)
	case "bnji_getPaymentBalance":
		s.handleGetPaymentBalance(w, r, req)
	case "bnji_getSupply":
		s.handleGetSupply(w, r, req)
	case "bnji_getDiscountInfo":
		s.handleGetDiscountInfo(w, r, req)
	case "bnji_getLockbox":
		s.handleGetLockbox(w, r, req)
	case "bnji_getLockboxIDs":
		s.handleGetLockboxIDs(w, r, req)
	case "bnji_blocksUntilUnlock":
		s.handleBlocksUntilUnlock(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	bearer := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if bearer == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(bearer), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}
