package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"benjamins/native/token"
)

type addressParams struct {
	Address string `json:"address"`
}

type amountParams struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

type mintToParams struct {
	Caller    string `json:"caller"`
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
}

type transferParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type transferFromParams struct {
	Caller    string `json:"caller"`
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type quoteParams struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
	Mint   bool   `json:"mint"`
}

type createLockboxParams struct {
	Caller         string `json:"caller"`
	Amount         uint64 `json:"amount"`
	DurationBlocks uint64 `json:"durationBlocks"`
	Label          string `json:"label,omitempty"`
}

type lockboxRefParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
}

type lockboxQueryParams struct {
	Owner string `json:"owner"`
	ID    uint64 `json:"id"`
}

type increaseLevelsParams struct {
	Caller string `json:"caller"`
	Levels uint32 `json:"levels"`
}

type cleanTipsParams struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
}

type pauseParams struct {
	Caller string `json:"caller"`
}

type setHeightParams struct {
	Height uint64 `json:"height"`
}

type quoteResult struct {
	PrincipalCents  string `json:"principalCents"`
	FeeCents        string `json:"feeCents"`
	TotalCents      string `json:"totalCents"`
	TotalMinorUnits string `json:"totalMinorUnits"`
}

type balanceResult struct {
	Address    string `json:"address"`
	Balance    uint64 `json:"balance"`
	LockedBNJI uint64 `json:"lockedBNJI"`
}

type paymentBalanceResult struct {
	Address      string `json:"address"`
	BalanceCents string `json:"balanceCents"`
}

type supplyResult struct {
	TotalSupply uint64 `json:"totalSupply"`
	BlockHeight uint64 `json:"blockHeight"`
	Paused      bool   `json:"paused"`
}

type lockboxResult struct {
	ID             uint64 `json:"id"`
	Owner          string `json:"owner"`
	Amount         uint64 `json:"amount"`
	DurationBlocks uint64 `json:"durationBlocks"`
	Score          uint64 `json:"score"`
	CreatedAt      uint64 `json:"createdAt"`
	UnlockHeight   uint64 `json:"unlockHeight"`
	Label          string `json:"label,omitempty"`
}

type lockboxIDsResult struct {
	Owner string   `json:"owner"`
	IDs   []uint64 `json:"ids"`
	Count uint8    `json:"count"`
}

type createLockboxResult struct {
	ID uint64 `json:"id"`
}

type releasedResult struct {
	Amount uint64 `json:"amount"`
}

type sweptResult struct {
	Asset      string `json:"asset"`
	SweptCents string `json:"sweptCents"`
}

type blocksUntilUnlockResult struct {
	ID     uint64 `json:"id"`
	Blocks uint64 `json:"blocks"`
}

type pauseResult struct {
	Paused bool `json:"paused"`
}

type heightResult struct {
	Height uint64 `json:"height"`
}

type ackResult struct {
	OK bool `json:"ok"`
}

func decodeAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("address required")
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", trimmed)
	}
	return common.HexToAddress(trimmed), nil
}

func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "expected parameter object", nil)
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return false
	}
	return true
}

func quoteResponse(q *token.Quote) quoteResult {
	return quoteResult{
		PrincipalCents:  q.PrincipalCents.String(),
		FeeCents:        q.FeeCents.String(),
		TotalCents:      q.TotalCents.String(),
		TotalMinorUnits: q.TotalMinorUnits.String(),
	}
}

func (s *Server) handleQuote(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params quoteParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	quote, err := s.node.QuoteUSDC(caller, params.Amount, params.Mint)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, quoteResponse(quote))
}

func (s *Server) handleMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params amountParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	quote, err := s.node.Mint(caller, params.Amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, quoteResponse(quote))
}

func (s *Server) handleMintTo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params mintToParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	recipient, err := decodeAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient", err.Error())
		return
	}
	quote, err := s.node.MintTo(caller, params.Amount, recipient)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, quoteResponse(quote))
}

func (s *Server) handleBurn(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params amountParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	quote, err := s.node.Burn(caller, params.Amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, quoteResponse(quote))
}

func (s *Server) handleBurnTo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params mintToParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	recipient, err := decodeAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient", err.Error())
		return
	}
	quote, err := s.node.BurnTo(caller, params.Amount, recipient)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, quoteResponse(quote))
}

func (s *Server) handleTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params transferParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	recipient, err := decodeAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient", err.Error())
		return
	}
	if err := s.node.Transfer(caller, recipient, params.Amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleTransferFrom(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params transferFromParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	owner, err := decodeAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner", err.Error())
		return
	}
	recipient, err := decodeAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient", err.Error())
		return
	}
	if err := s.node.TransferFrom(caller, owner, recipient, params.Amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleCreateLockbox(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params createLockboxParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	id, err := s.node.CreateLockbox(caller, params.Amount, params.DurationBlocks, params.Label)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, createLockboxResult{ID: id})
}

func (s *Server) handleOpenLockbox(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params lockboxRefParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	if err := s.node.OpenAndDestroyLockbox(caller, params.ID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleIncreaseLevels(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params increaseLevelsParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	if params.Levels == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "levels must be positive", nil)
		return
	}
	if err := s.node.IncreaseDiscountLevels(caller, params.Levels); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackResult{OK: true})
}

func (s *Server) handleReleaseCommitment(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params pauseParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	amount, err := s.node.ReleaseLevelCommitment(caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, releasedResult{Amount: amount})
}

func (s *Server) handleCleanTips(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params cleanTipsParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	asset, err := decodeAddress(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid asset", err.Error())
		return
	}
	swept, err := s.node.CleanTips(caller, asset)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, sweptResult{Asset: asset.Hex(), SweptCents: swept.String()})
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request, req *RPCRequest, pause bool) {
	var params pauseParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	if pause {
		err = s.node.Pause(caller)
	} else {
		err = s.node.Unpause(caller)
	}
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, pauseResult{Paused: pause})
}

func (s *Server) handleSetBlockHeight(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params setHeightParams
	if !decodeParams(w, req, &params) {
		return
	}
	s.node.SetBlockHeight(params.Height)
	writeResult(w, req.ID, heightResult{Height: s.node.BlockHeight()})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := decodeAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	balance, err := s.node.BalanceOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	locked, err := s.node.LockedBalanceOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Address: addr.Hex(), Balance: balance, LockedBNJI: locked})
}

func (s *Server) handleGetPaymentBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := decodeAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	balance, err := s.node.PaymentBalanceOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, paymentBalanceResult{Address: addr.Hex(), BalanceCents: balance.String()})
}

func (s *Server) handleGetSupply(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	supply, err := s.node.TotalSupply()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, supplyResult{
		TotalSupply: supply,
		BlockHeight: s.node.BlockHeight(),
		Paused:      s.node.Paused(),
	})
}

func (s *Server) handleGetDiscountInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := decodeAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	info, err := s.node.DiscountInfoOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, info)
}

func (s *Server) handleGetLockbox(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params lockboxQueryParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, err := decodeAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner", err.Error())
		return
	}
	box, err := s.node.LockboxByID(owner, params.ID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, lockboxResult{
		ID:             box.ID,
		Owner:          box.Owner.Hex(),
		Amount:         box.Amount,
		DurationBlocks: box.DurationBlocks,
		Score:          box.Score,
		CreatedAt:      box.CreatedAt,
		UnlockHeight:   box.UnlockHeight(),
		Label:          box.Label,
	})
}

func (s *Server) handleGetLockboxIDs(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, err := decodeAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	ids, err := s.node.LockboxIDs(owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	count, err := s.node.LockboxCount(owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	slots := make([]uint64, len(ids))
	copy(slots, ids[:])
	writeResult(w, req.ID, lockboxIDsResult{Owner: owner.Hex(), IDs: slots, Count: count})
}

func (s *Server) handleBlocksUntilUnlock(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params lockboxQueryParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, err := decodeAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner", err.Error())
		return
	}
	blocks, err := s.node.BlocksUntilUnlock(owner, params.ID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, blocksUntilUnlockResult{ID: params.ID, Blocks: blocks})
}
