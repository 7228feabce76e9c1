package rpc

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	nativecommon "pointsale/native/common"
	"pointsale/native/settle"
)

type settleClaimParams struct {
	EntitlementID string   `json:"entitlementId"`
	TotalClaim    string   `json:"totalClaimable"`
	AmountToClaim string   `json:"amountToClaim"`
	Proof         []string `json:"proof,omitempty"`
}

type settleExecuteParams struct {
	PointToken     string              `json:"pointToken"`
	OutputToken    string              `json:"outputToken"`
	Accounts       []string            `json:"accounts"`
	Claims         []settleClaimParams `json:"claims"`
	PriceFloor     string              `json:"priceFloor"`
	ExchangeParams string              `json:"exchangeParams,omitempty"`
}

type settlePayoutResult struct {
	Account   string `json:"account"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type settleExecuteResult struct {
	ID           string               `json:"id"`
	TotalClaimed string               `json:"totalClaimed"`
	AmountOut    string               `json:"amountOut"`
	FeeAmount    string               `json:"feeAmount"`
	Dust         string               `json:"dust"`
	Payouts      []settlePayoutResult `json:"payouts"`
}

func parseHash32(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != 32 {
		return out, fmt.Errorf("invalid 32-byte hex value %q", value)
	}
	copy(out[:], decoded)
	return out, nil
}

func (params settleExecuteParams) toBatch() (settle.BatchRequest, error) {
	req := settle.BatchRequest{
		PointToken:  params.PointToken,
		OutputToken: params.OutputToken,
	}
	req.Accounts = make([][20]byte, len(params.Accounts))
	for i, raw := range params.Accounts {
		account, err := parseAddress(raw)
		if err != nil {
			return settle.BatchRequest{}, err
		}
		req.Accounts[i] = account
	}
	req.Claims = make([]settle.Claim, len(params.Claims))
	for i, raw := range params.Claims {
		entitlement, err := parseHash32(raw.EntitlementID)
		if err != nil {
			return settle.BatchRequest{}, err
		}
		total, err := parseAmount(raw.TotalClaim)
		if err != nil {
			return settle.BatchRequest{}, err
		}
		amount, err := parseAmount(raw.AmountToClaim)
		if err != nil {
			return settle.BatchRequest{}, err
		}
		claim := settle.Claim{EntitlementID: entitlement, TotalClaimable: total, AmountToClaim: amount}
		claim.Proof = make([][32]byte, len(raw.Proof))
		for j, node := range raw.Proof {
			parsed, err := parseHash32(node)
			if err != nil {
				return settle.BatchRequest{}, err
			}
			claim.Proof[j] = parsed
		}
		req.Claims[i] = claim
	}
	floor, err := parseAmount(params.PriceFloor)
	if err != nil {
		return settle.BatchRequest{}, err
	}
	req.PriceFloor = floor
	if params.ExchangeParams != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(params.ExchangeParams, "0x"))
		if err != nil {
			return settle.BatchRequest{}, fmt.Errorf("invalid exchange params hex")
		}
		req.ExchangeParams = raw
	}
	return req, nil
}

func (s *Server) handleSettleExecute(w http.ResponseWriter, req *RPCRequest) {
	if s == nil || s.settlement == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "settlement engine unavailable", nil)
		return
	}
	var params settleExecuteParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	batch, err := params.toBatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.settlement.ExecuteSale(s.operator, batch)
	if err != nil {
		s.metrics.ObserveFailure()
		s.log.Error("settlement aborted", "pointToken", params.PointToken, "outputToken", params.OutputToken, "error", err)
		writeError(w, http.StatusBadRequest, req.ID, errorCode(err), err.Error(), nil)
		return
	}
	pair := result.PointToken + "/" + result.OutputToken
	s.metrics.ObserveSuccess(pair, len(result.Payouts), result.AmountOut, result.FeeAmount, result.Dust)
	s.log.Info("settlement completed",
		"pair", pair,
		"accounts", len(batch.Accounts),
		"totalClaimed", result.TotalClaimed.String(),
		"amountOut", result.AmountOut.String(),
		"fee", result.FeeAmount.String(),
	)
	out := settleExecuteResult{
		ID:           "0x" + hex.EncodeToString(result.ID[:]),
		TotalClaimed: result.TotalClaimed.String(),
		AmountOut:    result.AmountOut.String(),
		FeeAmount:    result.FeeAmount.String(),
		Dust:         result.Dust.String(),
		Payouts:      make([]settlePayoutResult, len(result.Payouts)),
	}
	for i, payout := range result.Payouts {
		out.Payouts[i] = settlePayoutResult{
			Account:   formatAddress(payout.Account),
			Recipient: formatAddress(payout.Recipient),
			Amount:    payout.Amount.String(),
		}
	}
	writeResult(w, req.ID, out)
}

type pauseParams struct {
	Module string `json:"module"`
}

func (s *Server) handleSetPaused(w http.ResponseWriter, req *RPCRequest, paused bool) {
	if s == nil || s.pauses == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "pause switchboard unavailable", nil)
		return
	}
	var params pauseParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	module := strings.ToLower(strings.TrimSpace(params.Module))
	switch module {
	case nativecommon.ModulePrefs, nativecommon.ModuleFees, nativecommon.ModuleSettle:
	default:
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, fmt.Sprintf("unknown module %q", params.Module), nil)
		return
	}
	s.pauses.SetPaused(module, paused)
	writeResult(w, req.ID, map[string]interface{}{"module": module, "paused": paused})
}
