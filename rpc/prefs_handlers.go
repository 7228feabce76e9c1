package rpc

import (
	"math/big"
	"net/http"
)

type prefsSetParams struct {
	Account   string   `json:"account"`
	Recipient string   `json:"recipient,omitempty"`
	Tokens    []string `json:"tokens"`
	MinPrices []string `json:"minPrices"`
}

// handlePrefsSet mutates an account's preferences on behalf of the
// authenticated caller. The caller identity comes from the bearer token, and
// the engine still enforces that it is the account or its sole controller.
func (s *Server) handlePrefsSet(w http.ResponseWriter, req *RPCRequest, caller [20]byte) {
	if s == nil || s.prefs == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "preference engine unavailable", nil)
		return
	}
	var params prefsSetParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var recipient *[20]byte
	if params.Recipient != "" {
		parsed, err := parseAddress(params.Recipient)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		recipient = &parsed
	}
	minPrices := make([]*big.Int, len(params.MinPrices))
	for i, raw := range params.MinPrices {
		price, err := parseAmount(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		minPrices[i] = price
	}
	if err := s.prefs.SetPreferences(caller, account, recipient, params.Tokens, minPrices); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, errorCode(err), err.Error(), nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

type prefsQueryParams struct {
	Account string `json:"account"`
	Token   string `json:"token,omitempty"`
}

type prefsMinPriceResult struct {
	Account  string `json:"account"`
	Token    string `json:"token"`
	MinPrice string `json:"minPrice"`
}

func (s *Server) handlePrefsGetMinPrice(w http.ResponseWriter, req *RPCRequest) {
	if s == nil || s.prefs == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "preference engine unavailable", nil)
		return
	}
	var params prefsQueryParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	price, err := s.prefs.MinPrice(account, params.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, errorCode(err), err.Error(), nil)
		return
	}
	writeResult(w, req.ID, prefsMinPriceResult{
		Account:  params.Account,
		Token:    params.Token,
		MinPrice: price.String(),
	})
}

type prefsRecipientResult struct {
	Account   string `json:"account"`
	Recipient string `json:"recipient,omitempty"`
}

func (s *Server) handlePrefsGetRecipient(w http.ResponseWriter, req *RPCRequest) {
	if s == nil || s.prefs == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "preference engine unavailable", nil)
		return
	}
	var params prefsQueryParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := s.prefs.Recipient(account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, errorCode(err), err.Error(), nil)
		return
	}
	result := prefsRecipientResult{Account: params.Account}
	if recipient != nil {
		result.Recipient = formatAddress(*recipient)
	}
	writeResult(w, req.ID, result)
}
