package rpc

import "net/http"

type feesSetRateParams struct {
	RateBps uint32 `json:"rateBps"`
}

func (s *Server) handleFeesSetRate(w http.ResponseWriter, req *RPCRequest) {
	if s == nil || s.feeCtrl == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "fee controller unavailable", nil)
		return
	}
	var params feesSetRateParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.feeCtrl.SetRate(s.governance, params.RateBps); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, errorCode(err), err.Error(), nil)
		return
	}
	writeResult(w, req.ID, map[string]uint32{"rateBps": params.RateBps})
}

type feesRateResult struct {
	RateBps uint32 `json:"rateBps"`
	MaxBps  uint32 `json:"maxBps"`
}

func (s *Server) handleFeesGetRate(w http.ResponseWriter, req *RPCRequest) {
	if s == nil || s.feeCtrl == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "fee controller unavailable", nil)
		return
	}
	rate, err := s.feeCtrl.Rate()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, feesRateResult{RateBps: rate, MaxBps: s.feeCtrl.MaxRateBps()})
}
