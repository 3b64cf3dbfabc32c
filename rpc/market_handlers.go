package rpc

import (
	"math/big"
	"net/http"
	"time"

	"marketd/native/market"
)

type withdrawItemRequest struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	ItemID     string `json:"item_id"`
}

type withdrawBidRequest struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	ItemID     string `json:"item_id"`
}

type withdrawCoinRequest struct {
	Caller string   `json:"caller"`
	Token  string   `json:"token"`
	Amount *big.Int `json:"amount"`
}

type coinDepositsResponse struct {
	Deposits []*market.CoinDeposit `json:"deposits"`
}

type itemDepositsResponse struct {
	Deposits []*market.ItemDeposit `json:"deposits"`
}

type bidResponse struct {
	Bid *market.Bid `json:"bid"`
}

func (s *Server) observe(action string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.Observe(action, outcome, time.Since(start))
}

func (s *Server) handleCoinNotice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var notice market.CoinTransferNotice
	if err := decodeBody(r, &notice); err != nil {
		s.observe("notify_coin", start, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	receipt, err := s.engine.HandleCoinTransfer(notice)
	s.observe("notify_coin", start, err)
	if err != nil {
		s.writeError(w, "notify_coin", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleItemNotice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var notice market.ItemTransferNotice
	if err := decodeBody(r, &notice); err != nil {
		s.observe("notify_item", start, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	receipt, err := s.engine.HandleItemTransfer(notice)
	s.observe("notify_item", start, err)
	if err != nil {
		s.writeError(w, "notify_item", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleWithdrawItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req withdrawItemRequest
	if err := decodeBody(r, &req); err != nil {
		s.observe("withdraw_item", start, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	instrs, err := s.engine.WithdrawItem(req.Caller, req.Collection, req.ItemID)
	s.observe("withdraw_item", start, err)
	if err != nil {
		s.writeError(w, "withdraw_item", err)
		return
	}
	writeJSON(w, http.StatusOK, market.Receipt{Action: "withdraw_item", Instructions: instrs})
}

func (s *Server) handleWithdrawBid(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req withdrawBidRequest
	if err := decodeBody(r, &req); err != nil {
		s.observe("withdraw_bid", start, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	instrs, err := s.engine.WithdrawBid(req.Caller, req.Collection, req.ItemID)
	s.observe("withdraw_bid", start, err)
	if err != nil {
		s.writeError(w, "withdraw_bid", err)
		return
	}
	writeJSON(w, http.StatusOK, market.Receipt{Action: "withdraw_bid", Instructions: instrs})
}

func (s *Server) handleWithdrawCoin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req withdrawCoinRequest
	if err := decodeBody(r, &req); err != nil {
		s.observe("withdraw_coin", start, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	_, instrs, err := s.engine.WithdrawCoin(req.Caller, req.Token, req.Amount)
	s.observe("withdraw_coin", start, err)
	if err != nil {
		s.writeError(w, "withdraw_coin", err)
		return
	}
	writeJSON(w, http.StatusOK, market.Receipt{Action: "withdraw_coin", Instructions: instrs})
}

func (s *Server) handleCoinDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := s.engine.CoinDeposits(r.URL.Query().Get("owner"))
	if err != nil {
		s.writeError(w, "query_coin_deposits", err)
		return
	}
	writeJSON(w, http.StatusOK, coinDepositsResponse{Deposits: deposits})
}

func (s *Server) handleItemDeposits(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	deposits, err := s.engine.ItemDeposits(query.Get("owner"), query.Get("collection"))
	if err != nil {
		s.writeError(w, "query_item_deposits", err)
		return
	}
	writeJSON(w, http.StatusOK, itemDepositsResponse{Deposits: deposits})
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	bid, ok, err := s.engine.Bid(query.Get("collection"), query.Get("item_id"))
	if err != nil {
		s.writeError(w, "query_bid", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, bidResponse{})
		return
	}
	writeJSON(w, http.StatusOK, bidResponse{Bid: bid})
}
