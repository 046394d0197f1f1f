package api

import (
	"net/http"
	"time"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/service"
)

type createSessionRequest struct {
	MultiAccount int     `json:"multiAccount"`
	Notes        *string `json:"notes"`
}

type updateSessionRequest struct {
	Status  *model.SessionStatus `json:"status"`
	EndTime *time.Time           `json:"endTime"`
	Notes   *string              `json:"notes"`
}

type settleSessionRequest struct {
	EndTime      *time.Time           `json:"endTime"`
	Transactions []transactionRequest `json:"transactions"`
}

type settleSessionResponse struct {
	Session      *model.Session       `json:"session"`
	Transactions []*model.Transaction `json:"transactions"`
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	status := model.SessionStatus(r.URL.Query().Get("status"))
	sessions, err := s.deps.Sessions.List(r.Context(), mustUser(r), status, 0)
	if err != nil {
		writeError(w, r, err, "会话不存在", "获取会话列表失败")
		return
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createSessionRequest](w, r)
	if !ok {
		return
	}
	if req.MultiAccount == 0 {
		writeFailure(w, http.StatusBadRequest, "多开数量是必需的")
		return
	}

	created, err := s.deps.Sessions.Start(r.Context(), mustUser(r), req.MultiAccount, req.Notes)
	if err != nil {
		writeError(w, r, err, "会话不存在", "创建会话失败")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[updateSessionRequest](w, r)
	if !ok {
		return
	}

	updated, err := s.deps.Sessions.Update(r.Context(), mustUser(r), id, service.SessionPatch{
		Status:  req.Status,
		EndTime: req.EndTime,
		Notes:   req.Notes,
	})
	if err != nil {
		writeError(w, r, err, "会话不存在", "更新会话失败")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) settleSession(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[settleSessionRequest](w, r)
	if !ok {
		return
	}

	var end time.Time
	if req.EndTime != nil {
		end = *req.EndTime
	}
	userID := mustUser(r)

	resp := settleSessionResponse{Transactions: []*model.Transaction{}}
	var err error
	if len(req.Transactions) == 0 {
		resp.Session, err = s.deps.Sessions.Settle(r.Context(), userID, id, end)
	} else {
		txs := make([]*model.Transaction, len(req.Transactions))
		for i, t := range req.Transactions {
			txs[i] = t.toModel()
		}
		resp.Session, resp.Transactions, err = s.deps.Sessions.SettleWithTransactions(r.Context(), userID, id, end, txs)
	}
	if err != nil {
		writeError(w, r, err, "会话不存在", "结算会话失败")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) archiveSession(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	archived, err := s.deps.Sessions.Archive(r.Context(), mustUser(r), id)
	if err != nil {
		writeError(w, r, err, "会话不存在", "归档会话失败")
		return
	}
	writeJSON(w, http.StatusOK, archived)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.deps.Sessions.Delete(r.Context(), mustUser(r), id); err != nil {
		writeError(w, r, err, "会话不存在", "删除会话失败")
		return
	}
	writeOK(w, "会话删除成功")
}
