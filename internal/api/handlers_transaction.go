package api

import (
	"net/http"
	"strconv"
	"time"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/service"
)

type transactionRequest struct {
	Type      model.TxType   `json:"type"`
	Category  model.Category `json:"category"`
	Amount    float64        `json:"amount"`
	Item      *string        `json:"item"`
	Notes     *string        `json:"notes"`
	SessionID *int64         `json:"sessionId"`
	CreatedAt *time.Time     `json:"createdAt"`
}

func (t transactionRequest) toModel() *model.Transaction {
	tx := &model.Transaction{
		Type:      t.Type,
		Category:  t.Category,
		Amount:    t.Amount,
		Item:      t.Item,
		Notes:     t.Notes,
		SessionID: t.SessionID,
	}
	if t.CreatedAt != nil {
		tx.CreatedAt = *t.CreatedAt
	}
	return tx
}

type updateTransactionRequest struct {
	Type      *model.TxType   `json:"type"`
	Category  *model.Category `json:"category"`
	Amount    *float64        `json:"amount"`
	Item      *string         `json:"item"`
	Notes     *string         `json:"notes"`
	SessionID *int64          `json:"sessionId"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type transactionListResponse struct {
	Transactions []*model.Transaction `json:"transactions"`
	Pagination   pagination           `json:"pagination"`
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TransactionFilter{
		Type:     model.TxType(q.Get("type")),
		Category: model.Category(q.Get("category")),
	}
	if v := q.Get("sessionId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "无效的会话ID")
			return
		}
		filter.SessionID = &id
	}
	rng, err := service.ParseDateRange(q.Get("startDate"), q.Get("endDate"), s.deps.Dashboard.Location())
	if err != nil {
		writeError(w, r, err, "", "获取交易记录失败")
		return
	}
	filter.Range = rng

	page, err := queryInt(r, "page")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的页码")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的每页数量")
		return
	}

	result, err := s.deps.Transactions.List(r.Context(), mustUser(r), filter, page, limit)
	if err != nil {
		writeError(w, r, err, "", "获取交易记录失败")
		return
	}
	txs := result.Transactions
	if txs == nil {
		txs = []*model.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionListResponse{
		Transactions: txs,
		Pagination: pagination{
			Page:  result.Page,
			Limit: result.Limit,
			Total: result.Total,
			Pages: result.Pages,
		},
	})
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[transactionRequest](w, r)
	if !ok {
		return
	}
	if req.Type == "" || req.Category == "" {
		writeFailure(w, http.StatusBadRequest, "类型、分类和金额是必需的")
		return
	}

	created, err := s.deps.Transactions.Create(r.Context(), mustUser(r), req.toModel())
	if err != nil {
		writeError(w, r, err, "交易记录不存在", "创建交易记录失败")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) createTransactionBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[[]transactionRequest](w, r)
	if !ok {
		return
	}
	if len(req) == 0 {
		writeFailure(w, http.StatusBadRequest, "请提供有效的交易记录数据")
		return
	}

	txs := make([]*model.Transaction, len(req))
	for i, t := range req {
		txs[i] = t.toModel()
	}
	created, err := s.deps.Transactions.CreateBatch(r.Context(), mustUser(r), txs)
	if err != nil {
		writeError(w, r, err, "交易记录不存在", "批量创建交易记录失败")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[updateTransactionRequest](w, r)
	if !ok {
		return
	}
	upd := model.TransactionUpdate{
		Type:      req.Type,
		Category:  req.Category,
		Amount:    req.Amount,
		Item:      req.Item,
		Notes:     req.Notes,
		SessionID: req.SessionID,
	}
	if upd.IsEmpty() {
		writeFailure(w, http.StatusBadRequest, "没有需要更新的字段")
		return
	}

	updated, err := s.deps.Transactions.Update(r.Context(), mustUser(r), id, upd)
	if err != nil {
		writeError(w, r, err, "交易记录不存在", "更新交易记录失败")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.deps.Transactions.Delete(r.Context(), mustUser(r), id); err != nil {
		writeError(w, r, err, "交易记录不存在", "删除交易记录失败")
		return
	}
	writeOK(w, "交易记录删除成功")
}
