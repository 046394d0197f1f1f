package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"game-ledger-bot/internal/model"
	"game-ledger-bot/internal/service"
)

// clientID is a record ID assigned by a client; exports carry numbers or strings.
type clientID string

func (c *clientID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = clientID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = clientID(n.String())
	return nil
}

type migrateSession struct {
	ID            clientID            `json:"id"`
	StartTime     time.Time           `json:"startTime"`
	EndTime       *time.Time          `json:"endTime"`
	DurationHours float64             `json:"durationHours"`
	MultiAccount  int                 `json:"multiAccount"`
	PointCardCost float64             `json:"pointCardCost"`
	Status        model.SessionStatus `json:"status"`
	Notes         *string             `json:"notes"`
}

type migrateTransaction struct {
	transactionRequest
	SessionID clientID `json:"sessionId"`
}

type migrateRequest struct {
	Sessions     *[]migrateSession     `json:"sessions"`
	Transactions *[]migrateTransaction `json:"transactions"`
	Assets       *[]assetRequest       `json:"assets"`
}

type migrateResults struct {
	Sessions     service.ImportCounter `json:"sessions"`
	Transactions service.ImportCounter `json:"transactions"`
	Assets       service.ImportCounter `json:"assets"`
}

type migrateSummary struct {
	TotalMigrated int `json:"totalMigrated"`
	TotalFailed   int `json:"totalFailed"`
}

type migrateResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	ImportID string         `json:"importId"`
	Results  migrateResults `json:"results"`
	Summary  migrateSummary `json:"summary"`
}

func (req migrateRequest) toImportData() service.ImportData {
	var data service.ImportData
	for _, s := range *req.Sessions {
		data.Sessions = append(data.Sessions, service.ImportSession{
			ClientID: string(s.ID),
			Session: model.Session{
				StartTime:     s.StartTime,
				EndTime:       s.EndTime,
				DurationHours: s.DurationHours,
				MultiAccount:  s.MultiAccount,
				PointCardCost: s.PointCardCost,
				Status:        s.Status,
				Notes:         s.Notes,
			},
		})
	}
	for _, t := range *req.Transactions {
		tx := t.transactionRequest
		tx.SessionID = nil
		data.Transactions = append(data.Transactions, service.ImportTransaction{
			ClientSessionID: string(t.SessionID),
			Transaction:     *tx.toModel(),
		})
	}
	for _, a := range *req.Assets {
		data.Assets = append(data.Assets, model.Asset{
			Name:        a.Name,
			Type:        a.Type,
			Value:       a.Value,
			Quantity:    a.Quantity,
			Description: a.Description,
		})
	}
	return data
}

func (s *Server) migrate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[migrateRequest](w, r)
	if !ok {
		return
	}
	if req.Sessions == nil || req.Transactions == nil || req.Assets == nil {
		writeFailure(w, http.StatusBadRequest, "迁移数据不完整")
		return
	}

	result, err := s.deps.Importer.Import(r.Context(), mustUser(r), req.toImportData())
	if err != nil {
		writeError(w, r, err, "", "数据迁移失败")
		return
	}
	writeJSON(w, http.StatusOK, migrateResponse{
		Success:  true,
		Message:  "数据迁移完成",
		ImportID: result.ID,
		Results: migrateResults{
			Sessions:     result.Sessions,
			Transactions: result.Transactions,
			Assets:       result.Assets,
		},
		Summary: migrateSummary{
			TotalMigrated: result.TotalMigrated(),
			TotalFailed:   result.TotalFailed(),
		},
	})
}

type exportData struct {
	Sessions     []*model.Session     `json:"sessions"`
	Transactions []*model.Transaction `json:"transactions"`
	Assets       []assetResponse      `json:"assets"`
}

type exportResponse struct {
	ExportTime time.Time  `json:"exportTime"`
	UserID     string     `json:"user"`
	Data       exportData `json:"data"`
}

// export returns every record of the owner in the shape migrate accepts.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	userID := mustUser(r)
	resp := exportResponse{ExportTime: time.Now().UTC(), UserID: strconv.FormatInt(userID, 10)}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		sessions, err := s.deps.Sessions.List(ctx, userID, "", 0)
		resp.Data.Sessions = sessions
		return err
	})
	g.Go(func() error {
		for page := 1; ; page++ {
			result, err := s.deps.Transactions.List(ctx, userID, model.TransactionFilter{}, page, service.MaxPageLimit)
			if err != nil {
				return err
			}
			resp.Data.Transactions = append(resp.Data.Transactions, result.Transactions...)
			if page >= result.Pages {
				return nil
			}
		}
	})
	g.Go(func() error {
		assets, err := s.deps.Assets.List(ctx, userID, "")
		for _, a := range assets {
			resp.Data.Assets = append(resp.Data.Assets, newAssetResponse(a))
		}
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err, "", "数据导出失败")
		return
	}

	if resp.Data.Sessions == nil {
		resp.Data.Sessions = []*model.Session{}
	}
	if resp.Data.Transactions == nil {
		resp.Data.Transactions = []*model.Transaction{}
	}
	if resp.Data.Assets == nil {
		resp.Data.Assets = []assetResponse{}
	}
	writeJSON(w, http.StatusOK, resp)
}
