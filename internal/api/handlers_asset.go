package api

import (
	"net/http"

	"game-ledger-bot/internal/model"
)

type assetRequest struct {
	Name        string          `json:"name"`
	Type        model.AssetType `json:"type"`
	Value       float64         `json:"value"`
	Quantity    int             `json:"quantity"`
	Description *string         `json:"description"`
}

type updateAssetRequest struct {
	Name        *string          `json:"name"`
	Type        *model.AssetType `json:"type"`
	Value       *float64         `json:"value"`
	Quantity    *int             `json:"quantity"`
	Description *string          `json:"description"`
}

// assetResponse adds the computed total to a stored asset.
type assetResponse struct {
	*model.Asset
	TotalValue float64 `json:"totalValue"`
}

func newAssetResponse(a *model.Asset) assetResponse {
	return assetResponse{Asset: a, TotalValue: a.TotalValue().Round(2).InexactFloat64()}
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.deps.Assets.List(r.Context(), mustUser(r), model.AssetType(r.URL.Query().Get("type")))
	if err != nil {
		writeError(w, r, err, "资产不存在", "获取资产列表失败")
		return
	}
	out := make([]assetResponse, len(assets))
	for i, a := range assets {
		out[i] = newAssetResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[assetRequest](w, r)
	if !ok {
		return
	}
	if req.Name == "" || req.Type == "" {
		writeFailure(w, http.StatusBadRequest, "名称和类型是必需的")
		return
	}

	created, err := s.deps.Assets.Create(r.Context(), mustUser(r), &model.Asset{
		Name:        req.Name,
		Type:        req.Type,
		Value:       req.Value,
		Quantity:    req.Quantity,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err, "资产不存在", "创建资产失败")
		return
	}
	writeJSON(w, http.StatusCreated, newAssetResponse(created))
}

func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[updateAssetRequest](w, r)
	if !ok {
		return
	}
	upd := model.AssetUpdate{
		Name:        req.Name,
		Type:        req.Type,
		Value:       req.Value,
		Quantity:    req.Quantity,
		Description: req.Description,
	}
	if upd.IsEmpty() {
		writeFailure(w, http.StatusBadRequest, "没有需要更新的字段")
		return
	}

	updated, err := s.deps.Assets.Update(r.Context(), mustUser(r), id, upd)
	if err != nil {
		writeError(w, r, err, "资产不存在", "更新资产失败")
		return
	}
	writeJSON(w, http.StatusOK, newAssetResponse(updated))
}

func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.deps.Assets.Delete(r.Context(), mustUser(r), id); err != nil {
		writeError(w, r, err, "资产不存在", "删除资产失败")
		return
	}
	writeOK(w, "资产删除成功")
}
