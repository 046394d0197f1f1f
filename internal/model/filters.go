package model

// SessionFilter narrows a session listing. Zero values mean no constraint.
type SessionFilter struct {
	Status SessionStatus
	Range  *DateRange
	Limit  int
}

// TransactionFilter narrows a transaction listing. Zero values mean no constraint.
type TransactionFilter struct {
	Type      TxType
	Category  Category
	SessionID *int64
	Range     *DateRange
	Limit     int
	Offset    int
}

// TransactionUpdate carries the fields a caller wants to change; nil fields stay as they are.
type TransactionUpdate struct {
	Type      *TxType
	Category  *Category
	Amount    *float64
	Item      *string
	Notes     *string
	SessionID *int64
}

// IsEmpty reports whether the update changes nothing.
func (u TransactionUpdate) IsEmpty() bool {
	return u.Type == nil && u.Category == nil && u.Amount == nil &&
		u.Item == nil && u.Notes == nil && u.SessionID == nil
}

// AssetUpdate carries the fields a caller wants to change; nil fields stay as they are.
type AssetUpdate struct {
	Name        *string
	Type        *AssetType
	Value       *float64
	Quantity    *int
	Description *string
}

// IsEmpty reports whether the update changes nothing.
func (u AssetUpdate) IsEmpty() bool {
	return u.Name == nil && u.Type == nil && u.Value == nil &&
		u.Quantity == nil && u.Description == nil
}
