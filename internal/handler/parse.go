package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"game-ledger-bot/internal/model"
)

// Argument errors shown to the user as usage hints.
var (
	ErrMissingArgs = errors.New("missing arguments")
	ErrBadNumber   = errors.New("bad number")
)

// parseAmount reads an in-game amount. A trailing w or 万 multiplies by 10000.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	mult := 1.0
	for _, suffix := range []string{"w", "万"} {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSuffix(s, suffix)
			mult = 10000
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return v * mult, nil
}

// goArgs are the arguments of /go.
type goArgs struct {
	MultiAccount int
	Notes        *string
}

// parseGoArgs parses "/go [多开数] [备注...]". The multiplier defaults to 1.
func parseGoArgs(args []string) (goArgs, error) {
	out := goArgs{MultiAccount: model.MinMultiAccount}
	if len(args) == 0 {
		return out, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return out, fmt.Errorf("%w: %q", ErrBadNumber, args[0])
	}
	out.MultiAccount = n
	out.Notes = joinNotes(args[1:])
	return out, nil
}

// parseTxArgs parses "<分类> <金额> [物品...]" into an unsaved transaction.
func parseTxArgs(txType model.TxType, args []string) (*model.Transaction, error) {
	if len(args) < 2 {
		return nil, ErrMissingArgs
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return nil, err
	}
	return &model.Transaction{
		Type:     txType,
		Category: model.Category(args[0]),
		Amount:   amount,
		Item:     joinNotes(args[2:]),
	}, nil
}

// parseAssetArgs parses "<类型> <名称> <单价> [数量]" into an unsaved asset.
func parseAssetArgs(args []string) (*model.Asset, error) {
	if len(args) < 3 {
		return nil, ErrMissingArgs
	}
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil || value < 0 {
		return nil, fmt.Errorf("%w: %q", ErrBadNumber, args[2])
	}
	a := &model.Asset{
		Type:     model.AssetType(args[0]),
		Name:     args[1],
		Value:    value,
		Quantity: 1,
	}
	if len(args) > 3 {
		q, err := strconv.Atoi(args[3])
		if err != nil || q < 1 {
			return nil, fmt.Errorf("%w: %q", ErrBadNumber, args[3])
		}
		a.Quantity = q
	}
	return a, nil
}

// parseID parses a positive record ID.
func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, ErrMissingArgs
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, args[0])
	}
	return id, nil
}

func joinNotes(args []string) *string {
	s := strings.TrimSpace(strings.Join(args, " "))
	if s == "" {
		return nil
	}
	return &s
}

// displayName returns the sender's username, falling back to the first name.
func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
