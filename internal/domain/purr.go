package domain

import (
	"strconv"
	"strings"
)

// ToggleResult is the outcome of a purr or save toggle.
// AuthRequired is not an error: callers redirect to login.
type ToggleResult string

// Toggle results.
const (
	ResultLiked        ToggleResult = "liked"
	ResultUnliked      ToggleResult = "unliked"
	ResultSaved        ToggleResult = "saved"
	ResultRemoved      ToggleResult = "removed"
	ResultAuthRequired ToggleResult = "auth_required"
	ResultError        ToggleResult = "error"
)

// PurrUpdate is broadcast after a successful purr toggle so every view of
// the product can show the reconciled count.
type PurrUpdate struct {
	ProductID string `json:"product_id"`
	UserID    string `json:"-"`
	Liked     bool   `json:"liked"`
	Count     int    `json:"count"`
}

// PurrState is what one user sees for one product.
type PurrState struct {
	ProductID string `json:"product_id"`
	Liked     bool   `json:"liked"`
	Count     int    `json:"count"`
}

// FormatPurrCount abbreviates a purr count: 847, 1.2k, 64k, 2.1M.
func FormatPurrCount(count int) string {
	switch {
	case count < 1000:
		return strconv.Itoa(count)
	case count < 1_000_000:
		return trimZero(float64(count)/1000) + "k"
	default:
		return trimZero(float64(count)/1_000_000) + "M"
	}
}

func trimZero(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0")
}
