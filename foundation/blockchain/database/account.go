package database

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SystemAccountID is the account that mints genesis allocations and mining
// rewards. No user can send from or to it.
const SystemAccountID AccountID = "SYSTEM"

// maxAccountLength is the maximum number of runes in an account name.
const maxAccountLength = 64

// Account represents the balance held by an individual account.
type Account struct {
	AccountID AccountID `json:"account"`
	Balance   uint64    `json:"balance"`
}

// =============================================================================

// AccountID represents a named account that sends and receives coins.
type AccountID string

// ToAccountID converts a string to an account and validates the string
// is formatted correctly. Surrounding whitespace is removed.
func ToAccountID(name string) (AccountID, error) {
	a := AccountID(strings.TrimSpace(name))
	if !a.IsAccountID() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccount, name)
	}

	if a.IsSystem() {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidAccount, name)
	}

	return a, nil
}

// IsAccountID verifies whether the underlying data represents a valid
// account name.
func (a AccountID) IsAccountID() bool {
	if a == "" || !utf8.ValidString(string(a)) {
		return false
	}

	if utf8.RuneCountInString(string(a)) > maxAccountLength {
		return false
	}

	if strings.TrimSpace(string(a)) != string(a) {
		return false
	}

	for _, r := range string(a) {
		if !unicode.IsPrint(r) {
			return false
		}
	}

	return true
}

// IsSystem reports whether this is the reserved system account.
func (a AccountID) IsSystem() bool {
	return strings.EqualFold(string(a), string(SystemAccountID))
}

// =============================================================================

// ByAccount provides sorting support by the account id value.
type ByAccount []Account

// Len returns the number of accounts in the list.
func (ba ByAccount) Len() int {
	return len(ba)
}

// Less helps to sort the list by account id in ascending order.
func (ba ByAccount) Less(i, j int) bool {
	return ba[i].AccountID < ba[j].AccountID
}

// Swap moves accounts in the order of the account id value.
func (ba ByAccount) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
