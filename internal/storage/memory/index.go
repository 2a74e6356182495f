package memory

import (
	"slices"

	"github.com/yndnr/qrtoken-go/internal/core/domain"
	"github.com/yndnr/qrtoken-go/pkg/cmap"
)

// UserIndex maps a user to the lookup keys of their records, oldest first.
type UserIndex struct {
	index *cmap.Map[domain.UserID, []string]
}

// NewUserIndex creates an empty index.
func NewUserIndex() *UserIndex {
	return &UserIndex{index: cmap.New[domain.UserID, []string]()}
}

// Add appends lookupKey to the user's list.
func (i *UserIndex) Add(userID domain.UserID, lookupKey string) {
	i.index.Compute(userID, func(keys []string, _ bool) ([]string, bool) {
		return append(slices.Clip(keys), lookupKey), true
	})
}

// Remove drops lookupKey from the user's list and the user once it is empty.
func (i *UserIndex) Remove(userID domain.UserID, lookupKey string) {
	i.index.Compute(userID, func(keys []string, exists bool) ([]string, bool) {
		if !exists {
			return nil, false
		}
		out := slices.DeleteFunc(slices.Clone(keys), func(k string) bool { return k == lookupKey })
		return out, len(out) > 0
	})
}

// Get returns a copy of the user's lookup keys.
func (i *UserIndex) Get(userID domain.UserID) []string {
	keys, _ := i.index.Get(userID)
	return slices.Clone(keys)
}

// Users returns the number of users with at least one record.
func (i *UserIndex) Users() int {
	return i.index.Count()
}
