package coa

// Arena indexes accounts by id with explicit parent references. Lookups
// never rebuild a nested tree; walking up is a pointer chase through the
// flat map.
type Arena struct {
	byID   map[int64]Account
	byCode map[string]int64
}

func NewArena(accounts []Account) *Arena {
	arena := &Arena{
		byID:   make(map[int64]Account, len(accounts)),
		byCode: make(map[string]int64, len(accounts)),
	}
	for _, acc := range accounts {
		arena.byID[acc.ID] = acc
		arena.byCode[acc.Code] = acc.ID
	}
	return arena
}

// Put indexes (or replaces) a single account.
func (a *Arena) Put(acc Account) {
	a.byID[acc.ID] = acc
	a.byCode[acc.Code] = acc.ID
}

// Get returns the account with the given id.
func (a *Arena) Get(id int64) (Account, bool) {
	acc, ok := a.byID[id]
	return acc, ok
}

// GetByCode returns the account with the given full code.
func (a *Arena) GetByCode(code string) (Account, bool) {
	id, ok := a.byCode[code]
	if !ok {
		return Account{}, false
	}
	return a.byID[id], true
}

// Ancestors walks parent references from the account up to the root.
func (a *Arena) Ancestors(id int64) []Account {
	var out []Account
	acc, ok := a.byID[id]
	if !ok {
		return nil
	}
	for acc.ParentID != nil {
		parent, ok := a.byID[*acc.ParentID]
		if !ok {
			break
		}
		out = append(out, parent)
		acc = parent
	}
	return out
}

// Len reports the number of indexed accounts.
func (a *Arena) Len() int {
	return len(a.byID)
}
