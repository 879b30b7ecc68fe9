package storage

import (
	"context"
	"fmt"

	"reviewetl/internal/config"
)

// NameConflictError reports that the requested database already exists and
// the conflict policy forbids reusing or replacing it.
type NameConflictError struct {
	Name string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("database %q already exists", e.Name)
}

// ResolveDBName decides which database name a run will actually write to.
//
// When name does not exist it is returned unchanged. When it exists the
// conflict policy applies: ConflictDrop drops the existing database and keeps
// the name, ConflictAutoRename returns name_N for the lowest unused N >= 1,
// and ConflictFail returns a *NameConflictError.
func ResolveDBName(ctx context.Context, cat Catalog, name string, policy config.ConflictPolicy) (string, error) {
	existing, err := cat.ListDatabases(ctx)
	if err != nil {
		return "", fmt.Errorf("list databases: %w", err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, db := range existing {
		taken[db] = struct{}{}
	}

	if _, ok := taken[name]; !ok {
		return name, nil
	}

	switch policy {
	case config.ConflictDrop:
		if err := cat.DropDatabase(ctx, name); err != nil {
			return "", fmt.Errorf("drop database %s: %w", name, err)
		}
		return name, nil
	case config.ConflictAutoRename:
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s_%d", name, n)
			if _, ok := taken[candidate]; !ok {
				return candidate, nil
			}
		}
	default:
		return "", &NameConflictError{Name: name}
	}
}
