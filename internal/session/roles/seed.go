package roles

import (
	"context"
	"fmt"
)

// Granter is implemented by both stores.
type Granter interface {
	Grant(ctx context.Context, identityID string) error
}

// SeedAdministrators grants the administrator role to every configured
// identity ID. Used at startup to bootstrap the first admin.
func SeedAdministrators(ctx context.Context, store Granter, identityIDs []string) error {
	for _, id := range identityIDs {
		if err := store.Grant(ctx, id); err != nil {
			return fmt.Errorf("seed administrator %q: %w", id, err)
		}
	}
	return nil
}
