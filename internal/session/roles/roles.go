// Package roles stores administrator membership for verified identities.
//
// Membership is the only durable authorization fact the application keeps.
// Any known identity without an administrator entry is an ordinary donor.
package roles

import (
	"errors"
	"strings"
)

var ErrEmptyIdentityID = errors.New("identity ID required")

func normalize(identityID string) (string, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return "", ErrEmptyIdentityID
	}
	return identityID, nil
}
