package model

import (
	"fmt"
	"strings"

	"kds-display-backend/internal/ref"
)

const localLinkPrefix = "local-"

// Link is the canonical display-queue relation row.
type Link struct {
	ID      ref.Ref `json:"id"`
	Display ref.Ref `json:"display,omitzero"`
	Queue   Queue   `json:"queue"`
}

// LocalLinkID tags a row synthesized on this device rather than read back from the API.
func LocalLinkID(displayID, queueID int64) string {
	return fmt.Sprintf("%s%d-%d", localLinkPrefix, displayID, queueID)
}

// Reference implements ref.Identifiable.
func (l Link) Reference() ref.Ref {
	return l.ID
}

// IsLocal reports whether the row was synthesized locally.
func (l Link) IsLocal() bool {
	return strings.HasPrefix(l.ID.Text(), localLinkPrefix)
}
