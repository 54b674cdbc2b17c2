package streamstate

import (
	"fmt"

	"github.com/google/uuid"
)

// generateUniqueID synthesizes a tool_use id when upstream never sent one
// for a call, keyed by the upstream's per-stream tool-call index so repeat
// calls in the same response stay distinguishable even without an id.
func generateUniqueID(prefix string, index int) string {
	return fmt.Sprintf("%s_%d_%s", prefix, index, uuid.NewString())
}
