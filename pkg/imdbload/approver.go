package imdbload

import "context"

// Approver confirms destructive operations such as dropping the schema.
//
// Implementations:
//   - ForcedApprover: shows a countdown and approves unless canceled
//   - InteractiveApprover: asks the user to type the target's name
type Approver interface {
	// RequestApproval returns true if the operation on target may proceed.
	RequestApproval(ctx context.Context, target string) (bool, error)
}
