package chat

import "errors"

// Typed failures for the operation boundary. Authorization and validation
// errors are returned to the caller and never reach the realtime hub: a
// rejected send publishes nothing.
var (
	// ErrNotMember: sender is not in the target channel.
	ErrNotMember = errors.New("not a channel member")

	// ErrNotParticipant: sender is not one of the DM thread's two users.
	ErrNotParticipant = errors.New("not a thread participant")

	// ErrNotAdmin: rename or remove-member attempted by a non-admin.
	// Both flows fail with this explicit error rather than a silent no-op.
	ErrNotAdmin = errors.New("not a channel admin")

	// ErrSelfDM: a DM thread needs two distinct users.
	ErrSelfDM = errors.New("cannot open a DM thread with yourself")

	// ErrEmptyBody: user message body is empty after trimming.
	ErrEmptyBody = errors.New("message body required")

	// ErrEmptyName: channel name is empty after trimming, on create or
	// rename.
	ErrEmptyName = errors.New("channel name required")

	// ErrCannotRemoveSelf: the admin-removal path never removes the actor.
	ErrCannotRemoveSelf = errors.New("cannot remove yourself from a channel")

	// ErrNotFound: the channel, thread, or user id does not exist at all.
	// Distinct from "exists but the caller is not a member", which listing
	// paths answer with empty results to avoid leaking existence.
	ErrNotFound = errors.New("not found")
)
