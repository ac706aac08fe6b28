/*
Package user contains the user profile as the backend reports it to clients.

The relay only ever sees user ids; the full profile is used by clients to render a
conversation partner and to stamp outgoing optimistic messages with the sender id.
*/
package user

// User represents the basic identity information of a chat participant.
type User struct {

	// ID is the stable identifier; it is also the relay presence key.
	ID string `json:"id"`

	Email string `json:"email"`

	// FullName is the display name.
	FullName string `json:"fullName"`

	// ProfilePic is the avatar URL, null when the user has none.
	ProfilePic *string `json:"profilePic"`
}

// DisplayName returns the full name, falling back to the email and then the id.
func (u User) DisplayName() string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}
