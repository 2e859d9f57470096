// Package session holds the client's view of who is logged in and keeps it in
// step with the token store.
package session

import (
	"github.com/jrsteele09/go-session-client/claims"
	"github.com/jrsteele09/go-session-client/internal/utils"
)

// NoID is the user and organisation id of a logged out session.
const NoID int64 = -1

// State is the authentication slice of the client state.
type State struct {
	Username  string `json:"username"`
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	OrgName   string `json:"org_name"`
	OrgID     int64  `json:"org_id"`
	OrgType   string `json:"org_type"`
	IsLogin   bool   `json:"is_login"`
}

// InitialState is the logged out state.
func InitialState() State {
	return State{UserID: NoID, OrgID: NoID}
}

// Action is a state transition request handled by Reduce.
type Action interface {
	action()
}

// AuthPayload carries a partial update. Nil fields are left as they are.
type AuthPayload struct {
	Username  *string
	UserID    *int64
	FirstName *string
	LastName  *string
	OrgName   *string
	OrgID     *int64
	OrgType   *string
	IsLogin   *bool
}

// SetAuthState merges Payload into the state.
type SetAuthState struct {
	Payload AuthPayload
}

// Logout resets the state to InitialState.
type Logout struct{}

func (SetAuthState) action() {}
func (Logout) action()       {}

// LoggedIn builds the payload for a session established from identity.
func LoggedIn(id claims.Identity) AuthPayload {
	return AuthPayload{
		Username:  utils.Ptr(id.Username),
		UserID:    utils.Ptr(id.UserID),
		FirstName: utils.Ptr(id.FirstName),
		LastName:  utils.Ptr(id.LastName),
		OrgName:   utils.Ptr(id.OrgName),
		OrgID:     utils.Ptr(id.OrgID),
		OrgType:   utils.Ptr(id.OrgType),
		IsLogin:   utils.Ptr(true),
	}
}

// Reduce is the pure transition function of the state container.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetAuthState:
		p := a.Payload
		utils.Assign(&s.Username, p.Username)
		utils.Assign(&s.UserID, p.UserID)
		utils.Assign(&s.FirstName, p.FirstName)
		utils.Assign(&s.LastName, p.LastName)
		utils.Assign(&s.OrgName, p.OrgName)
		utils.Assign(&s.OrgID, p.OrgID)
		utils.Assign(&s.OrgType, p.OrgType)
		utils.Assign(&s.IsLogin, p.IsLogin)
		return s
	case Logout:
		return InitialState()
	}
	return s
}
