package ariston

// Session is the vendor auth state for one account. It is a value
// type: renewal is expressed as a transition to a new value rather
// than in-place mutation, so the protocol is testable without a
// server.
type Session struct {
	Token   string
	Account string
}

func (s Session) Authenticated() bool { return s.Token != "" }

// renewed is the transition taken on a successful login reply.
func (s Session) renewed(reply loginReply) Session {
	return Session{Token: reply.Token, Account: reply.Account}
}

// expired is the transition taken when the server rejects the token.
func (s Session) expired() Session {
	return Session{}
}
