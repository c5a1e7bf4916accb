package session

// Reduce applies ev to s and returns the next state. It never mutates s
// and performs no I/O.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case InitStarted:
		if s.Status != Uninitialized {
			return s
		}
		return State{Status: Authenticating, IsLoading: true}

	case LoadingStarted:
		next := s.Clone()
		next.IsLoading = true
		if !next.IsAuthenticated {
			next.Status = Authenticating
		}
		return next

	case LoadingFinished:
		next := s.Clone()
		next.IsLoading = false
		if !next.IsAuthenticated {
			next.Status = Unauthenticated
		}
		return next

	case Granted:
		if e.User == nil || e.AccessToken == "" || e.RefreshToken == "" || e.Expiry.IsZero() {
			return loggedOut()
		}
		return State{
			Status:          Authenticated,
			User:            e.User.Clone(),
			AccessToken:     e.AccessToken,
			RefreshToken:    e.RefreshToken,
			IsAuthenticated: true,
			IsLoading:       false,
			SessionExpiry:   e.Expiry,
		}

	case LoggedOut:
		return loggedOut()

	case UserUpdated:
		if !s.IsAuthenticated || e.Patch.IsEmpty() {
			return s
		}
		next := s.Clone()
		next.User = s.User.Apply(e.Patch)
		return next

	default:
		return s
	}
}

func loggedOut() State {
	return State{Status: Unauthenticated}
}
