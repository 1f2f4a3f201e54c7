package session

import (
	"context"

	"github.com/jrsteele09/vendoriq-client/authmodel"
	"github.com/jrsteele09/vendoriq-client/internal/utils"
	"github.com/jrsteele09/vendoriq-client/store"
)

// Phase is derived from the presence of a credential. It is never stored.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Identity is the signed-in vendor as the client currently knows it. The
// name fields are nil until the backend has reported them.
type Identity struct {
	Email        string
	FullName     *string
	BusinessName *string
}

// DisplayName prefers the business name, then the full name, then the email.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	if name := utils.Value(i.BusinessName); name != "" {
		return name
	}
	if name := utils.Value(i.FullName); name != "" {
		return name
	}
	return i.Email
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := Identity{Email: i.Email}
	if i.FullName != nil {
		c.FullName = utils.Ptr(*i.FullName)
	}
	if i.BusinessName != nil {
		c.BusinessName = utils.Ptr(*i.BusinessName)
	}
	return &c
}

// State is a point-in-time view of the session.
type State struct {
	Phase    Phase
	Identity *Identity
	// Loading is true until startup reconciliation has settled.
	Loading bool
}

// Authenticated reports whether a credential is held.
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated
}

func identityFromProfile(p *authmodel.Profile, fallbackEmail string) *Identity {
	email := p.Email
	if email == "" {
		email = fallbackEmail
	}
	return &Identity{
		Email:        email,
		FullName:     utils.NonEmpty(utils.Value(p.FullName)),
		BusinessName: utils.NonEmpty(utils.Value(p.BusinessName)),
	}
}

// loadCachedIdentity reads the identity persisted by the last session. It
// returns nil when no email is stored.
func loadCachedIdentity(ctx context.Context, s store.Store) (*Identity, error) {
	email, ok, err := s.Get(ctx, store.KeyUserEmail)
	if err != nil || !ok || email == "" {
		return nil, err
	}
	fullName, err := store.GetString(ctx, s, store.KeyUserFullName)
	if err != nil {
		return nil, err
	}
	businessName, err := store.GetString(ctx, s, store.KeyUserBusinessName)
	if err != nil {
		return nil, err
	}
	return &Identity{
		Email:        email,
		FullName:     utils.NonEmpty(fullName),
		BusinessName: utils.NonEmpty(businessName),
	}, nil
}

// persistIdentity writes id to the store. Name fields that are unset are
// removed so a later cold start does not resurrect them.
func persistIdentity(ctx context.Context, s store.Store, id *Identity) error {
	values := map[string]string{store.KeyUserEmail: id.Email}
	var absent []string
	if id.FullName != nil {
		values[store.KeyUserFullName] = *id.FullName
	} else {
		absent = append(absent, store.KeyUserFullName)
	}
	if id.BusinessName != nil {
		values[store.KeyUserBusinessName] = *id.BusinessName
	} else {
		absent = append(absent, store.KeyUserBusinessName)
	}
	if len(absent) > 0 {
		if err := s.Delete(ctx, absent...); err != nil {
			return err
		}
	}
	return s.SetMany(ctx, values)
}
