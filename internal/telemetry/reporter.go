package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotRegistered is returned when the service refuses a freshly issued
// identity.
var ErrNotRegistered = errors.New("client not registered")

// Reporter makes sure the client is registered and checks in fingerprints
// that changed since the last accepted one.
type Reporter struct {
	client        *Client
	store         *IdentityStore
	clientVersion string
	fpVersion     int
}

// NewReporter creates a Reporter.
func NewReporter(client *Client, store *IdentityStore, clientVersion string, fpVersion int) *Reporter {
	return &Reporter{
		client:        client,
		store:         store,
		clientVersion: clientVersion,
		fpVersion:     fpVersion,
	}
}

// Report checks in fingerprint unless it was already accepted. It returns
// whether a check-in was sent.
func (r *Reporter) Report(ctx context.Context, fingerprint, userAgent, userAgentData string) (bool, error) {
	st, err := r.ensureRegistered(ctx)
	if err != nil {
		return false, err
	}

	if st.Fingerprint == fingerprint {
		slog.DebugContext(ctx, "fingerprint unchanged, skipping check-in", "fingerprint", fingerprint)
		return false, nil
	}

	err = r.client.Checkin(ctx, Passport{
		ClientID:      st.ID,
		ClientToken:   st.Token,
		ClientVersion: r.clientVersion,
		FPVersion:     r.fpVersion,
		Fingerprint:   fingerprint,
		UserAgent:     userAgent,
		UserAgentData: userAgentData,
	})
	if err != nil {
		return false, err
	}

	st.Fingerprint = fingerprint
	if err := r.store.Save(st); err != nil {
		return true, err
	}

	slog.InfoContext(ctx, "fingerprint checked in", "client_id", st.ID, "fingerprint", fingerprint)
	return true, nil
}

func (r *Reporter) ensureRegistered(ctx context.Context) (State, error) {
	st, err := r.store.Load()
	if err != nil {
		return State{}, err
	}

	if st.Valid() {
		ok, err := r.client.Status(ctx, st.Identity)
		if err != nil {
			return State{}, err
		}
		if ok {
			return st, nil
		}
		slog.InfoContext(ctx, "stored identity not recognized, registering again", "client_id", st.ID)
	}

	id, err := r.client.Register(ctx)
	if err != nil {
		return State{}, err
	}
	st = State{Identity: id}

	ok, err := r.client.Status(ctx, id)
	if err != nil {
		return State{}, err
	}
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrNotRegistered, id.ID)
	}

	if err := r.store.Save(st); err != nil {
		return State{}, err
	}
	slog.InfoContext(ctx, "client registered", "client_id", id.ID)
	return st, nil
}
