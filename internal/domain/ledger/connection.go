package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// LedgerConnection
// ---------------------------------------------------------------------------

// ConnectionStatus represents the health of an organization's link to the
// ledger system.
type ConnectionStatus string

const (
	// ConnectionStatusActive means the connection can be used for sync
	ConnectionStatusActive ConnectionStatus = "ACTIVE"
	// ConnectionStatusExpired means the refresh token no longer works
	ConnectionStatusExpired ConnectionStatus = "EXPIRED"
	// ConnectionStatusRevoked means the user disconnected the integration
	ConnectionStatusRevoked ConnectionStatus = "REVOKED"
)

// IsValid returns true if the status is valid
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusActive, ConnectionStatusExpired, ConnectionStatusRevoked:
		return true
	default:
		return false
	}
}

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	return string(s)
}

// LedgerConnection holds an organization's credentials and settings for the
// ledger system, one connection per organization.
type LedgerConnection struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	RealmID        string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
	Status         ConnectionStatus
	ConflictPolicy ConflictPolicy
	ConnectedAt    time.Time
	LastRefreshAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsUsable reports whether the connection can serve sync traffic.
func (c *LedgerConnection) IsUsable() bool {
	return c.Status == ConnectionStatusActive
}

// TokenExpired reports whether the access token needs a refresh.
func (c *LedgerConnection) TokenExpired(now time.Time) bool {
	return !now.Before(c.TokenExpiresAt)
}

// ApplyRefresh stores a refreshed token pair.
func (c *LedgerConnection) ApplyRefresh(accessToken, refreshToken string, expiresAt, now time.Time) {
	c.AccessToken = accessToken
	if refreshToken != "" {
		c.RefreshToken = refreshToken
	}
	c.TokenExpiresAt = expiresAt
	c.LastRefreshAt = &now
	c.Status = ConnectionStatusActive
	c.UpdatedAt = now
}

// MarkExpired flags the connection after a failed refresh.
func (c *LedgerConnection) MarkExpired(now time.Time) {
	c.Status = ConnectionStatusExpired
	c.UpdatedAt = now
}

// ConnectionRepository is the port for ledger connection storage.
type ConnectionRepository interface {
	Save(ctx context.Context, conn *LedgerConnection) error
	FindByOrganization(ctx context.Context, orgID uuid.UUID) (*LedgerConnection, error)
	Update(ctx context.Context, conn *LedgerConnection) error
}

// ---------------------------------------------------------------------------
// LedgerClient port
// ---------------------------------------------------------------------------

// RemoteRecord is a ledger-system record as returned by its API: an opaque
// payload plus the identifiers and revision the sync engine needs.
type RemoteRecord struct {
	RemoteID  string
	Revision  string
	UpdatedAt time.Time
	Payload   json.RawMessage
}

// LedgerClient is the port for the remote accounting platform's API.
// Implementations translate transport failures into the ledger error
// sentinels so the executor can classify them.
type LedgerClient interface {
	// Create inserts a record and returns its remote id and revision.
	Create(ctx context.Context, conn *LedgerConnection, entityType EntityType, payload json.RawMessage) (*RemoteRecord, error)

	// Update replaces a record. The revision must match the remote side's
	// current one or the call fails validation.
	Update(ctx context.Context, conn *LedgerConnection, entityType EntityType, remoteID, revision string, payload json.RawMessage) (*RemoteRecord, error)

	// Delete removes (or voids, for transactional types) a record.
	Delete(ctx context.Context, conn *LedgerConnection, entityType EntityType, remoteID, revision string) error

	// Fetch reads one record by remote id.
	Fetch(ctx context.Context, conn *LedgerConnection, entityType EntityType, remoteID string) (*RemoteRecord, error)

	// ChangedSince lists records of a type modified after the given time,
	// used by the polling pull path.
	ChangedSince(ctx context.Context, conn *LedgerConnection, entityType EntityType, since time.Time) ([]*RemoteRecord, error)
}

// TokenSource refreshes expired access tokens for a connection.
type TokenSource interface {
	// Refresh exchanges the refresh token for a new token pair. A failed
	// exchange returns ErrLedgerAuthExpired.
	Refresh(ctx context.Context, conn *LedgerConnection) (accessToken, refreshToken string, expiresAt time.Time, err error)
}
