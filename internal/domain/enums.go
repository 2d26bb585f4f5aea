package domain

// AuthProvider identifies the origin of an account link.
type AuthProvider string

const (
	AuthProviderPFNexus AuthProvider = "pfnexus"
)

// AccountType mirrors the account kinds understood by the local session system.
type AccountType string

const (
	AccountTypeOAuth AccountType = "oauth"
)

// UpstreamEmailVerifiedYes is the only value of the upstream emailverified
// field that marks an email as verified.
const UpstreamEmailVerifiedYes = "Yes"

// BridgeMode selects how the bridge handler establishes the local session.
type BridgeMode string

const (
	// BridgeModeDirect sets the session cookie on the bridge redirect itself.
	BridgeModeDirect BridgeMode = "direct"
	// BridgeModeHandoff sets a short-lived handoff cookie and lets the
	// completion page exchange it for a session.
	BridgeModeHandoff BridgeMode = "handoff"
)

// Valid reports whether m is a known bridge mode.
func (m BridgeMode) Valid() bool {
	return m == BridgeModeDirect || m == BridgeModeHandoff
}
