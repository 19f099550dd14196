package domain

// Wallet set name constants. Known-actor wallets feed the motion screen;
// smart wallets feed the deep screen.
const (
	WalletSetKnown = "known"
	WalletSetSmart = "smart"
)

// WalletSet is a named collection of tracked wallet addresses.
// Corresponds to wallet_sets / wallet_set_members tables in PostgreSQL.
type WalletSet struct {
	Name      string   // set identifier
	Addresses []string // base58 wallet addresses
	LoadedAt  int64    // Unix timestamp in milliseconds
}
