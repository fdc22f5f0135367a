package session

// Identity is the signal supplied by the identity provider.
type Identity interface {
	IsAuthenticated() bool
	DisplayName() string
	// Subject keys the usage quota. Anonymous identities use a device key.
	Subject() string
}
