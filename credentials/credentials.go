package credentials

// Pair holds the access and refresh bearer tokens issued at login. Both are
// opaque strings; the client never inspects them unless a token validator is
// explicitly configured.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Present reports whether the pair carries an access token.
func (p Pair) Present() bool {
	return p.AccessToken != ""
}

// Store is the single owner of the persisted Credential Pair. The session
// manager only ever reflects presence or absence of the pair as a boolean.
//
// Load returns a zero Pair (Present() == false) when nothing is stored;
// absence is not an error.
type Store interface {
	Save(pair Pair) error
	Load() (Pair, error)
	Clear() error
}
