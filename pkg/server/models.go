package server

// RootResponse describes the served allow-list.
type RootResponse struct {
	Root           string `json:"root"`
	Members        int    `json:"members"`
	Depth          int    `json:"depth"`
	HashFunction   string `json:"hashFunction"`
	LeafOrder      string `json:"leafOrder"`
	OddLayerPolicy string `json:"oddLayerPolicy"`
	SortRule       string `json:"sortRule"`
	CacheKey       string `json:"cacheKey"`

	// Set when a contract caller is configured
	Contract       string `json:"contract,omitempty"`
	OnChainRoot    string `json:"onChainRoot,omitempty"`
	MatchesOnChain *bool  `json:"matchesOnChain,omitempty"`
	OnChainError   string `json:"onChainError,omitempty"`
}

// ProofResponse is the proof for one address, ready to pass as the bytes32[] argument of mintAllowList.
type ProofResponse struct {
	Address string   `json:"address"`
	Leaf    string   `json:"leaf"`
	Root    string   `json:"root"`
	Proof   []string `json:"proof"`
}

// VerifyRequest checks a proof. Either Address or Leaf identifies the member; Root
// defaults to the served list's root.
type VerifyRequest struct {
	Address string   `json:"address"`
	Leaf    string   `json:"leaf"`
	Root    string   `json:"root"`
	Proof   []string `json:"proof"`
}

type VerifyResponse struct {
	Valid bool   `json:"valid"`
	Leaf  string `json:"leaf,omitempty"`
	Root  string `json:"root,omitempty"`
	Error string `json:"error,omitempty"`
}

type MembersResponse struct {
	Root    string   `json:"root"`
	Members []string `json:"members"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}
