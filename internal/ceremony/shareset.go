package ceremony

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// ValidateShareSet enforces the share-set invariants: 2 <= k <=
// len(members), member pubkeys parse as valid P-256 points, aliases
// unique and non-empty.
func ValidateShareSet(s ShareSet) error {
	n := len(s.Members)
	if s.Threshold < 2 || s.Threshold > n {
		return rerr.ConfigError("threshold %d out of range for %d members (need 2 <= k <= n)", s.Threshold, n)
	}
	seen := make(map[string]struct{}, n)
	for _, m := range s.Members {
		if m.Alias == "" {
			return rerr.ConfigError("member alias must not be empty")
		}
		if _, dup := seen[m.Alias]; dup {
			return rerr.ConfigError("duplicate member alias %q", m.Alias)
		}
		seen[m.Alias] = struct{}{}
		if m.PubKey == nil {
			return rerr.CryptoError("member %q: missing public key", m.Alias)
		}
		if m.PubKey.Curve != curve || m.PubKey.X == nil || m.PubKey.Y == nil || !curve.IsOnCurve(m.PubKey.X, m.PubKey.Y) {
			return rerr.CryptoError("member %q: public key is not a valid P-256 point", m.Alias)
		}
	}
	return nil
}

// shareSetJSON is the wire shape of the --new-share-set JSON CLI form:
// {"threshold": k, "members": [{"alias": "...", "pubKey":
// "<hex>"}, ...]}.
type shareSetJSON struct {
	Threshold int `json:"threshold"`
	Members   []struct {
		Alias  string `json:"alias"`
		PubKey string `json:"pubKey"`
	} `json:"members"`
}

// ParseShareSetJSON parses the inline-JSON CLI form of a new share-set.
func ParseShareSetJSON(raw string) (ShareSet, error) {
	var parsed shareSetJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return ShareSet{}, rerr.ConfigError("parsing --new-share-set JSON: %w", err)
	}
	members := make([]Member, len(parsed.Members))
	for i, m := range parsed.Members {
		pub, err := decodeHexPubKey(m.Alias, m.PubKey)
		if err != nil {
			return ShareSet{}, err
		}
		members[i] = Member{Alias: m.Alias, PubKey: pub}
	}
	return ShareSet{Threshold: parsed.Threshold, Members: members}, nil
}

// ParseShareSetSplit parses the --threshold/--members CLI form; aliases
// are synthesized as reshard-1..reshard-n in list order.
func ParseShareSetSplit(threshold int, membersFlag string) (ShareSet, error) {
	hexKeys := strings.Split(membersFlag, ";")
	members := make([]Member, len(hexKeys))
	for i, hexKey := range hexKeys {
		alias := fmt.Sprintf("reshard-%d", i+1)
		pub, err := decodeHexPubKey(alias, hexKey)
		if err != nil {
			return ShareSet{}, err
		}
		members[i] = Member{Alias: alias, PubKey: pub}
	}
	return ShareSet{Threshold: threshold, Members: members}, nil
}

func decodeHexPubKey(alias, hexStr string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil {
		return nil, rerr.ConfigError("member %q: invalid hex public key: %w", alias, err)
	}
	pub, err := validateMemberPubKey(alias, raw)
	if err != nil {
		return nil, err
	}
	return pub, nil
}
