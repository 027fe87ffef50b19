package rules

import (
	"encoding/json"
	"fmt"

	"github.com/carbocation/pfx"
	"github.com/minio/blake2b-simd"
)

// Digest fingerprints the rule content of a panel. LastUpdated is excluded, so
// re-saving an unchanged panel keeps its digest.
func Digest(p *Panel) (string, error) {
	c := p.Clone()
	c.LastUpdated = Timestamp{}

	b, err := json.Marshal(c)
	if err != nil {
		return "", pfx.Err(err)
	}

	h, err := blake2b.New(&blake2b.Config{Size: 32})
	if err != nil {
		return "", pfx.Err(err)
	}
	if _, err := h.Write(b); err != nil {
		return "", pfx.Err(err)
	}

	return fmt.Sprintf("%X", h.Sum(nil)), nil
}
