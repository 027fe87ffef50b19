package plate

import (
	"log"

	"gopkg.in/guregu/null.v3"
)

// Index maps a position and channel to that well's Ct value. It is built once
// per analysis run and never modified afterwards.
type Index struct {
	cts map[string]map[string]null.Float
}

// NewIndex groups wells by normalized position, then by normalized channel.
// If the same well+channel appears more than once, the first record wins.
func NewIndex(wells []Well) *Index {
	idx := &Index{cts: make(map[string]map[string]null.Float)}

	for _, w := range wells {
		pos := NormalizePosition(w.Position)
		channel := NormalizeChannel(w.Channel)

		byChannel, exists := idx.cts[pos]
		if !exists {
			byChannel = make(map[string]null.Float)
			idx.cts[pos] = byChannel
		}

		if _, dup := byChannel[channel]; dup {
			log.Printf("Ignoring duplicate reading for well %s channel %s\n", pos, w.Channel)
			continue
		}
		byChannel[channel] = w.Ct
	}

	return idx
}

// Lookup returns the Ct value for the well+channel. The boolean reports whether
// the well+channel was present at all; a present well may still carry an
// invalid (undetermined) Ct.
func (idx *Index) Lookup(position, channel string) (null.Float, bool) {
	if idx == nil {
		return null.Float{}, false
	}

	byChannel, exists := idx.cts[NormalizePosition(position)]
	if !exists {
		return null.Float{}, false
	}

	ct, exists := byChannel[NormalizeChannel(channel)]
	return ct, exists
}

// Len is the number of distinct well+channel entries.
func (idx *Index) Len() int {
	n := 0
	for _, byChannel := range idx.cts {
		n += len(byChannel)
	}
	return n
}
