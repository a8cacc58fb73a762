// Package playback reveals a finished response one word at a time.
package playback

import (
	"strings"
	"time"
)

// DefaultInterval is the delay between revealed words
const DefaultInterval = 50 * time.Millisecond

// Player holds a complete word list and how much of it is visible
type Player struct {
	words    []string
	revealed int
}

// New creates a player with nothing revealed
func New(words []string) *Player {
	return &Player{words: words}
}

// Advance reveals one more word and reports whether any remain hidden
func (p *Player) Advance() bool {
	if p.revealed < len(p.words) {
		p.revealed++
	}
	return !p.Done()
}

// Done reports whether every word is visible
func (p *Player) Done() bool {
	return p.revealed >= len(p.words)
}

// Finish reveals everything at once
func (p *Player) Finish() {
	p.revealed = len(p.words)
}

// Revealed is the number of visible words
func (p *Player) Revealed() int {
	return p.revealed
}

// Text is the visible words joined by single spaces
func (p *Player) Text() string {
	return strings.Join(p.words[:p.revealed], " ")
}
