package model

import (
	"encoding/base64"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidInput = goerr.New("invalid element pair")
)

// CombinationKey identifies an unordered pair of element names
type CombinationKey string

// ElementPair holds two trimmed element names in the order they were given
type ElementPair struct {
	A string
	B string
}

// NewElementPair trims both names and rejects empty ones
func NewElementPair(a, b string) (ElementPair, error) {
	pair := ElementPair{
		A: strings.TrimSpace(a),
		B: strings.TrimSpace(b),
	}
	if pair.A == "" || pair.B == "" {
		return ElementPair{}, goerr.Wrap(ErrInvalidInput, "element name is empty",
			goerr.V("a", a),
			goerr.V("b", b))
	}
	return pair, nil
}

// Key sorts the names, concatenates them and encodes the result with
// standard base64. Same output for (a, b) and (b, a).
func (p ElementPair) Key() CombinationKey {
	names := []string{p.A, p.B}
	sort.Strings(names)
	return CombinationKey(base64.StdEncoding.EncodeToString([]byte(names[0] + names[1])))
}

// DeriveKey returns the CombinationKey of two element names
func DeriveKey(a, b string) (CombinationKey, error) {
	pair, err := NewElementPair(a, b)
	if err != nil {
		return "", err
	}
	return pair.Key(), nil
}

// Combination is a resolved pair. It is written once and never updated.
type Combination struct {
	Key       CombinationKey `json:"id" firestore:"id"`
	Name      string         `json:"name" firestore:"name"`
	Emoji     string         `json:"emoji" firestore:"emoji"`
	SourceA   string         `json:"element_a" firestore:"element_a"`
	SourceB   string         `json:"element_b" firestore:"element_b"`
	CreatedAt time.Time      `json:"created_at" firestore:"created_at"`
}

// Element returns the name and emoji of the combination result
func (c *Combination) Element() Element {
	return Element{Name: c.Name, Emoji: c.Emoji}
}

// GenerationResult is what the generative model proposed for a pair
type GenerationResult struct {
	Name     string
	Emoji    string
	Accepted bool
}
