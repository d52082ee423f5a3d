// Package sessionname generates memorable session ids such as
// "curious-algebra-lantern-harbor".
package sessionname

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const wordsPerName = 4

var lists = [][]string{subjects, places, tools, adjectives, extras}

// Generate picks one word from each of four distinct lists until taken
// reports the name is free. A nil taken accepts the first name.
func Generate(taken func(string) bool) (string, error) {
	for {
		name, err := candidate()
		if err != nil {
			return "", err
		}
		if taken == nil || !taken(name) {
			return name, nil
		}
	}
}

func candidate() (string, error) {
	used := make(map[int]bool, wordsPerName)
	words := make([]string, 0, wordsPerName)
	for len(words) < wordsPerName {
		li, err := randomIndex(len(lists))
		if err != nil {
			return "", err
		}
		if used[li] {
			continue
		}
		used[li] = true

		wi, err := randomIndex(len(lists[li]))
		if err != nil {
			return "", err
		}
		words = append(words, lists[li][wi])
	}
	return strings.Join(words, "-"), nil
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
