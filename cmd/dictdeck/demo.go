package main

import (
	"fmt"

	"github.com/dictdeck/dictdeck/internal/searchipc"
)

// demoEntries builds the built-in sample dictionary used by --demo.
func demoEntries() []searchipc.FakeEntry {
	words := []struct{ word, def string }{
		{"aardvark", "a nocturnal African mammal that feeds on ants and termites"},
		{"abacus", "a frame with rows of beads used for counting"},
		{"cat", "a small domesticated carnivorous mammal"},
		{"catalog", "a complete list of items, typically in alphabetical order"},
		{"caterpillar", "the larva of a butterfly or moth"},
		{"cathedral", "the principal church of a diocese"},
		{"dictionary", "a book or electronic resource listing words and their meanings"},
		{"dog", "a domesticated carnivorous mammal with a keen sense of smell"},
		{"lexicon", "the vocabulary of a person, language, or branch of knowledge"},
		{"mat", "a piece of protective material placed on a floor"},
		{"sat", "past tense of sit"},
		{"word", "a single distinct meaningful element of speech or writing"},
		{"zebra", "an African wild horse with black-and-white stripes"},
	}

	entries := make([]searchipc.FakeEntry, len(words))
	for i, w := range words {
		entries[i] = searchipc.FakeEntry{
			Keyword: w.word,
			HTML: fmt.Sprintf("<h1>%s</h1><p>%s</p><p>Example: the %s appears in this sample text.</p>",
				w.word, w.def, w.word),
		}
	}
	return entries
}
