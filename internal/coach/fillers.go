package coach

import (
	"strings"
	"unicode"
)

var singleFillers = map[string]struct{}{
	"um": {}, "uh": {}, "erm": {}, "hmm": {},
	"like": {}, "basically": {}, "actually": {}, "literally": {},
}

var phraseFillers = [][]string{
	{"you", "know"},
	{"i", "mean"},
	{"sort", "of"},
	{"kind", "of"},
}

// Words splits text into lowercase words, dropping punctuation but keeping apostrophes.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// CountFillers counts filler words and phrases on word boundaries.
func CountFillers(text string) int {
	words := Words(text)
	count := 0
	for i := 0; i < len(words); i++ {
		if _, ok := singleFillers[words[i]]; ok {
			count++
			continue
		}
		for _, phrase := range phraseFillers {
			if matchAt(words, i, phrase) {
				count++
				i += len(phrase) - 1
				break
			}
		}
	}
	return count
}

func matchAt(words []string, i int, phrase []string) bool {
	if i+len(phrase) > len(words) {
		return false
	}
	for j, w := range phrase {
		if words[i+j] != w {
			return false
		}
	}
	return true
}
