package summarize

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const minSentenceChars = 20

var (
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
	wordToken        = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)
)

// Extractive selects up to maxSentences sentences by TF-IDF weight and returns
// them joined by a single space in their original order. It never calls a
// completion service.
func Extractive(text string, maxSentences int) (string, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return "", ErrNoSentences
	}
	if maxSentences <= 0 || len(sentences) <= maxSentences {
		return strings.Join(sentences, " "), nil
	}

	scores := scoreSentences(sentences)

	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	top := order[:maxSentences]
	slices.Sort(top)

	selected := make([]string, len(top))
	for i, idx := range top {
		selected[i] = sentences[idx]
	}
	return strings.Join(selected, " "), nil
}

// splitSentences breaks text after '.', '!' or '?' followed by whitespace and
// drops fragments of minSentenceChars characters or fewer.
func splitSentences(text string) []string {
	var sentences []string
	keep := func(s string) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > minSentenceChars {
			sentences = append(sentences, s)
		}
	}

	last := 0
	for _, m := range sentenceBoundary.FindAllStringIndex(text, -1) {
		keep(text[last : m[0]+1])
		last = m[1]
	}
	keep(text[last:])
	return sentences
}

// scoreSentences sums each sentence's L2-normalized TF-IDF vector, with the
// sentences themselves as the document collection and a smoothed idf.
func scoreSentences(sentences []string) []float64 {
	termCounts := make([]map[string]int, len(sentences))
	docFreq := make(map[string]int)
	for i, s := range sentences {
		counts := make(map[string]int)
		for _, tok := range wordToken.FindAllString(strings.ToLower(s), -1) {
			if _, stop := englishStopWords[tok]; stop {
				continue
			}
			counts[tok]++
		}
		for term := range counts {
			docFreq[term]++
		}
		termCounts[i] = counts
	}

	n := float64(len(sentences))
	idf := make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log((1+n)/(1+float64(df))) + 1
	}

	scores := make([]float64, len(sentences))
	for i, counts := range termCounts {
		var sum, sumSquares float64
		for term, tf := range counts {
			w := float64(tf) * idf[term]
			sum += w
			sumSquares += w * w
		}
		if sumSquares > 0 {
			scores[i] = sum / math.Sqrt(sumSquares)
		}
	}
	return scores
}
