package similarity

import (
	"errors"
	"math"
	"regexp"
	"strings"
)

// ErrEmptyVocabulary is returned when neither text contains a usable term.
var ErrEmptyVocabulary = errors.New("empty vocabulary: texts contain no terms")

// Feedback bands keyed by the lower bound of the score range.
const (
	FeedbackExcellent = "Excellent! You covered almost everything clearly."
	FeedbackGood      = "Good. You addressed key points, but could improve clarity or detail."
	FeedbackPartial   = "Partial answer. Some concepts are missing or unclear."
	FeedbackNeedsWork = "Needs improvement. Please review the topic again."
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]+`)

// Result is the outcome of comparing a submitted answer with a reference.
type Result struct {
	Score      int     `json:"score"`
	Similarity float64 `json:"similarity"`
	Feedback   string  `json:"feedback"`
}

// Scorer compares free-text answers in a TF-IDF vector space.
type Scorer struct{}

// NewScorer returns a ready to use Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score builds a vector space from exactly the reference and submitted texts
// and returns their cosine similarity scaled to 0-100.
func (s *Scorer) Score(reference, submitted string) (Result, error) {
	docs := [][]string{tokenize(reference), tokenize(submitted)}

	df := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return Result{}, ErrEmptyVocabulary
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		// smoothed idf: ln((1+n)/(1+df)) + 1
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	ref := weigh(docs[0], idf)
	sub := weigh(docs[1], idf)
	similarity := cosine(ref, sub)

	score := int(math.RoundToEven(similarity * 100))
	return Result{
		Score:      score,
		Similarity: similarity,
		Feedback:   Feedback(score),
	}, nil
}

// Feedback maps a 0-100 score onto its feedback band.
func Feedback(score int) string {
	switch {
	case score >= 80:
		return FeedbackExcellent
	case score >= 60:
		return FeedbackGood
	case score >= 40:
		return FeedbackPartial
	default:
		return FeedbackNeedsWork
	}
}

// tokenize lower-cases text and keeps word tokens of two or more characters.
func tokenize(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	terms := words[:0]
	for _, word := range words {
		if len([]rune(word)) < 2 {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

func weigh(terms []string, idf map[string]float64) map[string]float64 {
	counts := map[string]float64{}
	for _, term := range terms {
		counts[term]++
	}

	var norm float64
	for term, tf := range counts {
		w := tf * idf[term]
		counts[term] = w
		norm += w * w
	}
	if norm == 0 {
		return counts
	}

	norm = math.Sqrt(norm)
	for term, w := range counts {
		counts[term] = w / norm
	}
	return counts
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64
	for term, w := range a {
		dot += w * b[term]
	}
	// guard against floating point drift past 1.0
	return math.Min(1, math.Max(0, dot))
}
