package brandsim

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var (
	nonTextRe   = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
	tfidfTermRe = regexp.MustCompile(`\b\w\w+\b`)
)

// CleanText lowercases s and replaces everything but ASCII letters, digits
// and spaces with a space.
func CleanText(s string) string {
	return strings.TrimSpace(strings.ToLower(nonTextRe.ReplaceAllString(s, " ")))
}

// TextSimilarity is the mean of TF-IDF cosine and token-set Jaccard
// similarity over cleaned a and b. It is exactly 0 when either is empty.
func TextSimilarity(a, b string) float64 {
	a, b = CleanText(a), CleanText(b)
	if a == "" || b == "" {
		return 0
	}
	tfidf, ok := TFIDFCosine(a, b)
	if !ok {
		return 0
	}
	return (tfidf + Jaccard(strings.Fields(a), strings.Fields(b))) / 2
}

// TFIDFCosine fits a smooth-idf TF-IDF model on the two documents and
// returns the cosine of their L2-normalized vectors. Terms are runs of two or
// more word characters. ok is false when neither document has a term.
func TFIDFCosine(a, b string) (sim float64, ok bool) {
	docs := [2][]string{tfidfTermRe.FindAllString(a, -1), tfidfTermRe.FindAllString(b, -1)}

	vocab := map[string]struct{}{}
	for _, d := range docs {
		for _, t := range d {
			vocab[t] = struct{}{}
		}
	}
	if len(vocab) == 0 {
		return 0, false
	}
	terms := make([]string, 0, len(vocab))
	for t := range vocab {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	var tf [2]map[string]float64
	for i, d := range docs {
		tf[i] = make(map[string]float64, len(d))
		for _, t := range d {
			tf[i][t]++
		}
	}

	const n = float64(len(docs))
	var vecs [2][]float64
	for i := range vecs {
		vecs[i] = make([]float64, len(terms))
	}
	for j, t := range terms {
		df := 0.0
		for i := range docs {
			if tf[i][t] > 0 {
				df++
			}
		}
		idf := math.Log((1+n)/(1+df)) + 1
		for i := range docs {
			vecs[i][j] = tf[i][t] * idf
		}
	}

	na, nb := floats.Norm(vecs[0], 2), floats.Norm(vecs[1], 2)
	if na == 0 || nb == 0 {
		return 0, true
	}
	return floats.Dot(vecs[0], vecs[1]) / (na * nb), true
}

// Jaccard is |A∩B| / |A∪B| over the token sets of a and b, 0 if either is empty.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}
