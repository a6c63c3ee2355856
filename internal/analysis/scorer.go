package analysis

import (
	"math"
	"strings"

	"github.com/MrWong99/screeningd/internal/domain"
)

// scoreAndSkills computes the fit score and matched-skills list for one
// application. When both embeddings are available it scores by cosine
// similarity; otherwise it falls back to a rule derived from transcript
// length and matched skills.
//
// Skills are the job offer's first ten strengths that appear (case
// insensitively) in the candidate's transcript lines, or, failing any
// match, the candidate's first five profile skills. Either way the
// result is capped at ten entries.
func scoreAndSkills(transcript []domain.TranscriptSegment, candidate *domain.Candidate, jobOffer *domain.JobOffer, candidateEmbedding, jobOfferEmbedding []float32) (fitScore int, skills []string) {
	skills = matchedSkills(transcript, candidate, jobOffer)

	if len(candidateEmbedding) > 0 && len(jobOfferEmbedding) > 0 && len(candidateEmbedding) == len(jobOfferEmbedding) {
		cos := cosineSimilarity(candidateEmbedding, jobOfferEmbedding)
		score := int(math.Round((cos + 1.0) / 2.0 * 100))
		return clamp(score, 0, 100), skills
	}

	return ruleBasedScore(transcript, skills), skills
}

func matchedSkills(transcript []domain.TranscriptSegment, candidate *domain.Candidate, jobOffer *domain.JobOffer) []string {
	if len(transcript) < 2 {
		return nil
	}
	candidateText := strings.ToLower(candidateSpeech(transcript))
	if candidateText == "" {
		return nil
	}

	var skills []string
	if jobOffer != nil {
		for _, strength := range firstN(jobOffer.Strengths, 10) {
			if strength == "" {
				continue
			}
			if strings.Contains(candidateText, strings.ToLower(strength)) {
				skills = append(skills, strength)
			}
		}
	}
	if len(skills) == 0 && candidate != nil {
		skills = firstN(candidate.Skills, 5)
	}
	return firstN(skills, 10)
}

func ruleBasedScore(transcript []domain.TranscriptSegment, skills []string) int {
	if len(transcript) < 2 {
		return 0
	}
	if strings.TrimSpace(candidateSpeech(transcript)) == "" {
		return 0
	}
	score := 40 + len(transcript)*5 + len(skills)*10
	return clamp(score, 0, 100)
}

func candidateSpeech(transcript []domain.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range transcript {
		if seg.Speaker != domain.SpeakerCandidate {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func firstN[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
