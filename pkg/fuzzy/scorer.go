package fuzzy

const (
	// DefaultTitleWeight favors the title: artist credits differ wildly
	// between services while titles mostly survive intact.
	DefaultTitleWeight = 0.7
	// DefaultCombinedWeight covers the artist+title pairing as a whole.
	DefaultCombinedWeight = 0.3
)

// WeightedScorer rates candidate matches by a weighted combination of
// title similarity and combined artist+title similarity over normalized
// text. Scores are bounded to [0, 1].
type WeightedScorer struct {
	normalizer     *Normalizer
	TitleWeight    float64
	CombinedWeight float64
}

func NewWeightedScorer() *WeightedScorer {
	return &WeightedScorer{
		normalizer:     NewNormalizer(),
		TitleWeight:    DefaultTitleWeight,
		CombinedWeight: DefaultCombinedWeight,
	}
}

func (s *WeightedScorer) Score(wantTitle, wantArtist, gotTitle, gotArtist string) float64 {
	wt := s.normalizer.NormalizeTitle(wantTitle)
	gt := s.normalizer.NormalizeTitle(gotTitle)
	wa := s.normalizer.NormalizeArtist(wantArtist)
	ga := s.normalizer.NormalizeArtist(gotArtist)

	titleSim := s.normalizer.CalculateSimilarity(wt, gt)
	combinedSim := s.normalizer.CalculateSimilarity(wa+" "+wt, ga+" "+gt)

	score := s.TitleWeight*titleSim + s.CombinedWeight*combinedSim

	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}

	return score
}
