package mood

// Band is a coarse bucket over mood scores used for trend display
type Band string

const (
	BandDistressed Band = "distressed"
	BandStressed   Band = "stressed"
	BandBetter     Band = "better"
	BandGreat      Band = "great"
)

// BandOf buckets a score: <=3 distressed, <=5 stressed, <=7 better, else great
func BandOf(score int) Band {
	switch {
	case score <= 3:
		return BandDistressed
	case score <= 5:
		return BandStressed
	case score <= 7:
		return BandBetter
	default:
		return BandGreat
	}
}
