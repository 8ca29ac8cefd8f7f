package processor

// Term 是词表中的一个关键词或短语，Weight 取 3.0 / 2.0 / 1.0
type Term struct {
	Phrase     string
	Weight     float64
	HighSignal bool
}

// CategoryRule 按顺序匹配，先命中者胜出
type CategoryRule struct {
	Name     string
	Keywords []string
}

// Vocabulary 汇总相关性判断、分类、情感与实体抽取用到的全部词表
type Vocabulary struct {
	Terms          []Term
	MinTerms       int
	UrgencyMarkers []string
	Categories     []CategoryRule
	Positive       []string
	Negative       []string
	Organizations  []string
	// NameExclusions 命中 "Capitalized Capitalized" 但不是人名的组合，例如媒体名
	NameExclusions []string
}

const (
	WeightHigh   = 3.0
	WeightMedium = 2.0
	WeightLow    = 1.0

	UrgencyBonus    = 2.0
	ScoreCap        = 15.0
	MaxEntities     = 10
	DefaultCategory = "General"
)

// DefaultVocabulary 返回 NIL 领域的默认词表
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Terms: []Term{
			{Phrase: "name image likeness", Weight: WeightHigh, HighSignal: true},
			{Phrase: "name, image and likeness", Weight: WeightHigh, HighSignal: true},
			{Phrase: "nil deal", Weight: WeightHigh, HighSignal: true},
			{Phrase: "nil collective", Weight: WeightHigh, HighSignal: true},
			{Phrase: "house v ncaa", Weight: WeightHigh, HighSignal: true},
			{Phrase: "house v. ncaa", Weight: WeightHigh, HighSignal: true},
			{Phrase: "revenue sharing", Weight: WeightHigh, HighSignal: true},
			{Phrase: "nil", Weight: WeightHigh},

			{Phrase: "collective", Weight: WeightMedium},
			{Phrase: "booster", Weight: WeightMedium},
			{Phrase: "endorsement", Weight: WeightMedium},
			{Phrase: "sponsorship", Weight: WeightMedium},
			{Phrase: "student-athlete", Weight: WeightMedium},
			{Phrase: "college athlete", Weight: WeightMedium},
			{Phrase: "transfer portal", Weight: WeightMedium},
			{Phrase: "brand deal", Weight: WeightMedium},
			{Phrase: "licensing", Weight: WeightMedium},
			{Phrase: "royalty", Weight: WeightMedium},
			{Phrase: "opendorse", Weight: WeightMedium},
			{Phrase: "marketpryce", Weight: WeightMedium},

			{Phrase: "deal", Weight: WeightLow},
			{Phrase: "contract", Weight: WeightLow},
			{Phrase: "agreement", Weight: WeightLow},
			{Phrase: "payout", Weight: WeightLow},
			{Phrase: "valuation", Weight: WeightLow},
			{Phrase: "donor", Weight: WeightLow},
			{Phrase: "athlete", Weight: WeightLow},
			{Phrase: "recruit", Weight: WeightLow},
			{Phrase: "ncaa", Weight: WeightLow},
			{Phrase: "coach", Weight: WeightLow},
		},
		MinTerms:       2,
		UrgencyMarkers: []string{"breaking", "exclusive", "developing", "just in", "urgent"},
		Categories: []CategoryRule{
			{Name: "Legal", Keywords: []string{"lawsuit", "settlement", "legal", "court", "antitrust", "house v ncaa"}},
			{Name: "Policy", Keywords: []string{"legislation", "bill", "state law", "governor", "compliance", "ncaa rule"}},
			{Name: "Collectives", Keywords: []string{"collective", "booster", "donor"}},
			{Name: "Technology", Keywords: []string{"marketplace", "platform", "app"}},
			{Name: "Recruiting", Keywords: []string{"transfer portal", "recruiting", "recruit", "commitment"}},
			{Name: "Endorsements", Keywords: []string{"endorsement", "sponsorship", "brand deal", "partnership"}},
		},
		Positive: []string{
			"signs", "signed", "record", "wins", "win", "growth", "boost", "landmark",
			"approved", "success", "partnership", "expands", "launch", "launches", "historic",
		},
		Negative: []string{
			"lawsuit", "violation", "suspended", "investigation", "penalty", "sanctions",
			"decline", "loses", "fraud", "banned", "controversy", "cuts", "scandal", "dispute",
		},
		Organizations: []string{
			"NCAA", "SEC", "Big Ten", "Big 12", "ACC", "Pac-12", "Opendorse", "MarketPryce",
			"On3", "NIL Store", "Front Office Sports", "Sportico", "ESPN", "Nike", "Adidas",
			"Under Armour", "Learfield",
		},
		NameExclusions: []string{
			"Front Office", "Office Sports", "Sports Illustrated", "Business Journal",
			"Sports Business", "Google News", "New York", "The Athletic", "Associated Press",
			"Yahoo Sports", "Big Ten", "Under Armour", "College Sports", "United States",
			"Supreme Court", "White House",
		},
	}
}
