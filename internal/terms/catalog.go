package terms

// Placeholder roles shared by templates and question patterns.
const (
	roleAdjective       = "adjective"
	roleNoun            = "noun"
	roleVerb            = "verb"
	rolePurpose         = "purpose"
	roleMediaType       = "media_type"
	roleCelebrity       = "celebrity"
	roleProduct         = "product"
	roleProductCategory = "product_category"
	roleTechnology      = "technology"
	roleLocation        = "location"
	roleDestination     = "destination"
)

var adjectives = []string{
	"latest", "breaking", "new", "recent", "top", "best", "popular", "trending",
	"important", "significant", "major", "urgent", "critical", "viral", "hot",
}

var nouns = []string{
	"politics", "economy", "technology", "science", "health", "sports", "entertainment",
	"business", "finance", "education", "climate", "weather", "markets", "stocks",
	"crypto", "ai", "gadgets", "software", "movies", "music", "games", "fashion",
}

var verbs = []string{
	"learn", "find", "search", "discover", "explore", "understand", "master", "create",
	"build", "develop", "improve", "fix", "solve", "buy", "sell", "trade", "invest",
}

var purposes = []string{
	"beginners", "experts", "students", "professionals", "home", "business", "personal",
	"online", "offline", "free", "premium", "cheap", "quality", "fast", "easy",
}

var mediaTypes = []string{
	"movies", "tv shows", "music", "videos", "podcasts", "games", "books", "articles",
}

var celebrities = []string{
	"Taylor Swift", "Elon Musk", "Beyonce", "Chris Rock", "Kevin Hart", "Dwayne Johnson",
	"Tom Cruise", "Leonardo DiCaprio", "Jennifer Lopez", "Brad Pitt", "Will Smith",
}

var products = []string{
	"iPhone", "laptop", "headphones", "smartwatch", "tablet", "camera", "shoes", "clothing",
	"makeup", "skincare", "fitness tracker", "gaming console", "TV", "speaker",
}

var productCategories = []string{
	"smartphones", "laptops", "headphones", "smartwatches", "tablets", "cameras",
	"shoes", "clothing", "makeup", "skincare", "fitness", "gaming", "electronics",
}

var technologies = []string{
	"artificial intelligence", "machine learning", "blockchain", "cryptocurrency",
	"cloud computing", "5G", "IoT", "virtual reality", "augmented reality", "quantum",
}

var locations = []string{
	"New York", "London", "Paris", "Tokyo", "Sydney", "Dubai", "Singapore", "Hong Kong",
	"Los Angeles", "Chicago", "Toronto", "Mumbai", "Berlin", "Rome", "Barcelona",
}

var destinations = []string{
	"Europe", "Asia", "America", "Africa", "Australia", "Caribbean", "Hawaii", "Alaska",
	"Mexico", "Canada", "Thailand", "Japan", "Italy", "France", "Spain", "Greece",
}

// evergreen and seasonal interests
var keywords = []string{
	"weather", "news", "stocks", "crypto", "ai", "election", "economy", "inflation",
	"jobs", "salary", "remote work", "vaccine", "climate", "energy", "gas prices",
	"housing", "mortgage", "interest rates", "social security", "healthcare",

	"hurricane season", "summer travel", "back to school", "holiday shopping",
	"tax deadline", "olympics", "world cup", "super bowl", "graduation",

	"weight loss", "diet", "exercise", "meditation", "sleep", "stress relief",
	"productivity", "time management", "career change", "retirement planning",

	"chatgpt", "smart home", "electric cars", "renewable energy", "space exploration",
	"cybersecurity", "data privacy", "social media", "streaming services",
}

var templates = []string{
	// news
	"{adjective} {noun} news today",
	"latest {noun} updates",
	"breaking {noun} right now",
	"what is happening with {noun}",
	"{noun} developments this week",

	// information
	"how to {verb} {noun}",
	"best {noun} for {purpose}",
	"{noun} vs {alternative} comparison",
	"what is {concept} definition",
	"{noun} tutorial guide",

	// entertainment
	"watch {media_type} online free",
	"new {media_type} releases this year",
	"popular {media_type} this month",
	"{celebrity} latest news",
	"best {entertainment} recommendations",

	// shopping
	"buy {product} online",
	"cheap {product} deals",
	"review of {product_name}",
	"best {product_category} this year",
	"{product} discount codes",

	// lifestyle
	"healthy {food_item} recipes",
	"exercise for {fitness_goal}",
	"mental health tips for {situation}",
	"benefits of {activity}",
	"how to improve {skill}",

	// tech
	"new {technology} trends",
	"{software} vs {alternative}",
	"best {tech_category} tools",
	"how does {technology} work",
	"latest {science_topic} discoveries",

	// travel
	"best places to visit in {location}",
	"cheap flights to {destination}",
	"hotels in {city} reviews",
	"things to do in {location}",
	"travel tips for {destination}",

	// weather
	"weather forecast for {location}",
	"climate change effects on {region}",
	"natural disasters in {area}",
	"best time to visit {location}",
	"seasonal weather patterns",
}

var questions = []string{
	"what is {topic}",
	"how to {action}",
	"why is {phenomenon}",
	"where to find {item}",
	"when does {event}",
	"who won {competition}",
	"which {product} is best",
	"can you {possibility}",
	"should I {decision}",
	"are there {availability}",
}

var localTemplates = []string{
	"restaurants near {location}",
	"gas prices in {location}",
	"weather {location}",
	"jobs in {location}",
	"real estate {location}",
	"events {location} this weekend",
	"hotels {location}",
	"things to do {location}",
	"news {location}",
	"traffic {location}",
}

var placeTypes = []string{
	"near me", "downtown", "suburbs", "city center", "airport",
	"mall", "hospital", "school", "park", "beach",
}

func concat(lists ...[]string) []string {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	out := make([]string, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// DefaultCatalog returns the built-in phrase catalog. Each call returns a
// fresh value the caller may modify.
func DefaultCatalog() Catalog {
	return Catalog{
		Templates: concat(templates),
		Banks: map[string][]string{
			roleAdjective:       concat(adjectives),
			roleNoun:            concat(nouns),
			roleVerb:            concat(verbs),
			rolePurpose:         concat(purposes),
			roleMediaType:       concat(mediaTypes),
			roleCelebrity:       concat(celebrities),
			roleProduct:         concat(products),
			"product_name":      concat(products),
			roleProductCategory: concat(productCategories),
			roleTechnology:      concat(technologies),
			roleLocation:        concat(locations),
			"city":              concat(locations),
			roleDestination:     concat(destinations),
			"concept":           concat(nouns),
			"entertainment":     {"movies", "music", "shows", "games"},
			"alternative":       {"competitors", "alternatives", "options"},
			"fitness_goal":      {"weight loss", "muscle gain", "endurance"},
			"situation":         {"stress", "anxiety", "work", "school"},
			"skill":             {"coding", "writing", "speaking", "leadership"},
			"tech_category":     {"software", "hardware", "apps", "tools"},
			"science_topic":     {"space", "medicine", "environment", "physics"},
			"area":              {"region", "zone", "district"},
			"region":            {"northeast", "southwest", "midwest", "west coast"},
			"activity":          {"yoga", "walking", "swimming", "reading", "gardening", "cycling"},
			"software":          {"Windows", "macOS", "Linux", "Chrome", "Edge", "Office", "Photoshop"},
			"food_item":         {"chicken", "pasta", "salad", "breakfast", "smoothie", "soup", "vegetarian"},
		},
		Keywords:  concat(keywords),
		Questions: concat(questions),
		QuestionBanks: map[string][]string{
			"topic": concat(keywords, nouns, []string{
				"bitcoin price", "gas prices", "stock market", "unemployment rate",
				"mortgage rates", "inflation data", "job openings", "housing market",
			}),
			"action": concat(verbs, []string{
				"save money", "invest", "lose weight", "learn coding", "start business",
				"buy house", "find job", "improve credit", "retire early", "travel cheap",
			}),
			"phenomenon":   {"climate change", "inflation rising", "market crashing"},
			"item":         {"deals", "jobs", "housing", "information"},
			"event":        {"election", "olympics", "world cup", "super bowl"},
			"competition":  {"election", "championship", "award", "lottery"},
			roleProduct:    concat(productCategories),
			"possibility":  {"work from home", "invest in crypto", "retire early"},
			"decision":     {"buy now", "wait", "invest", "sell"},
			"availability": {"jobs available", "housing options", "deals today"},
		},
		LocalTemplates: concat(localTemplates),
		LocalPlaces:    concat(locations, placeTypes),
	}
}
