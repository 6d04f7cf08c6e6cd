package topics

// stopWords are dropped before counting. Besides common English function
// words the list carries headline filler ("says", "report") and HN post
// prefixes ("ask", "show", "hn") that would otherwise trend every day.
var stopWords = newSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "am",
	"an", "and", "any", "are", "aren", "as", "at", "be", "because", "been",
	"before", "being", "below", "between", "both", "but", "by", "can",
	"cannot", "could", "couldn", "did", "didn", "do", "does", "doesn",
	"doing", "don", "down", "during", "each", "even", "ever", "every",
	"few", "for", "from", "further", "get", "gets", "getting", "got", "had",
	"hadn", "has", "hasn", "have", "haven", "having", "he", "her", "here",
	"hers", "herself", "him", "himself", "his", "how", "however", "if", "in",
	"into", "is", "isn", "it", "its", "itself", "just", "let", "ll", "made",
	"make", "makes", "many", "may", "me", "might", "more", "most", "much",
	"must", "my", "myself", "need", "needs", "never", "new", "no", "nor",
	"not", "now", "of", "off", "old", "on", "once", "one", "only", "or",
	"other", "our", "ours", "ourselves", "out", "over", "own", "re", "really",
	"same", "say", "says", "said", "see", "she", "should", "shouldn", "so",
	"some", "still", "such", "than", "that", "the", "their", "theirs",
	"them", "themselves", "then", "there", "these", "they", "thing", "things",
	"this", "those", "through", "to", "too", "two", "under", "until", "up",
	"us", "use", "used", "using", "ve", "very", "via", "vs", "want", "was",
	"wasn", "way", "we", "were", "weren", "what", "when", "where", "which",
	"while", "who", "whom", "why", "will", "with", "without", "won", "would",
	"wouldn", "year", "years", "yet", "you", "your", "yours", "yourself",
	"yourselves",
	// headline and HN filler
	"ask", "show", "hn", "tell", "launch", "launches", "pdf", "video",
	"report", "reports", "according", "first", "last", "like", "back",
	"day", "days", "week", "time", "today", "people", "world", "big",
	"good", "best", "better", "know", "look", "work", "part",
)

// techKeywords get a fixed weight bonus when they trend.
var techKeywords = newSet(
	// languages and runtimes
	"rust", "python", "javascript", "typescript", "go", "golang", "java",
	"kotlin", "swift", "ruby", "elixir", "erlang", "haskell", "zig",
	"wasm", "webassembly", "node", "nodejs", "deno", "bun", "php", "scala",
	"clojure", "ocaml", "lua", "julia", "sql",
	// AI
	"ai", "ml", "llm", "llms", "gpt", "openai", "anthropic", "claude",
	"gemini", "llama", "mistral", "chatgpt", "copilot", "agi", "agents",
	"agent", "transformer", "neural", "model", "models", "inference",
	"embedding", "embeddings", "diffusion",
	// infrastructure
	"linux", "kernel", "docker", "kubernetes", "k8s", "aws", "azure", "gcp",
	"cloud", "serverless", "database", "postgres", "postgresql", "sqlite",
	"redis", "mysql", "api", "apis", "gpu", "gpus", "cpu", "nvidia", "amd",
	"intel", "arm", "risc-v", "chip", "chips", "quantum", "compiler",
	"browser", "firefox", "chrome", "webkit", "git", "github", "gitlab",
	"react", "vue", "svelte", "framework", "open-source", "opensource",
	// security and companies
	"security", "vulnerability", "exploit", "encryption", "privacy",
	"crypto", "bitcoin", "blockchain", "apple", "google", "microsoft",
	"meta", "amazon", "tesla", "spacex", "startup", "software", "hardware",
	"programming", "developer", "developers", "code", "coding",
)

func newSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// IsStopWord reports whether w (lowercase) is ignored by the extractor.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// IsTechKeyword reports whether w (lowercase) receives the tech bonus.
func IsTechKeyword(w string) bool {
	_, ok := techKeywords[w]
	return ok
}
