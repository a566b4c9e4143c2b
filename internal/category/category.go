// Package category defines the fixed prompt-classification taxonomy and the
// read-only per-category metadata (keywords, examples, default output size)
// that the classifiers and routing engine key off of.
package category

// Category is a prompt classification label drawn from a closed set.
type Category string

const (
	Code           Category = "CODE"
	Summarize      Category = "SUMMARIZE"
	QA             Category = "QA"
	Creative       Category = "CREATIVE"
	MathReasoning  Category = "MATH_REASONING"
	Unknown        Category = "UNKNOWN"
)

// All lists every category in stable iteration order. Unknown is last: the
// heuristic classifier only ever assigns it as a last resort, when every
// category in Scored has a keyword score of 0.
var All = []Category{Code, Summarize, QA, Creative, MathReasoning, Unknown}

// Scored lists the categories the heuristic classifier scores against
// keyword lists — every category except Unknown, which is never matched by
// keywords, only assigned as a fallback.
var Scored = []Category{Code, Summarize, QA, Creative, MathReasoning}

// Valid reports whether c is a member of the closed Category set.
func Valid(c Category) bool {
	switch c {
	case Code, Summarize, QA, Creative, MathReasoning, Unknown:
		return true
	default:
		return false
	}
}

// Mapping is the read-only per-category metadata the classifier and router
// service consult: a keyword list for the heuristic classifier, example
// prompts (documentation only), and a baseline output-token estimate used to
// size generation defaults.
type Mapping struct {
	EstimatedOutputTokens int
	Keywords              []string
	Examples              []string
}

// mappings is the fixed, read-only Category -> Mapping table.
var mappings = map[Category]Mapping{
	Code: {
		EstimatedOutputTokens: 800,
		Keywords: []string{
			"code", "function", "write", "implement", "debug", "fix", "bug",
			"python", "javascript", "refactor",
		},
		Examples: []string{
			"Write a Python function to sort a list",
			"Fix this bug in my JavaScript code",
			"Implement a binary search tree in Go",
		},
	},
	Summarize: {
		EstimatedOutputTokens: 300,
		Keywords: []string{
			"summarize", "summary", "key points", "tldr", "condense",
			"shorten", "brief", "overview", "recap", "main points",
		},
		Examples: []string{
			"Summarize the key points of machine learning",
			"Give me a TLDR of this article",
		},
	},
	QA: {
		EstimatedOutputTokens: 400,
		Keywords: []string{
			"what", "why", "how", "when", "where", "who", "hello",
			"how are you", "explain", "tell me", "question", "?",
		},
		Examples: []string{
			"Hello, how are you?",
			"What is the capital of France?",
		},
	},
	Creative: {
		EstimatedOutputTokens: 1200,
		Keywords: []string{
			"story", "poem", "creative", "imagine", "write a", "fiction",
			"character", "plot", "novel", "lyrics", "screenplay",
		},
		Examples: []string{
			"Write a short story about a dragon",
			"Compose a poem about autumn",
		},
	},
	MathReasoning: {
		EstimatedOutputTokens: 600,
		Keywords: []string{
			"solve", "calculate", "equation", "math", "=", "+", "-", "x",
			"derivative", "integral", "proof", "theorem", "algebra",
		},
		Examples: []string{
			"Solve: 2x + 5 = 13",
			"Calculate the derivative of x^2",
		},
	},
}

// Lookup returns the Mapping for c. Unknown (and any category absent from
// the table) returns the zero value with a nil Keywords list — callers that
// need a non-zero baseline should treat a missing mapping as
// EstimatedOutputTokens == 0.
func Lookup(c Category) Mapping {
	return mappings[c]
}
