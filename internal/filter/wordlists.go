package filter

// stopWords is the generic English stop-word set: articles, conjunctions,
// pronouns and the like that carry essentially no retrieval signal on
// their own. Fixed at compile time.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "such": {}, "that": {},
	"the": {}, "their": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "to": {}, "was": {}, "will": {}, "with": {}, "he": {},
	"she": {}, "we": {}, "you": {}, "your": {}, "i": {}, "me": {}, "my": {},
	"do": {}, "does": {}, "did": {}, "not": {}, "no": {}, "so": {}, "than": {},
	"too": {}, "very": {}, "can": {}, "could": {}, "should": {}, "would": {},
	"has": {}, "have": {}, "had": {}, "been": {}, "being": {}, "from": {},
	"up": {}, "down": {}, "out": {}, "about": {}, "over": {}, "under": {},
	"again": {}, "further": {}, "once": {}, "here": {}, "when": {},
	"where": {}, "why": {}, "how": {}, "all": {}, "any": {}, "both": {},
	"each": {}, "few": {}, "more": {}, "most": {}, "other": {}, "some": {},
	"only": {}, "own": {}, "same": {}, "just": {},
}

// commonWords is the domain-specific common-term set: tokens that occur so
// frequently in this system's corpus that they carry little discriminating
// power for ranking, but that a user might still legitimately search for
// (which is why FilterQuery keeps them). Fixed at compile time.
var commonWords = map[string]struct{}{
	"www": {}, "http": {}, "https": {}, "com": {}, "org": {}, "net": {},
	"html": {}, "page": {}, "pages": {}, "click": {},
	"meme": {}, "funny": {}, "cat": {}, "lol": {}, "like": {}, "follow": {},
	"subscribe": {}, "share": {}, "post": {}, "posted": {}, "comment": {},
	"comments": {}, "update": {}, "updated": {}, "new": {}, "info": {},
	"read": {}, "view": {}, "views": {},
}

func isStop(tok string) bool {
	_, ok := stopWords[tok]
	return ok
}

func isCommon(tok string) bool {
	_, ok := commonWords[tok]
	return ok
}
