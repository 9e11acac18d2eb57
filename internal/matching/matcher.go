// Package matching links outbound campaigns to customers by parsing the
// client name out of campaign titles and matching it against customer
// company and contact names.
package matching

import (
	"regexp"
	"strings"
)

// Kind distinguishes how (or whether) a campaign title matched.
type Kind int

const (
	// NoMatch means no customer index entry matched the extracted name.
	NoMatch Kind = iota
	// Exact means the normalized name hit a company or contact name exactly.
	Exact
	// Partial means the name matched by substring containment only.
	Partial
)

// Result is the outcome of matching one campaign title.
type Result struct {
	Kind Kind
	// CustomerID is set for Exact matches and is the chosen candidate
	// for Partial matches.
	CustomerID string
	// Candidates lists every customer whose company name partially
	// matched, in index insertion order. CustomerID is Candidates[0].
	Candidates []string
}

// Matcher matches campaign titles against an in-memory customer index.
// Build the index once per sync pass; it is not safe for concurrent
// mutation.
type Matcher struct {
	byCompany []indexEntry
	byContact map[string]string
	seen      map[string]bool
}

type indexEntry struct {
	key        string
	customerID string
}

// NewMatcher returns an empty matcher. Add customers with Index.
func NewMatcher() *Matcher {
	return &Matcher{
		byContact: make(map[string]string),
		seen:      make(map[string]bool),
	}
}

// Index registers a customer's company and contact names. First writer
// wins on key collisions, so insertion order is part of the contract.
func (m *Matcher) Index(customerID, companyName, contactName string) {
	if key := Normalize(companyName); key != "" && !m.seen["c:"+key] {
		m.seen["c:"+key] = true
		m.byCompany = append(m.byCompany, indexEntry{key: key, customerID: customerID})
	}
	if key := Normalize(contactName); key != "" {
		if _, ok := m.byContact[key]; !ok {
			m.byContact[key] = customerID
		}
	}
}

// Match resolves a campaign title to a customer. Exact company match
// wins, then exact contact match, then the first bidirectional
// substring match over company names.
func (m *Matcher) Match(title string) Result {
	name := ExtractClientName(title)
	key := Normalize(name)
	if key == "" {
		return Result{Kind: NoMatch}
	}

	for _, e := range m.byCompany {
		if e.key == key {
			return Result{Kind: Exact, CustomerID: e.customerID}
		}
	}
	if id, ok := m.byContact[key]; ok {
		return Result{Kind: Exact, CustomerID: id}
	}

	var candidates []string
	for _, e := range m.byCompany {
		if strings.Contains(e.key, key) || strings.Contains(key, e.key) {
			candidates = append(candidates, e.customerID)
		}
	}
	if len(candidates) > 0 {
		return Result{Kind: Partial, CustomerID: candidates[0], Candidates: candidates}
	}

	return Result{Kind: NoMatch}
}

// Campaign titles usually look like "Acme Corp - 3/14/26" or
// "Acme Corp - Retargeting".
var datedTitle = regexp.MustCompile(`^(.+?)\s*-\s*\d{1,2}/\d{1,2}/\d{2,4}`)

// ExtractClientName pulls the client portion out of a campaign title.
// A trailing date suffix is stripped when present; otherwise the text
// before the first " - " separator is used.
func ExtractClientName(title string) string {
	if m := datedTitle.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(strings.SplitN(title, " - ", 2)[0])
}

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, strips punctuation, and collapses whitespace so
// "Acme, Inc." and "acme inc" compare equal.
func Normalize(name string) string {
	name = strings.ToLower(name)
	name = nonWord.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
