// Package queryurl builds Solr /select query strings with a fluent
// builder, generalizing the parameter-setting style of the Solr client
// query builder (query.go's Query/WriteOptions/ReadOptions) down to the
// handful of parameters the extract pipeline actually drives: field list,
// filter queries, sort, paging and response format. Facet/group/collapse/
// expand params are not reintroduced here, extraction never facets or
// groups documents, it only pages through them.
package queryurl

import (
	"net/url"
	"strconv"
	"strings"
)

// Option names, kept from the original client's Query constants.
const (
	OptionQ       = "q"
	OptionFilter  = "fq"
	OptionFields  = "fl"
	OptionSort    = "sort"
	OptionStart   = "start"
	OptionRows    = "rows"
	OptionWT      = "wt"
	OptionOmit    = "omitHeader"
)

// Builder accumulates query parameters for one /select request.
type Builder struct {
	values url.Values
}

// New starts a builder with wt=json and omitHeader=true, the envelope the
// rest of the pipeline assumes.
func New() *Builder {
	b := &Builder{values: url.Values{}}
	b.values.Set(OptionWT, "json")
	b.values.Set(OptionOmit, "true")
	return b
}

// Q sets the main query string. An empty q is ignored; if Q is never called
// with a non-empty value, no q parameter is sent.
func (b *Builder) Q(q string) *Builder {
	if q != "" {
		b.values.Set(OptionQ, q)
	}
	return b
}

// AddFilter appends one fq clause; Solr accepts repeated fq parameters.
func (b *Builder) AddFilter(fq string) *Builder {
	if fq != "" {
		b.values.Add(OptionFilter, fq)
	}
	return b
}

// Fields sets the field list (fl) from an ordered slice of names.
func (b *Builder) Fields(fields []string) *Builder {
	if len(fields) > 0 {
		b.values.Set(OptionFields, strings.Join(fields, ","))
	}
	return b
}

// Sort sets the sort clause, e.g. "id asc".
func (b *Builder) Sort(sort string) *Builder {
	if sort != "" {
		b.values.Set(OptionSort, sort)
	}
	return b
}

// Page sets start and rows for one page of results.
func (b *Builder) Page(start, rows uint64) *Builder {
	b.values.Set(OptionStart, strconv.FormatUint(start, 10))
	b.values.Set(OptionRows, strconv.FormatUint(rows, 10))
	return b
}

// String renders the accumulated parameters as a query string, without a
// leading "?".
func (b *Builder) String() string {
	return b.values.Encode()
}

// BuildURL joins baseURL (the handler URL, e.g. ".../core/select") with the
// accumulated query string.
func (b *Builder) BuildURL(baseURL string) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + b.String()
}

// SubstituteSlice replaces the {begin} and {end} placeholders in a user
// query template with one slice's bounds, then uppercases any bare
// and/or/not tokens to the boolean operators Solr's query parser expects.
// Tokens are matched case-insensitively and must stand alone between
// spaces; words like "another" or "Norton" are left untouched.
func SubstituteSlice(query, begin, end string) string {
	query = strings.ReplaceAll(query, "{begin}", begin)
	query = strings.ReplaceAll(query, "{end}", end)
	tokens := strings.Split(query, " ")
	for i, tok := range tokens {
		switch strings.ToLower(tok) {
		case "or":
			tokens[i] = "OR"
		case "and":
			tokens[i] = "AND"
		case "not":
			tokens[i] = "NOT"
		}
	}
	return strings.Join(tokens, " ")
}
