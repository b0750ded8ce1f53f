package manifest

import (
	"strings"
)

// Author is a package author. Only the name and email are stored in
// Project.toml; the remaining fields feed CITATION.cff.
type Author struct {
	Firstname   string `json:"firstname" toml:"firstname"`
	Lastname    string `json:"lastname,omitempty" toml:"lastname"`
	Email       string `json:"email,omitempty" toml:"email"`
	URL         string `json:"url,omitempty" toml:"url"`
	Affiliation string `json:"affiliation,omitempty" toml:"affiliation"`
	ORCID       string `json:"orcid,omitempty" toml:"orcid"`
}

// Contributors is the pseudo-author appended after the named authors.
var Contributors = Author{Firstname: "and contributors"}

// ParseAuthor reads the "First Last <email>" form used in Project.toml.
func ParseAuthor(s string) Author {
	s = strings.TrimSpace(s)
	var a Author
	if open := strings.Index(s, "<"); open >= 0 {
		if end := strings.Index(s[open:], ">"); end > 0 {
			a.Email = strings.TrimSpace(s[open+1 : open+end])
			s = strings.TrimSpace(s[:open] + s[open+end+1:])
		}
	}
	if s == Contributors.Firstname {
		a.Firstname = s
		return a
	}
	first, last, _ := strings.Cut(s, " ")
	a.Firstname = strings.TrimSpace(first)
	a.Lastname = strings.TrimSpace(last)
	return a
}

// Name joins the first and last names.
func (a Author) Name() string {
	return strings.TrimSpace(a.Firstname + " " + a.Lastname)
}

// IsPseudo reports whether a is the "and contributors" placeholder.
func (a Author) IsPseudo() bool {
	return a.Firstname == Contributors.Firstname && a.Lastname == "" && a.Email == ""
}

func (a Author) String() string {
	name := a.Name()
	if a.Email == "" {
		return name
	}
	if name == "" {
		return "<" + a.Email + ">"
	}
	return name + " <" + a.Email + ">"
}
