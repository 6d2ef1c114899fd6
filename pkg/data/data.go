package data

import (
	"strings"
)

//SessionKey binds a source actor to a destination domain. All analysis in
//the pipeline is keyed on this pair: one actor talking to one domain is
//one session, regardless of how many requests were made.
type SessionKey struct {
	Actor  string `bson:"actor" json:"actor"`
	Domain string `bson:"domain" json:"domain"`
}

//NewSessionKey binds an actor address to a destination domain
func NewSessionKey(actor string, domain string) SessionKey {
	return SessionKey{
		Actor:  actor,
		Domain: domain,
	}
}

//MapKey generates a string which may be used to index a given SessionKey
func (k SessionKey) MapKey() string {
	var builder strings.Builder
	builder.Grow(len(k.Actor) + 1 + len(k.Domain))
	builder.WriteString(k.Actor)
	builder.WriteByte(' ')
	builder.WriteString(k.Domain)
	return builder.String()
}

func (k SessionKey) String() string {
	return k.Actor + " -> " + k.Domain
}

//KeySet tracks a set of session keys, e.g. the Tier 1 critical set
//which is excluded from ML scoring
type KeySet map[SessionKey]struct{}

//Add inserts a key into the set
func (s KeySet) Add(key SessionKey) {
	s[key] = struct{}{}
}

//Contains checks set membership
func (s KeySet) Contains(key SessionKey) bool {
	_, ok := s[key]
	return ok
}
