package dedup

import (
	"sort"
	"strings"
)

const (
	ReasonPhone = "phone"
	ReasonName  = "name"
)

// Group is one set of identities suspected to be the same person, tagged
// with the signal that produced it.
type Group struct {
	Label   string      `json:"label"`
	Reason  string      `json:"reason"`
	Clients []*Identity `json:"clients"`
}

// minimum digits for a phone to act as a grouping signal; shorter strings
// are desk shorthand, not dialable numbers
const minPhoneDigits = 10

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[rb] = ra
	}
}

// FindPotentialDuplicates runs both grouping passes over the identities and
// returns the surviving groups. A group survives when, after removing
// members whose pairing with the group's first identity was ignored, at
// least two identities remain.
func FindPotentialDuplicates(identities []*Identity, ignored map[string]bool) []*Group {
	var candidates []*Group
	candidates = append(candidates, groupByPhone(identities)...)
	candidates = append(candidates, groupByName(identities)...)

	seen := make(map[string]bool)
	var out []*Group
	for _, g := range candidates {
		g.Clients = suppressIgnored(g.Clients, ignored)
		if len(g.Clients) < 2 {
			continue
		}
		sig := groupSignature(g.Clients)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		g.Label = groupLabel(g.Clients[0])
		out = append(out, g)
	}
	return out
}

// groupByPhone buckets identities by each normalized phone with enough
// digits to be a real number.
func groupByPhone(identities []*Identity) []*Group {
	buckets := make(map[string][]*Identity)
	for _, id := range identities {
		for _, phone := range id.Phones {
			if len(phone) < minPhoneDigits {
				continue
			}
			buckets[phone] = append(buckets[phone], id)
		}
	}

	phones := make([]string, 0, len(buckets))
	for phone := range buckets {
		phones = append(phones, phone)
	}
	sort.Strings(phones)

	var out []*Group
	for _, phone := range phones {
		members := dedupeIdentities(buckets[phone])
		if len(members) < 2 {
			continue
		}
		out = append(out, &Group{Reason: ReasonPhone, Clients: members})
	}
	return out
}

// groupByName buckets identities by the first word of the normalized name,
// then connects similar names within each bucket. Buckets keyed on words of
// one or two runes would lump unrelated people together, so those are
// skipped.
func groupByName(identities []*Identity) []*Group {
	buckets := make(map[string][]*Identity)
	for _, id := range identities {
		norm := NormalizeName(id.Name)
		words := strings.Fields(norm)
		if len(words) == 0 {
			continue
		}
		first := words[0]
		if len([]rune(first)) <= 2 {
			continue
		}
		buckets[first] = append(buckets[first], id)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []*Group
	for _, k := range keys {
		members := dedupeIdentities(buckets[k])
		if len(members) < 2 {
			continue
		}

		uf := newUnionFind(len(members))
		norms := make([]string, len(members))
		for i, id := range members {
			norms[i] = NormalizeName(id.Name)
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if NamesAreSimilar(norms[i], norms[j]) {
					uf.union(i, j)
				}
			}
		}

		components := make(map[int][]*Identity)
		for i, id := range members {
			root := uf.find(i)
			components[root] = append(components[root], id)
		}
		roots := make([]int, 0, len(components))
		for root := range components {
			roots = append(roots, root)
		}
		sort.Ints(roots)
		for _, root := range roots {
			if len(components[root]) < 2 {
				continue
			}
			out = append(out, &Group{Reason: ReasonName, Clients: components[root]})
		}
	}
	return out
}

func dedupeIdentities(ids []*Identity) []*Identity {
	seen := make(map[string]bool)
	var out []*Identity
	for _, id := range ids {
		if seen[id.Key] {
			continue
		}
		seen[id.Key] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// suppressIgnored removes members whose pairing with the group's first
// identity (by key order) was marked not-a-duplicate.
func suppressIgnored(members []*Identity, ignored map[string]bool) []*Identity {
	if len(members) == 0 || len(ignored) == 0 {
		return members
	}
	target := members[0]
	out := []*Identity{target}
	for _, id := range members[1:] {
		if ignored[PairTag(target.Key, id.Key)] {
			continue
		}
		out = append(out, id)
	}
	return out
}

func groupSignature(members []*Identity) string {
	keys := make([]string, len(members))
	for i, id := range members {
		keys[i] = id.Key
	}
	sort.Strings(keys)
	return strings.Join(keys, "\x00")
}

func groupLabel(id *Identity) string {
	if id.BirthDate != "" {
		return id.Name + " (" + id.BirthDate + ")"
	}
	return id.Name
}
