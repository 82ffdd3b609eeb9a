package graph

import "sort"

// unionFind is a disjoint-set structure with path compression and union by
// rank, used to partition components into connectivity islands.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

func (uf *unionFind) add(x string) {
	if _, ok := uf.parent[x]; ok {
		return
	}
	uf.parent[x] = x
	uf.rank[x] = 0
}

func (uf *unionFind) find(x string) string {
	if _, ok := uf.parent[x]; !ok {
		uf.add(x)
		return x
	}
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x]) // path compression
	}
	return uf.parent[x]
}

func (uf *unionFind) union(x, y string) {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return
	}
	switch {
	case uf.rank[rx] < uf.rank[ry]:
		uf.parent[rx] = ry
	case uf.rank[rx] > uf.rank[ry]:
		uf.parent[ry] = rx
	default:
		uf.parent[ry] = rx
		uf.rank[rx]++
	}
}

// Islands partitions the components into groups connected by any chain of
// connections, ignoring direction. Variables living in different islands are
// fully independent: every total derivative across islands is exactly zero.
// Each island is sorted; islands are ordered by their first member.
func (g *Graph) Islands() [][]string {
	uf := newUnionFind()
	for _, id := range g.order {
		uf.add(id)
	}
	for _, from := range g.order {
		for to := range g.succ[from] {
			uf.union(from, to)
		}
	}

	byRoot := make(map[string][]string)
	for _, id := range g.order {
		root := uf.find(id)
		byRoot[root] = append(byRoot[root], id)
	}
	islands := make([][]string, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Strings(members)
		islands = append(islands, members)
	}
	sort.Slice(islands, func(i, j int) bool { return islands[i][0] < islands[j][0] })
	return islands
}
