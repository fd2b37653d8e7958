// Package resolver maps a change on one item to every item whose displayed
// availability may have moved with it.
package resolver

import "reservation-service/internal/domain"

// View is the read-only slice of the catalog the resolver needs.
type View interface {
	Has(id domain.ItemID) bool
	Children(id domain.ItemID) []domain.ItemID
	ParentOf(id domain.ItemID) (domain.Item, bool)
	IsSyncParent(id domain.ItemID) bool
	IsContainerOnly(id domain.ItemID) bool
}

// Affected returns the ids whose availability depends on id, including id,
// in ascending order.
func Affected(v View, id domain.ItemID) []domain.ItemID {
	set := map[domain.ItemID]struct{}{id: {}}
	collect(v, id, set)
	return sorted(set)
}

// AffectedSet is Affected over several ids, merged.
func AffectedSet(v View, ids ...domain.ItemID) []domain.ItemID {
	set := make(map[domain.ItemID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
		collect(v, id, set)
	}
	return sorted(set)
}

func collect(v View, id domain.ItemID, set map[domain.ItemID]struct{}) {
	if !v.Has(id) {
		return
	}
	if parent, ok := v.ParentOf(id); ok {
		switch {
		case v.IsSyncParent(parent.ID):
			set[parent.ID] = struct{}{}
			for _, sibling := range v.Children(parent.ID) {
				set[sibling] = struct{}{}
			}
		case v.IsContainerOnly(parent.ID):
			// container banner is an OR over its children
			set[parent.ID] = struct{}{}
		}
		return
	}
	if v.IsSyncParent(id) {
		for _, child := range v.Children(id) {
			set[child] = struct{}{}
		}
	}
}

func sorted(set map[domain.ItemID]struct{}) []domain.ItemID {
	ids := make([]domain.ItemID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return domain.SortIDs(ids)
}
