package model

import "mindcanvas/internal/geometry"

// Remap gives every card in d a fresh id and rewrites connection endpoints
// through the resulting id map. Connections whose endpoints were not both
// remapped are dropped, as are self connections and duplicates of an
// already kept pair. Cards are offset by delta. The returned map goes from old
// to new card ids.
func Remap(d Document, delta geometry.Point) (Document, map[string]string) {
	ids := make(map[string]string, len(d.Cards))
	out := Document{Cards: make([]Card, 0, len(d.Cards))}

	for _, c := range d.Cards {
		if _, dup := ids[c.ID]; dup && c.ID != "" {
			continue
		}
		nc := c.Normalize()
		nc.ID = NewID()
		nc.X += delta.X
		nc.Y += delta.Y
		if c.ID != "" {
			ids[c.ID] = nc.ID
		}
		out.Cards = append(out.Cards, nc)
	}

	for _, conn := range d.Connections {
		start, ok1 := ids[conn.StartCardID]
		end, ok2 := ids[conn.EndCardID]
		if !ok1 || !ok2 || start == end {
			continue
		}
		dup := false
		for _, kept := range out.Connections {
			if kept.Links(start, end) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		if !conn.ArrowType.Valid() {
			conn.ArrowType = ArrowEnd
		}
		conn.ID = NewID()
		conn.StartCardID, conn.EndCardID = start, end
		out.Connections = append(out.Connections, conn)
	}
	return out, ids
}
