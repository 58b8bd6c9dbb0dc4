package layout

import (
	"cabi/internal/ir"
	"cabi/internal/types"
)

type cache struct {
	records map[types.TypeID]RecordLayout
	irTypes map[types.TypeID]*ir.Type
}

func newCache() *cache {
	return &cache{
		records: make(map[types.TypeID]RecordLayout, 64),
		irTypes: make(map[types.TypeID]*ir.Type, 128),
	}
}

func (c *cache) getRecord(id types.TypeID) (RecordLayout, bool) {
	if c == nil {
		return RecordLayout{}, false
	}
	l, ok := c.records[id]
	return l, ok
}

func (c *cache) putRecord(id types.TypeID, l RecordLayout) {
	if c != nil {
		c.records[id] = l
	}
}

func (c *cache) getIRType(id types.TypeID) (*ir.Type, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.irTypes[id]
	return t, ok
}

func (c *cache) putIRType(id types.TypeID, t *ir.Type) {
	if c != nil {
		c.irTypes[id] = t
	}
}
