package dlob

// metadataMap is the internal_order_id -> OrderMetadata index. An order
// exists in exactly one container iff its metadata entry exists: every
// container mutation in dlob.go adds or removes the metadata entry in
// the same step as the container entry.
type metadataMap struct {
	m *shardedMap[uint64, OrderMetadata]
}

func newMetadataMap() *metadataMap {
	return &metadataMap{m: newShardedMap[uint64, OrderMetadata](identityHash)}
}

func identityHash(id uint64) uint64 { return id }

func (mm *metadataMap) Get(id uint64) (OrderMetadata, bool) { return mm.m.Get(id) }
func (mm *metadataMap) Set(id uint64, meta OrderMetadata)   { mm.m.Set(id, meta) }
func (mm *metadataMap) Remove(id uint64) (OrderMetadata, bool) {
	return mm.m.Remove(id)
}
func (mm *metadataMap) Len() int { return mm.m.Len() }
