package rowexec

import (
	"io"

	"github.com/pilosa/pilosa"

	"github.com/lsst/daf-relation/coltag"
)

// pilosaBitmapDedup accelerates Dedup over high-cardinality row sets with a
// pilosa bitmap index, using the same holder/index/field/SetBit/Row calls
// pilosa's own driver tests exercise directly against the library. A bit
// is set per hash bucket as each row is inserted; an unset bit means
// "definitely not seen" and lets MaybeInsert skip the exact map lookup
// entirely. A set bit still falls through to the exact map, since distinct
// rows can hash into the same bucket.
type pilosaBitmapDedup struct {
	holder  *pilosa.Holder
	field   *pilosa.Field
	seen    map[string]struct{}
	cols    []coltag.Tag
	nextCol uint64
}

const dedupBucketCount = 1 << 16

// newPilosaBitmapDedup opens (or creates) a pilosa index rooted at dir,
// with a single "seen" field used as the acceleration bitmap for one
// Dedup operation's lifetime.
func newPilosaBitmapDedup(dir string, cols []coltag.Tag) (*pilosaBitmapDedup, error) {
	holder := pilosa.NewHolder()
	holder.Path = dir
	if err := holder.Open(); err != nil {
		return nil, err
	}
	idx, err := holder.CreateIndexIfNotExists("dedup", pilosa.IndexOptions{})
	if err != nil {
		return nil, err
	}
	if err := idx.Open(); err != nil {
		return nil, err
	}
	field, err := idx.CreateFieldIfNotExists("seen", pilosa.OptFieldTypeDefault())
	if err != nil {
		return nil, err
	}
	return &pilosaBitmapDedup{holder: holder, field: field, seen: make(map[string]struct{}), cols: cols}, nil
}

// MaybeInsert reports whether r is newly distinct; false means r is a
// confirmed duplicate of a row already inserted.
func (d *pilosaBitmapDedup) MaybeInsert(r Row) (bool, error) {
	key := hashKey(r, d.cols)
	bucket := bucketOf(key)
	bits, err := d.field.Row(bucket)
	if err != nil {
		return false, err
	}
	if len(bits.Columns()) > 0 {
		if _, ok := d.seen[key]; ok {
			return false, nil
		}
	}
	d.seen[key] = struct{}{}
	col := d.nextCol
	d.nextCol++
	if _, err := d.field.SetBit(bucket, col, nil); err != nil {
		return false, err
	}
	return true, nil
}

// Close releases the underlying pilosa holder.
func (d *pilosaBitmapDedup) Close() error {
	return d.holder.Close()
}

func bucketOf(key string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= 1099511628211
	}
	return h % dedupBucketCount
}

// indexedMappingIterable is Dedup's bitmap-accelerated variant of
// mappingIterable: same insertion-order, distinct-rows contract, but with
// membership pre-filtered through a pilosaBitmapDedup before the exact map
// check, avoiding a map probe for the common "definitely not seen" case.
type indexedMappingIterable struct {
	order []Row
	index *pilosaBitmapDedup
}

// NewIndexedMappingIterable drains source into a bitmap-accelerated,
// deduplicated, insertion-order RowIterable rooted at indexDir. Intended
// for Dedup over row sets large enough that the per-insert map probe in
// NewMappingIterable becomes the bottleneck.
func NewIndexedMappingIterable(source RowIterable, cols []coltag.Tag, indexDir string) (*indexedMappingIterable, error) {
	index, err := newPilosaBitmapDedup(indexDir, cols)
	if err != nil {
		return nil, err
	}
	m := &indexedMappingIterable{index: index}
	it := source.Iterate()
	for {
		row, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			index.Close()
			return nil, err
		}
		isNew, err := index.MaybeInsert(row)
		if err != nil {
			index.Close()
			return nil, err
		}
		if isNew {
			m.order = append(m.order, row)
		}
	}
	return m, nil
}

func (m *indexedMappingIterable) Iterate() RowIter {
	return &sequenceIter{rows: m.order}
}

func (m *indexedMappingIterable) Len() int { return len(m.order) }

// Close releases the bitmap index backing this iterable.
func (m *indexedMappingIterable) Close() error { return m.index.Close() }
