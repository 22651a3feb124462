package panel

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/RC-CHN/CHARLS-FILTER/internal/bitmap"
	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// Wave is a merged dataset tagged with its year.
type Wave struct {
	Year string
	Data *dataset.Dataset
}

// Intersect restricts every wave to the identifiers present in all waves,
// keeping row order. It returns the filtered waves in input order and the
// size of the common identifier set. Missing identifiers never match.
func Intersect(waves []Wave) ([]Wave, int, error) {
	dict := make(map[string]uint32)
	sets := make([]*roaring.Bitmap, len(waves))
	ids := make([][]int64, len(waves))

	for w, wave := range waves {
		col, ok := wave.Data.Column(IDColumn)
		if !ok {
			return nil, 0, fmt.Errorf("year %s: %w", wave.Year, ErrMissingIdentifier)
		}
		set := roaring.New()
		rowIDs := make([]int64, col.Len())
		for i := range rowIDs {
			v := col.Value(i)
			if v == nil {
				rowIDs[i] = -1
				continue
			}
			key := dataset.FormatValue(v)
			id, ok := dict[key]
			if !ok {
				id = uint32(len(dict))
				dict[key] = id
			}
			set.Add(id)
			rowIDs[i] = int64(id)
		}
		sets[w] = set
		ids[w] = rowIDs
	}

	if len(sets) == 0 {
		return nil, 0, ErrNoCommonParticipants
	}
	common := roaring.FastAnd(sets...)
	if common.IsEmpty() {
		return nil, 0, ErrNoCommonParticipants
	}

	out := make([]Wave, len(waves))
	for w, wave := range waves {
		mask := bitmap.New(wave.Data.NumRows())
		for i, id := range ids[w] {
			if id >= 0 && common.Contains(uint32(id)) {
				mask.Add(i)
			}
		}
		out[w] = Wave{Year: wave.Year, Data: wave.Data.Keep(mask)}
	}
	return out, int(common.GetCardinality()), nil
}
