package topology

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/wherewolf/pkg/wherewolf"
)

// Converter decodes topology documents and materializes their objects for a
// wherewolf.Store.
type Converter struct{}

var (
	_ wherewolf.TopologyConverter = Converter{}
	_ wherewolf.TopologyDecoder   = Converter{}
)

func (Converter) DecodeTopology(data []byte) (wherewolf.TopologyDoc, error) {
	t, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (Converter) Feature(doc wherewolf.TopologyDoc, key string) (*geojson.FeatureCollection, error) {
	t, ok := doc.(*Topology)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported document %T", ErrNotTopology, doc)
	}
	return t.Feature(key)
}
