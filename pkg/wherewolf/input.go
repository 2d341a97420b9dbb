package wherewolf

import "github.com/paulmach/orb/geojson"

// Input is one of FeatureCollection, FeatureList or Topology.
type Input interface {
	input()
}

// FeatureCollection uses the collection's features in order.
type FeatureCollection struct {
	Collection *geojson.FeatureCollection
}

// FeatureList is a bare, ordered sequence of features.
type FeatureList []*geojson.Feature

// Topology is a shared-arc document whose named objects are materialized
// into features by a TopologyConverter.
type Topology struct {
	Doc TopologyDoc
}

func (FeatureCollection) input() {}
func (FeatureList) input()       {}
func (Topology) input()          {}

// TopologyDoc is a decoded topology document.
type TopologyDoc interface {
	ObjectKeys() []string
}

// TopologyConverter materializes one named object of a topology. A single
// feature object comes back as a one-element collection.
type TopologyConverter interface {
	Feature(doc TopologyDoc, key string) (*geojson.FeatureCollection, error)
}

// TopologyDecoder parses a raw topology document.
type TopologyDecoder interface {
	DecodeTopology(data []byte) (TopologyDoc, error)
}
