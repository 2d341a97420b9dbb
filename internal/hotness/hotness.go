// Package hotness scores how often keys (layer and H3 cell pairs) are hit,
// with older hits counting less.
package hotness

type Entry struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

type Interface interface {
	// Inc records a hit and returns the updated score.
	Inc(key string) float64
	Score(key string) float64
	Reset(keys ...string)
	// Top returns up to n entries, highest score first.
	Top(n int) []Entry
}
