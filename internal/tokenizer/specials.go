package tokenizer

import "fmt"

// Harmony structural token ids in the o200k_harmony vocabulary.
const (
	TokenStartOfText uint32 = 199998
	TokenEndOfText   uint32 = 199999
	TokenReturn      uint32 = 200002
	TokenConstrain   uint32 = 200003
	TokenChannel     uint32 = 200005
	TokenStart       uint32 = 200006
	TokenEnd         uint32 = 200007
	TokenMessage     uint32 = 200008
	TokenCall        uint32 = 200012
)

// The special-token id space: every id in [specialFirst, specialLast] is a
// special token; ids without a named spelling decode as <|reserved_<id>|>.
const (
	specialFirst uint32 = 199998
	specialLast  uint32 = 201088
)

var namedSpecials = map[uint32]string{
	TokenStartOfText: "<|startoftext|>",
	TokenEndOfText:   "<|endoftext|>",
	TokenReturn:      "<|return|>",
	TokenConstrain:   "<|constrain|>",
	TokenChannel:     "<|channel|>",
	TokenStart:       "<|start|>",
	TokenEnd:         "<|end|>",
	TokenMessage:     "<|message|>",
	TokenCall:        "<|call|>",
}

// harmonySpecials builds the full spelling→id table: the named structural
// tokens plus the <|reserved_N|> fillers covering the rest of the range.
func harmonySpecials() map[string]uint32 {
	m := make(map[string]uint32, int(specialLast-specialFirst)+1)
	for id := specialFirst; id <= specialLast; id++ {
		if name, ok := namedSpecials[id]; ok {
			m[name] = id
		} else {
			m[fmt.Sprintf("<|reserved_%d|>", id)] = id
		}
	}
	return m
}
