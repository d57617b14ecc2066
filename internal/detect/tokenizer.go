package detect

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"
)

type Token struct {
	Text       string
	Start, End int
}

type WordPieceTokenizer struct {
	vocab      map[string]int
	unkID      int
	clsID      int
	sepID      int
	maxWordLen int
	maxSeqLen  int
	lowercase  bool
}

// Encoding is a tokenized text split into model-sized windows. Every word
// of the text belongs to exactly one window.
type Encoding struct {
	Words   []Token
	Windows []Window
}

// Window is one model input: [CLS] pieces [SEP]. WordIdx maps each position
// to its index in Encoding.Words, or -1 for the special tokens.
type Window struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
	WordIdx       []int
}

func newWindow(clsID int) Window {
	return Window{
		InputIDs:      []int64{int64(clsID)},
		AttentionMask: []int64{1},
		TokenTypeIDs:  []int64{0},
		WordIdx:       []int{-1},
	}
}

func (w *Window) push(id, wordIdx int) {
	w.InputIDs = append(w.InputIDs, int64(id))
	w.AttentionMask = append(w.AttentionMask, 1)
	w.TokenTypeIDs = append(w.TokenTypeIDs, 0)
	w.WordIdx = append(w.WordIdx, wordIdx)
}

type tokenizerJSON struct {
	Model struct {
		Vocab map[string]int `json:"vocab"`
	} `json:"model"`
	Normalizer struct {
		Lowercase *bool `json:"lowercase"`
	} `json:"normalizer"`
}

func NewWordPieceTokenizer(tokenizerPath string) (*WordPieceTokenizer, error) {
	vocab, lowercase, err := loadTokenizerConfig(tokenizerPath)
	if err != nil {
		return nil, err
	}
	unkID, ok := vocab["[UNK]"]
	if !ok {
		return nil, fmt.Errorf("tokenizer vocab is missing [UNK]")
	}
	clsID, ok := vocab["[CLS]"]
	if !ok {
		return nil, fmt.Errorf("tokenizer vocab is missing [CLS]")
	}
	sepID, ok := vocab["[SEP]"]
	if !ok {
		return nil, fmt.Errorf("tokenizer vocab is missing [SEP]")
	}
	return &WordPieceTokenizer{vocab: vocab, unkID: unkID, clsID: clsID, sepID: sepID, maxWordLen: 100, maxSeqLen: 512, lowercase: lowercase}, nil
}

func loadTokenizerConfig(path string) (map[string]int, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	var cfg tokenizerJSON
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, false, err
	}
	if len(cfg.Model.Vocab) == 0 {
		return nil, false, fmt.Errorf("tokenizer.json model.vocab is empty")
	}
	lowercase := true
	if cfg.Normalizer.Lowercase != nil {
		lowercase = *cfg.Normalizer.Lowercase
	}
	return cfg.Model.Vocab, lowercase, nil
}

// Encode splits text into words and packs their word pieces into windows
// of at most maxSeqLen positions. A word never straddles two windows; a
// single word longer than a window keeps only its leading pieces, which is
// all the labeller reads.
func (t *WordPieceTokenizer) Encode(text string) (*Encoding, error) {
	budget := t.maxSeqLen - 2
	if budget < 1 {
		return nil, fmt.Errorf("tokenizer sequence limit %d leaves no room for text", t.maxSeqLen)
	}
	enc := &Encoding{Words: splitWordsWithOffsets(text)}
	cur := newWindow(t.clsID)
	for wi, word := range enc.Words {
		pieces := t.wordToPieces(word.Text)
		if len(pieces) > budget {
			pieces = pieces[:budget]
		}
		if len(cur.InputIDs)-1+len(pieces) > budget {
			enc.Windows = append(enc.Windows, t.closeWindow(cur))
			cur = newWindow(t.clsID)
		}
		for _, id := range pieces {
			cur.push(id, wi)
		}
	}
	if len(cur.InputIDs) > 1 || len(enc.Windows) == 0 {
		enc.Windows = append(enc.Windows, t.closeWindow(cur))
	}
	return enc, nil
}

func (t *WordPieceTokenizer) closeWindow(w Window) Window {
	w.push(t.sepID, -1)
	return w
}

func (t *WordPieceTokenizer) wordToPieces(word string) []int {
	if word == "" {
		return []int{t.unkID}
	}
	normalized := word
	if t.lowercase {
		normalized = strings.ToLower(word)
	}
	runes := []rune(normalized)
	if len(runes) > t.maxWordLen {
		return []int{t.unkID}
	}
	if id, ok := t.vocab[normalized]; ok {
		return []int{id}
	}
	ids := make([]int, 0)
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := -1
		for end > start {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				found = id
				break
			}
			end--
		}
		if found == -1 {
			return []int{t.unkID}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}

func splitWordsWithOffsets(text string) []Token {
	tokens := make([]Token, 0)
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Text: text[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: text[start:], Start: start, End: len(text)})
	}
	return tokens
}

func tokensToDetections(text string, tokens []Token, labels []string, scores []float64, c Category) []Detection {
	spans := mergeBIO(tokens, labels, scores)
	out := make([]Detection, 0, len(spans))
	for _, s := range spans {
		out = append(out, Detection{
			Start:       s.Start,
			End:         s.End,
			MatchedText: text[s.Start:s.End],
			Category:    c,
			Confidence:  s.Score,
			EntityType:  strings.ToUpper(s.Type),
		})
	}
	return out
}

type bioSpan struct {
	Type       string
	Start, End int
	Score      float64
}

// mergeBIO joins B-/I- tagged words into spans whose score is the mean of
// their words' scores.
func mergeBIO(tokens []Token, labels []string, scores []float64) []bioSpan {
	out := make([]bioSpan, 0)
	var cur *bioSpan
	curCount := 0.0
	flush := func() {
		if cur != nil {
			cur.Score = cur.Score / math.Max(1, curCount)
			out = append(out, *cur)
			cur = nil
			curCount = 0
		}
	}
	for i := range tokens {
		label := labels[i]
		if label == "O" || label == "" {
			flush()
			continue
		}
		prefix, typ, ok := strings.Cut(label, "-")
		if !ok || (prefix != "I" && prefix != "B") {
			// IO tagging: consecutive words with the same label form one span.
			prefix, typ = "I", label
		}
		if prefix == "B" || cur == nil || cur.Type != typ {
			flush()
			cur = &bioSpan{Type: typ, Start: tokens[i].Start, End: tokens[i].End, Score: scores[i]}
			curCount = 1
			continue
		}
		cur.End = tokens[i].End
		cur.Score += scores[i]
		curCount++
	}
	flush()
	return out
}
