package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// KeywordSet is an ordered keyword to weight mapping. In JSON it is accepted
// either as an object ({"crm": 5}) whose key order is preserved, or as an
// array of {"keyword": ..., "weight": ...} entries.
type KeywordSet []Keyword

func (s *KeywordSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}
	if trimmed[0] == '[' {
		var list []Keyword
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("keywords must be an object or an array")
	}
	var out KeywordSet
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var weight int
		if err := dec.Decode(&weight); err != nil {
			return fmt.Errorf("weight for %q: %w", key, err)
		}
		if idx, ok := index[key]; ok {
			out[idx].Weight = weight
			continue
		}
		index[key] = len(out)
		out = append(out, Keyword{Text: key, Weight: weight})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

func (s KeywordSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kw := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kw.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", kw.Weight)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Normalize trims keyword text, drops blank and repeated entries and replaces
// weights below one with defaultWeight.
func (s KeywordSet) Normalize(defaultWeight int) KeywordSet {
	if defaultWeight < 1 {
		defaultWeight = DefaultWeight
	}
	out := make(KeywordSet, 0, len(s))
	index := map[string]int{}
	for _, kw := range s {
		text := strings.TrimSpace(kw.Text)
		if text == "" {
			continue
		}
		weight := kw.Weight
		if weight < 1 {
			weight = defaultWeight
		}
		if idx, ok := index[text]; ok {
			out[idx].Weight = weight
			continue
		}
		index[text] = len(out)
		out = append(out, Keyword{Text: text, Weight: weight})
	}
	return out
}

func (s KeywordSet) Texts() []string {
	texts := make([]string, len(s))
	for i, kw := range s {
		texts[i] = kw.Text
	}
	return texts
}

// ParseKeywordFlag parses "crm=5,sales=20". Entries without a weight get
// weight zero and are defaulted by Normalize.
func ParseKeywordFlag(raw string) (KeywordSet, error) {
	var out KeywordSet
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		text, weightRaw, hasWeight := strings.Cut(part, "=")
		kw := Keyword{Text: strings.TrimSpace(text)}
		if hasWeight {
			weight, err := strconv.Atoi(strings.TrimSpace(weightRaw))
			if err != nil {
				return nil, fmt.Errorf("invalid weight in %q", part)
			}
			kw.Weight = weight
		}
		out = append(out, kw)
	}
	return out, nil
}
