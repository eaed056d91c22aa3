package domain

// Extraction is what an extractor reports for the current message.
//
// An extractor either fills Fields (a partial record keyed by field name) or a
// single Value. A zero Confidence means "not reported" and the caller applies
// its method default.
type Extraction struct {
	Value      any            `json:"value,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
}

// Empty reports whether the extraction carries no usable value.
func (e Extraction) Empty() bool {
	return e.ValueFor("") == nil
}

// ValueFor resolves the extracted value for a leaf name.
// Fields[leaf] wins over Value; empty strings count as absent.
func (e Extraction) ValueFor(leaf string) any {
	if leaf != "" && e.Fields != nil {
		if v, ok := e.Fields[leaf]; ok && !blank(v) {
			return v
		}
	}
	if !blank(e.Value) {
		return e.Value
	}
	if leaf == "" && len(e.Fields) > 0 {
		return e.Fields
	}
	return nil
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// Record returns the extraction as a whole record: Fields when present, else
// Value if it is itself a record.
func (e Extraction) Record() map[string]any {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	if m, ok := e.Value.(map[string]any); ok && len(m) > 0 {
		return m
	}
	return nil
}
