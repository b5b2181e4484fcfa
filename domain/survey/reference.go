package survey

// IndexColumn is the name given to an unnamed leading column
const IndexColumn = "survey.idx"

// Schema is the ordered list of output columns
type Schema []string

// Index returns the position of column, or -1
func (s Schema) Index(column string) int {
	for i, c := range s {
		if c == column {
			return i
		}
	}
	return -1
}

// Choice is one (code, label) pair of a choice list
type Choice struct {
	Code  string
	Label string
}

// LabelDictionary maps a list name to its choices in sheet order
type LabelDictionary map[string][]Choice

// Lookup flattens a list into code -> label. When a code repeats the later
// entry wins, matching how the choices sheet is read top to bottom.
func (d LabelDictionary) Lookup(listName string) (map[string]string, bool) {
	choices, ok := d[listName]
	if !ok {
		return nil, false
	}
	flat := make(map[string]string, len(choices))
	for _, c := range choices {
		flat[c.Code] = c.Label
	}
	return flat, true
}

// FrameUnit is one geographic unit of the sampling frame
type FrameUnit struct {
	Name   string // LLG name
	Code   string // GEOCODE as written in the sheet
	Key    int64  // GEOCODE as an integer join key
	Target int64
}
