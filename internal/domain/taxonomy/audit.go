package taxonomy

// TaggedItem is a stored record's tags, identified by Ref for reporting.
type TaggedItem struct {
	Ref        string
	Topics     []string
	Heuristics []string
}

// InvalidTag is a stored label that is not canonical in the current vocabulary.
type InvalidTag struct {
	Ref      string   `json:"ref"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
}

// AuditReport summarizes stored tags against the vocabulary.
type AuditReport struct {
	Total    int          `json:"total"`
	Valid    int          `json:"valid"`
	Untagged int          `json:"untagged"`
	Invalid  []InvalidTag `json:"invalid,omitempty"`
}

// Audit checks that every stored label is an exact canonical label. Items with
// no topics count as untagged and are not checked further.
func (r *Registry) Audit(items []TaggedItem) AuditReport {
	rep := AuditReport{Total: len(items)}
	for _, it := range items {
		if len(it.Topics) == 0 {
			rep.Untagged++
			continue
		}
		ok := true
		check := func(labels []string, c Category) {
			for _, l := range labels {
				e, err := r.Validate(l, c)
				if err != nil || e.Label != l {
					rep.Invalid = append(rep.Invalid, InvalidTag{Ref: it.Ref, Category: c, Label: l})
					ok = false
				}
			}
		}
		check(it.Topics, CategoryTopic)
		check(it.Heuristics, CategoryHeuristic)
		if ok {
			rep.Valid++
		}
	}
	return rep
}

//Personal.AI order the ending
