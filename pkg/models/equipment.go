package models

// EquipmentCategory is one of the four canonical equipment buckets
type EquipmentCategory string

const (
	EquipmentAudioMultimedia EquipmentCategory = "audio_multimedia"
	EquipmentComfort         EquipmentCategory = "comfort"
	EquipmentSafety          EquipmentCategory = "safety"
	EquipmentOther           EquipmentCategory = "other"
)

// EquipmentCategories lists the canonical categories in output order
var EquipmentCategories = []EquipmentCategory{
	EquipmentAudioMultimedia,
	EquipmentComfort,
	EquipmentSafety,
	EquipmentOther,
}

// Equipment maps each canonical category to the feature labels under it
type Equipment map[EquipmentCategory][]string

// NewEquipment returns an Equipment with every canonical category set to an
// empty list.
func NewEquipment() Equipment {
	eq := make(Equipment, len(EquipmentCategories))
	for _, c := range EquipmentCategories {
		eq[c] = []string{}
	}
	return eq
}

// Add appends label to category unless it is empty or already listed there
func (e Equipment) Add(category EquipmentCategory, label string) {
	if label == "" {
		return
	}
	for _, existing := range e[category] {
		if existing == label {
			return
		}
	}
	e[category] = append(e[category], label)
}

// IsEmpty reports whether no category holds a label
func (e Equipment) IsEmpty() bool {
	for _, items := range e {
		if len(items) > 0 {
			return false
		}
	}
	return true
}

// Count returns the total number of labels across categories
func (e Equipment) Count() int {
	n := 0
	for _, items := range e {
		n += len(items)
	}
	return n
}

// Clone returns a deep copy restricted to the canonical categories
func (e Equipment) Clone() Equipment {
	out := NewEquipment()
	for _, c := range EquipmentCategories {
		out[c] = append(out[c], e[c]...)
	}
	return out
}
