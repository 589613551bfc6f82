package catalog

type Supplier struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Address  string     `json:"address"`
	Products []ItemType `json:"products"`
	Rating   float64    `json:"rating"`
}

// Clone returns a copy that shares no slices with s.
func (s Supplier) Clone() Supplier {
	out := s
	out.Products = append([]ItemType(nil), s.Products...)
	return out
}

func (s Supplier) Supports(t ItemType) bool {
	for _, p := range s.Products {
		if p == t {
			return true
		}
	}
	return false
}

// SupplierRegistry keeps suppliers in registration order.
type SupplierRegistry struct {
	list []Supplier
	byID map[string]int
}

func NewSupplierRegistry(suppliers ...Supplier) *SupplierRegistry {
	r := &SupplierRegistry{byID: make(map[string]int, len(suppliers))}
	for _, s := range suppliers {
		if i, ok := r.byID[s.ID]; ok {
			r.list[i] = s.Clone()
			continue
		}
		r.byID[s.ID] = len(r.list)
		r.list = append(r.list, s.Clone())
	}
	return r
}

func (r *SupplierRegistry) All() []Supplier {
	out := make([]Supplier, 0, len(r.list))
	for _, s := range r.list {
		out = append(out, s.Clone())
	}
	return out
}

func (r *SupplierRegistry) Find(id string) (Supplier, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Supplier{}, false
	}
	return r.list[i].Clone(), true
}

func DefaultSuppliers() *SupplierRegistry {
	return NewSupplierRegistry(
		Supplier{ID: "s1", Name: "City Grocers", Address: "123 Market Street, City", Products: []ItemType{Groceries, Meals}, Rating: 4.6},
		Supplier{ID: "s2", Name: "Kids Clothing Store", Address: "456 Fashion Avenue, City", Products: []ItemType{Clothing}, Rating: 4.3},
		Supplier{ID: "s3", Name: "MediCare Pharmacy", Address: "789 Health Road, City", Products: []ItemType{Medication}, Rating: 4.8},
		Supplier{ID: "s4", Name: "General Supplies", Address: "101 Supply Street, City", Products: []ItemType{Groceries, Clothing, Medication}, Rating: 4.5},
	)
}
