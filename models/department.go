package models

// Department is a fixed organizational unit an issue can be assigned to.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultDepartments is the seed written on first start.
func DefaultDepartments() []Department {
	return []Department{
		{ID: "electrical", Name: "Electrical Department"},
		{ID: "sanitation", Name: "Sanitation Department"},
		{ID: "public-works", Name: "Public Works Department"},
		{ID: "water-supply", Name: "Water Supply Department"},
		{ID: "traffic", Name: "Traffic Management"},
	}
}
