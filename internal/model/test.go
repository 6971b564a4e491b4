package model

type Test struct {
	Base
	Name        string `db:"name" json:"name"`
	Code        string `db:"code" json:"code"`
	Category    string `db:"category" json:"category"`
	NormalRange string `db:"normal_range" json:"normal_range,omitempty"`
	Units       string `db:"units" json:"units,omitempty"`
	Methodology string `db:"methodology" json:"methodology,omitempty"`
	Active      bool   `db:"active" json:"active"`
}

type CreateTestRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required"`
	Category    string `json:"category" binding:"required,oneof=blood imaging urine genetic other"`
	NormalRange string `json:"normal_range"`
	Units       string `json:"units"`
	Methodology string `json:"methodology"`
}

type UpdateTestRequest struct {
	Name        *string `json:"name"`
	Category    *string `json:"category" binding:"omitempty,oneof=blood imaging urine genetic other"`
	NormalRange *string `json:"normal_range"`
	Units       *string `json:"units"`
	Methodology *string `json:"methodology"`
	Active      *bool   `json:"active"`
}

type TestFilters struct {
	Category   string
	SearchTerm string
	Pagination
}
