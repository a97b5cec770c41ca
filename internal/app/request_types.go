package app

// AllocateRequest is the input for AllocateLRNumber.
type AllocateRequest struct {
	CompanyCode   string `json:"company_code"`
	BranchCode    string `json:"branch_code"`
	FinancialYear string `json:"financial_year,omitempty"`
}
