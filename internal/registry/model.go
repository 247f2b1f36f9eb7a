package registry

import "strconv"

// Record is one company–operator edge as stored in the table.
type Record struct {
	TaxID             string `json:"tax_id"`
	CompanyName       string `json:"company_name"`
	State             string `json:"state"`
	PersonType        int    `json:"person_type"`
	OperatorTaxID     string `json:"operator_tax_id"`
	QualificationCode int    `json:"qualification_code"`
	QualificationDesc string `json:"qualification_desc"`
	OperatorName      string `json:"operator_name"`
}

// Fields renders the record in source-file column order.
func (r Record) Fields() []string {
	return []string{
		r.TaxID,
		r.CompanyName,
		r.State,
		strconv.Itoa(r.PersonType),
		r.OperatorTaxID,
		strconv.Itoa(r.QualificationCode),
		r.QualificationDesc,
		r.OperatorName,
	}
}
