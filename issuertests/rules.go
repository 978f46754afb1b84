package issuertests

// Rule is one row of the interoperability matrix. Name is used both as the row label and as
// the last element of the test ID.
type Rule struct {
	Name string
	Run  func(*T)
}

// Rules returns the rule battery in the order the rows are reported.
func Rules() []Rule {
	var all []Rule
	all = append(all, requestBodyRules...)
	all = append(all, contextRules...)
	all = append(all, typeRules...)
	all = append(all, issuerRules...)
	all = append(all, subjectRules...)
	all = append(all, validCredentialRules...)
	all = append(all, dateRules...)
	return all
}
