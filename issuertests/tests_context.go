package issuertests

import (
	"fmt"

	"github.com/vc-interop/issuer-contract-tests/fixtures"
	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

var contextRules = []Rule{
	{`credential MUST have property "@context".`, DoContextRequiredTest},
	{`credential "@context" MUST be an array.`, DoContextArrayTest},
	{`credential "@context" items MUST be strings or context objects.`, DoContextItemsTest},
	{`credential "@context" MUST start with the base context.`, DoContextBaseFirstTest},
}

func DoContextRequiredTest(t *T) {
	c := t.NewCredential(fixtures.Delete(servicedef.PropertyContext))
	t.RequireRejected(t.IssueCredential(c), `credential without "@context"`)
}

func DoContextArrayTest(t *T) {
	c := t.NewCredential(fixtures.Set(servicedef.PropertyContext, 4))
	t.RequireRejected(t.IssueCredential(c), `"@context" set to 4`)
}

func DoContextItemsTest(t *T) {
	for _, item := range []interface{}{4, false, nil, []interface{}{}} {
		c := t.NewCredential(fixtures.Set(servicedef.PropertyContext,
			[]interface{}{servicedef.BaseContext, item}))
		t.ExpectRejected(t.IssueCredential(c), fmt.Sprintf(`"@context" item %s`, describe(item)))
	}
	c := t.NewCredential(fixtures.Set(servicedef.PropertyContext,
		[]interface{}{map[string]interface{}{"foo": true}, 4, false, nil}))
	t.ExpectRejected(t.IssueCredential(c), `"@context" of mixed invalid items`)
}

func DoContextBaseFirstTest(t *T) {
	c := t.NewCredential(fixtures.Set(servicedef.PropertyContext,
		[]interface{}{"https://www.w3.org/ns/odrl.jsonld", servicedef.BaseContext}))
	t.RequireRejected(t.IssueCredential(c), `"@context" not starting with the base context`)
}

func describe(v interface{}) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v (%T)", v, v)
}
