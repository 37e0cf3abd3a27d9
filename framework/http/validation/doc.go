// Package validation checks flat request values against pipe-separated rules.
//
//	v := validation.Make(map[string]string{
//	    "id":       routing.Param(r, "id"),
//	    "resolved": r.URL.Query().Get("resolved"),
//	}, validation.Rules{
//	    "id":       "required|max:255",
//	    "resolved": "sometimes|boolean",
//	})
//
//	if v.Fails() {
//	    res.ValidationError(v.Errors())
//	}
//
// # Rules
//
//   - required      value must be non-blank
//   - sometimes     skip the remaining rules when the value is absent
//   - boolean       value must parse with strconv.ParseBool
//   - max:n         at most n UTF-8 characters
//   - in:a,b        value must be one of the listed options
//   - not_regex:re  value must not match re
//
// Rules run in order and the first failure stops the field. Unknown rules pass.
package validation
