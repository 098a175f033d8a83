// Package template fills {{token}} placeholders in operator-authored email
// and SMS bodies. Output is never HTML-escaped.
package template

import "regexp"

const defaultFirstName = "Friend"

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// contactKeys are always substituted, falling back to an empty string.
var contactKeys = map[string]bool{
	"firstName": true,
	"lastName":  true,
	"name":      true,
	"service":   true,
	"phone":     true,
	"email":     true,
}

// appointmentKeys are substituted only when the caller supplies a value.
var appointmentKeys = map[string]bool{
	"appointmentDate":    true,
	"appointmentTime":    true,
	"appointmentAddress": true,
}

// Render replaces every known {{key}} in tmpl. Unknown tokens are left as is.
func Render(tmpl string, vars map[string]string) string {
	if tmpl == "" {
		return tmpl
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(token string) string {
		key := token[2 : len(token)-2]
		switch {
		case key == "firstName":
			return firstName(vars)
		case contactKeys[key]:
			return vars[key]
		case appointmentKeys[key]:
			if v := vars[key]; v != "" {
				return v
			}
		}
		return token
	})
}

func firstName(vars map[string]string) string {
	if v := vars["firstName"]; v != "" {
		return v
	}
	if v := vars["name"]; v != "" {
		return v
	}
	return defaultFirstName
}
